// Package client calls customer-service and product-service on behalf of the
// current request, forwarding the caller's bearer token.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/gomicro/middleware"
	"go.uber.org/zap"
)

// errNotFound is returned by get when the remote answers 404
var errNotFound = errors.New("not found")

// errorResponse is the error body every service writes
type errorResponse struct {
	Error string `json:"error"`
}

// Client is a JSON GET client for one service
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client for baseURL with the given request timeout
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// get decodes the JSON answer of GET path?query into out
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if token := middleware.TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := logger.RequestID(ctx); id != "" {
		req.Header.Set(logger.HeaderRequestID, id)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logger.FromContext(ctx).Error("Request failed", zap.String("url", endpoint), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode != http.StatusOK:
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s: %d %s", endpoint, resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("%s: unexpected status %d", endpoint, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
