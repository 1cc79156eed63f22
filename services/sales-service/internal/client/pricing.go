package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/services/sales-service/internal/service"
	"github.com/suteetoe/erpsuite/services/sales-service/prometheus"
)

// PricingClient resolves unit prices through product-service
type PricingClient struct {
	*Client
}

// NewPricingClient creates a product-service client
func NewPricingClient(baseURL string, timeout time.Duration) *PricingClient {
	return &PricingClient{Client: New(baseURL, timeout)}
}

// ResolvePrice implements service.PriceResolver
func (c *PricingClient) ResolvePrice(ctx context.Context, productID, customerID uint, quantity int) (*service.Price, error) {
	query := url.Values{}
	query.Set("customerId", strconv.FormatUint(uint64(customerID), 10))
	query.Set("quantity", strconv.Itoa(quantity))

	var price service.Price
	done := prometheus.TrackUpstreamCall("product-service")
	err := c.get(ctx, fmt.Sprintf("/api/products/%d/price", productID), query, &price)
	done(err)

	switch {
	case errors.Is(err, errNotFound):
		return nil, apperror.NotFound("product %d not found", productID)
	case err != nil:
		return nil, apperror.Upstream(err, "failed to resolve price of product %d", productID)
	}
	return &price, nil
}
