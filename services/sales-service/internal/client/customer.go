package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/services/sales-service/internal/service"
	"github.com/suteetoe/erpsuite/services/sales-service/prometheus"
)

// CustomerClient looks customers up in customer-service
type CustomerClient struct {
	*Client
}

// NewCustomerClient creates a customer-service client
func NewCustomerClient(baseURL string, timeout time.Duration) *CustomerClient {
	return &CustomerClient{Client: New(baseURL, timeout)}
}

// GetCustomer implements service.CustomerValidator
func (c *CustomerClient) GetCustomer(ctx context.Context, customerID uint) (*service.Customer, error) {
	var customer service.Customer
	done := prometheus.TrackUpstreamCall("customer-service")
	err := c.get(ctx, fmt.Sprintf("/api/customers/%d", customerID), nil, &customer)
	done(err)

	switch {
	case errors.Is(err, errNotFound):
		return nil, apperror.NotFound("customer not found")
	case err != nil:
		return nil, apperror.Upstream(err, "failed to validate customer %d", customerID)
	}
	return &customer, nil
}
