package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/gomicro/middleware"
)

func TestPricingClientForwardsTokenAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/12/price", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("customerId"))
		assert.Equal(t, "3", r.URL.Query().Get("quantity"))
		assert.Equal(t, "Bearer caller-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"price":"100","priceType":"VOLUME","discountAmount":"5","finalPrice":"95","appliedPriceId":4}`))
	}))
	defer srv.Close()

	ctx := middleware.ContextWithToken(context.Background(), "caller-token")
	price, err := NewPricingClient(srv.URL, time.Second).ResolvePrice(ctx, 12, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, "VOLUME", price.PriceType)
	assert.Equal(t, "95", price.FinalPrice.String())
	require.NotNil(t, price.AppliedPriceID)
	assert.Equal(t, uint(4), *price.AppliedPriceID)
}

func TestPricingClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/products/1/price" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
	}))
	defer srv.Close()
	c := NewPricingClient(srv.URL, time.Second)

	_, err := c.ResolvePrice(context.Background(), 1, 1, 1)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = c.ResolvePrice(context.Background(), 2, 1, 1)
	assert.True(t, apperror.Is(err, apperror.KindUpstream))
	assert.Contains(t, apperror.Message(err), "product 2")
}

func TestCustomerClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/customers/5":
			_, _ = w.Write([]byte(`{"id":5,"name":"Acme","currency":"USD","is_active":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"customer not found"}`))
		}
	}))
	defer srv.Close()
	c := NewCustomerClient(srv.URL+"/", time.Second)

	customer, err := c.GetCustomer(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Acme", customer.Name)
	assert.True(t, customer.IsActive)

	_, err = c.GetCustomer(context.Background(), 6)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.Equal(t, "customer not found", apperror.Message(err))
}

func TestCustomerClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewCustomerClient(url, 100*time.Millisecond).GetCustomer(context.Background(), 9)
	assert.True(t, apperror.Is(err, apperror.KindUpstream))
	assert.Contains(t, apperror.Message(err), "customer 9")
}
