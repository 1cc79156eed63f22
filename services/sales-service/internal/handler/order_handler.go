package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/suteetoe/erpsuite/gomicro/apperror"
	"github.com/suteetoe/erpsuite/services/sales-service/internal/model"
	"github.com/suteetoe/erpsuite/services/sales-service/internal/service"
	"github.com/suteetoe/erpsuite/services/sales-service/prometheus"
)

// ItemRequest is one requested line
type ItemRequest struct {
	ProductID   uint   `json:"product_id"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
	Notes       string `json:"notes"`
}

// CreateOrderRequest defines the request body for creating an order
type CreateOrderRequest struct {
	CustomerID           uint             `json:"customer_id"`
	WarehouseID          uint             `json:"warehouse_id"`
	Items                []ItemRequest    `json:"items"`
	Currency             string           `json:"currency"`
	TaxAmount            *decimal.Decimal `json:"tax_amount"`
	ShippingAmount       *decimal.Decimal `json:"shipping_amount"`
	DiscountAmount       *decimal.Decimal `json:"discount_amount"`
	ExpectedDeliveryDate *time.Time       `json:"expected_delivery_date"`
	BillingAddress       string           `json:"billing_address"`
	ShippingAddress      string           `json:"shipping_address"`
	Notes                string           `json:"notes"`
}

func itemInputs(items []ItemRequest) []service.OrderItemInput {
	out := make([]service.OrderItemInput, 0, len(items))
	for _, item := range items {
		out = append(out, service.OrderItemInput{
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			Description: item.Description,
			Notes:       item.Notes,
		})
	}
	return out
}

// CreateOrder handles POST /api/orders
func CreateOrder(c echo.Context) error {
	defer prometheus.TrackDBOperation("create_order")(time.Now())

	var req CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}

	// the request context carries the caller's token to customer and product services
	order, err := orders.CreateOrder(c.Request().Context(), tenantID(c), userID(c), service.CreateOrderInput{
		CustomerID:           req.CustomerID,
		WarehouseID:          req.WarehouseID,
		Items:                itemInputs(req.Items),
		Currency:             req.Currency,
		TaxAmount:            req.TaxAmount,
		ShippingAmount:       req.ShippingAmount,
		DiscountAmount:       req.DiscountAmount,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		BillingAddress:       req.BillingAddress,
		ShippingAddress:      req.ShippingAddress,
		Notes:                req.Notes,
	})
	if err != nil {
		return fail(c, err, "create_order")
	}
	prometheus.RecordOrderOperation("create")
	return c.JSON(http.StatusCreated, order)
}

// ListOrders handles GET /api/orders?status=&customer_id=&limit=&offset=
func ListOrders(c echo.Context) error {
	defer prometheus.TrackDBOperation("list_orders")(time.Now())

	filter := service.OrderFilter{Status: model.OrderStatus(c.QueryParam("status"))}
	filter.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	filter.Offset, _ = strconv.Atoi(c.QueryParam("offset"))
	if raw := c.QueryParam("customer_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return fail(c, apperror.Validation("invalid customer_id %q", raw), "invalid_customer_id")
		}
		filter.CustomerID = uint(id)
	}

	list, total, err := orders.ListOrders(c.Request().Context(), tenantID(c), filter)
	if err != nil {
		return fail(c, err, "list_orders")
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": list, "total": total})
}

// GetOrder handles GET /api/orders/:id
func GetOrder(c echo.Context) error {
	defer prometheus.TrackDBOperation("get_order")(time.Now())

	id, err := parseID(c)
	if err != nil {
		return fail(c, err, "invalid_order_id")
	}
	order, err := orders.GetOrder(c.Request().Context(), tenantID(c), id)
	if err != nil {
		return fail(c, err, "get_order")
	}
	return c.JSON(http.StatusOK, order)
}

type transitionFunc func(ctx context.Context, tenantID, id uint) (*model.SalesOrder, error)

func transition(c echo.Context, operation string, fn transitionFunc) error {
	defer prometheus.TrackDBOperation(operation + "_order")(time.Now())

	id, err := parseID(c)
	if err != nil {
		return fail(c, err, "invalid_order_id")
	}
	order, err := fn(c.Request().Context(), tenantID(c), id)
	if err != nil {
		return fail(c, err, operation+"_order")
	}
	prometheus.RecordOrderOperation(operation)
	return c.JSON(http.StatusOK, order)
}

// ApproveOrder handles POST /api/orders/:id/approve
func ApproveOrder(c echo.Context) error {
	return transition(c, "approve", orders.ApproveOrder)
}

// ShipOrder handles POST /api/orders/:id/ship
func ShipOrder(c echo.Context) error {
	return transition(c, "ship", orders.ShipOrder)
}

// DeliverOrder handles POST /api/orders/:id/deliver
func DeliverOrder(c echo.Context) error {
	return transition(c, "deliver", orders.DeliverOrder)
}

// CancelOrder handles POST /api/orders/:id/cancel
func CancelOrder(c echo.Context) error {
	return transition(c, "cancel", orders.CancelOrder)
}
