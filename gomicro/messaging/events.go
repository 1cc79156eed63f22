package messaging

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is published on TopicOrderCreated
type OrderCreatedEvent struct {
	OrderID     uint               `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	TenantID    uint               `json:"tenantId"`
	CustomerID  uint               `json:"customerId"`
	WarehouseID uint               `json:"warehouseId"`
	Items       []OrderCreatedItem `json:"items"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	Timestamp   time.Time          `json:"timestamp"`
}

// OrderCreatedItem is a line of OrderCreatedEvent
type OrderCreatedItem struct {
	ProductID uint `json:"productId"`
	Quantity  int  `json:"quantity"`
}

// OrderShippedEvent is published on TopicOrderShipped once goods leave the warehouse
type OrderShippedEvent struct {
	OrderID     uint               `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	TenantID    uint               `json:"tenantId"`
	CustomerID  uint               `json:"customerId"`
	Currency    string             `json:"currency"`
	ShippedDate time.Time          `json:"shippedDate"`
	Items       []OrderShippedItem `json:"items"`
	Timestamp   time.Time          `json:"timestamp"`
}

// OrderShippedItem is a line of OrderShippedEvent
type OrderShippedItem struct {
	ProductID   uint            `json:"productId"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Description string          `json:"description"`
}
