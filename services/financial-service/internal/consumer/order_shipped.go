// Package consumer turns broker events into invoices.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/suteetoe/erpsuite/gomicro/logger"
	"github.com/suteetoe/erpsuite/gomicro/messaging"
	"github.com/suteetoe/erpsuite/services/financial-service/internal/model"
	"github.com/suteetoe/erpsuite/services/financial-service/prometheus"
	"go.uber.org/zap"
)

// QueueOrderShipped is the durable queue bound to order.shipped
const QueueOrderShipped = "financial.order-shipped"

// InvoiceCreator creates the invoice of a shipped order
type InvoiceCreator interface {
	CreateFromShippedOrder(ctx context.Context, evt messaging.OrderShippedEvent) (*model.Invoice, bool, error)
}

// OrderShipped returns the handler of order.shipped deliveries. Errors are
// returned to the consumer, which logs them and acknowledges the message;
// there is no dead-letter queue.
func OrderShipped(invoices InvoiceCreator) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		log := logger.FromContext(ctx).With(
			zap.String("message_id", msg.ID),
			zap.String("routing_key", msg.RoutingKey))

		var evt messaging.OrderShippedEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			prometheus.RecordEventConsumed(messaging.TopicOrderShipped, "malformed")
			return fmt.Errorf("decode order.shipped: %w", err)
		}

		inv, created, err := invoices.CreateFromShippedOrder(ctx, evt)
		if err != nil {
			prometheus.RecordEventConsumed(messaging.TopicOrderShipped, "failed")
			return fmt.Errorf("invoice order %d: %w", evt.OrderID, err)
		}
		if !created {
			prometheus.RecordEventConsumed(messaging.TopicOrderShipped, "duplicate")
			log.Info("Invoice already exists for order, skipping",
				zap.Uint("order_id", evt.OrderID),
				zap.String("invoice_number", inv.InvoiceNumber))
			return nil
		}

		prometheus.RecordEventConsumed(messaging.TopicOrderShipped, "created")
		prometheus.RecordInvoiceOperation("create_from_order")
		log.Info("Invoice generated from shipped order",
			zap.Uint("order_id", evt.OrderID),
			zap.String("order_number", evt.OrderNumber),
			zap.String("invoice_number", inv.InvoiceNumber))
		return nil
	}
}
