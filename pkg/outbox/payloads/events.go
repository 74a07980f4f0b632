package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is emitted once an order and its line items are stored.
// The confirmation email consumer reads it.
type OrderCreatedEvent struct {
	OrderID          uuid.UUID       `json:"order_id"`
	OrderNumber      string          `json:"order_number"`
	Email            string          `json:"email"`
	FullName         string          `json:"full_name"`
	Currency         string          `json:"currency"`
	OrderTotal       decimal.Decimal `json:"order_total"`
	DeliveryCost     decimal.Decimal `json:"delivery_cost"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
	LineItemCount    int             `json:"line_item_count"`
	PaymentReference string          `json:"payment_reference"`
	Source           string          `json:"source"`
}

// OrderPaymentEvent reports a processor outcome for an order.
type OrderPaymentEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	OrderNumber      string    `json:"order_number"`
	Email            string    `json:"email"`
	PaymentReference string    `json:"payment_reference"`
	Status           string    `json:"status"`
	FailureMessage   string    `json:"failure_message,omitempty"`
}

// Order creation sources.
const (
	SourceCheckout = "checkout"
	SourceWebhook  = "webhook"
)
