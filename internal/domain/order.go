package domain

import (
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:    {OrderStatusProcessing: true, OrderStatusCancelled: true},
	OrderStatusProcessing: {OrderStatusShipped: true, OrderStatusCancelled: true},
	OrderStatusShipped:    {OrderStatusDelivered: true},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ParseOrderStatus maps a client-supplied string onto a known status.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToLower(s))
	_, ok := validNext[st]
	return st, ok
}

func CanTransitionTo(from, to OrderStatus) bool {
	return validNext[from][to]
}

func (s OrderStatus) IsTerminal() bool {
	return len(validNext[s]) == 0
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// Order is the server-owned record a checkout produces. Items are written in
// the same transaction as the header; readers never observe a partial order.
type Order struct {
	ID          string      `json:"id"`
	CustomerID  string      `json:"customerId"`
	TotalAmount float64     `json:"totalAmount"`
	Status      OrderStatus `json:"status"`
	Items       []OrderItem `json:"items,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

type OrderItem struct {
	OrderID   string  `json:"orderId"`
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"` // price at purchase time
}
