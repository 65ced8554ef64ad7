package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
)

// OrderStore is the slice of the repository the order handlers need.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, to domain.OrderStatus) error
}

type OrdersHandler struct {
	Orders OrderStore
}

func NewOrdersHandler(orders OrderStore) *OrdersHandler {
	return &OrdersHandler{Orders: orders}
}

type createOrderItemDTO struct {
	ProductID           string  `json:"productId"`
	Quantity            int     `json:"quantity"`
	UnitPrice           float64 `json:"unitPrice"`
	DiscountedUnitPrice float64 `json:"discountedUnitPrice"`
}

type createOrderRequest struct {
	CustomerID  string               `json:"customerId"`
	Items       []createOrderItemDTO `json:"items"`
	TotalAmount float64              `json:"totalAmount"`
}

type createOrderResponse struct {
	OrderID string `json:"orderId"`
}

// POST /orders
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.CustomerID == "" {
		respondError(w, http.StatusBadRequest, "missing_customer_id", "Customer ID is required")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "empty_order", "Order must contain at least one item")
		return
	}
	if math.IsNaN(req.TotalAmount) || req.TotalAmount <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_total", "Valid total amount is required")
		return
	}

	order := &domain.Order{
		ID:          uuid.NewString(),
		CustomerID:  req.CustomerID,
		TotalAmount: req.TotalAmount,
		Status:      domain.OrderStatusPending,
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			respondError(w, http.StatusBadRequest, "invalid_item", "every item needs a productId")
			return
		}
		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		price := item.DiscountedUnitPrice
		if price == 0 {
			price = item.UnitPrice
		}
		order.Items = append(order.Items, domain.OrderItem{
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  qty,
			UnitPrice: price,
		})
	}

	if err := h.Orders.CreateOrder(r.Context(), order); err != nil {
		log.Printf("create order error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to create order")
		return
	}

	respondJSON(w, http.StatusCreated, createOrderResponse{OrderID: order.ID})
}

type orderDetailsResponse struct {
	Order *domain.Order      `json:"order"`
	Items []domain.OrderItem `json:"items"`
}

// GET /orders/{orderID}
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.Orders.GetOrderByID(r.Context(), orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "Order not found")
		return
	}
	if err != nil {
		log.Printf("get order error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to fetch order details")
		return
	}

	items := order.Items
	order.Items = nil
	respondJSON(w, http.StatusOK, orderDetailsResponse{Order: order, Items: items})
}

type customerOrdersResponse struct {
	Count  int             `json:"count"`
	Orders []*domain.Order `json:"orders"`
}

// GET /orders/customer/{customerID}
func (h *OrdersHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	orders, err := h.Orders.ListOrdersByCustomer(r.Context(), customerID)
	if err != nil {
		log.Printf("list orders error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to fetch orders")
		return
	}

	respondJSON(w, http.StatusOK, customerOrdersResponse{Count: len(orders), Orders: orders})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// PATCH /orders/{orderID}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	status, ok := domain.ParseOrderStatus(req.Status)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_status",
			"Status must be one of: pending, processing, shipped, delivered, cancelled")
		return
	}

	err := h.Orders.UpdateOrderStatus(r.Context(), orderID, status)
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Order not found")
	case errors.Is(err, repository.ErrIllegalTransition):
		respondError(w, http.StatusBadRequest, "illegal_transition", err.Error())
	case err != nil:
		log.Printf("update status error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Failed to update order status")
	default:
		respondJSON(w, http.StatusOK, map[string]string{"message": "Order status updated successfully"})
	}
}
