// Package api is the storefront's HTTP client: login/logout, identity
// verification and order submission against the order service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/go_storefront/internal/domain"
)

const defaultTimeout = 15 * time.Second

type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name: "storefront-api",
		}),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Login sends credentials once. Failures propagate to the caller untouched;
// there is no silent retry, the caller owns the UX for a failed login.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.SessionIdentity, error) {
	resp, err := c.do(ctx, http.MethodPost, "/login", "", loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Message: messageOr(resp.Body, "login failed")}
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &AuthError{Kind: AuthMalformed, Message: err.Error()}
	}
	if body.Token == "" || body.User.Email == "" {
		return nil, &AuthError{Kind: AuthMalformed, Message: "missing token or user"}
	}
	return &domain.SessionIdentity{Token: body.Token, User: body.User}, nil
}

func (c *Client) Register(ctx context.Context, email, password, role string) error {
	payload := map[string]string{"email": email, "password": password, "role": role}
	resp, err := c.do(ctx, http.MethodPost, "/register", "", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return &RejectedError{StatusCode: resp.StatusCode, Message: messageOr(resp.Body, "registration failed")}
	}
	return nil
}

// Logout notifies the server. Callers treat this as best-effort.
func (c *Client) Logout(ctx context.Context, token string) error {
	resp, err := c.do(ctx, http.MethodPost, "/logout", token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &RejectedError{StatusCode: resp.StatusCode, Message: messageOr(resp.Body, "logout failed")}
	}
	return nil
}

type identityResponse struct {
	User domain.User `json:"user"`
}

// Identity asks the server who the bearer token belongs to. The payload is
// decoded strictly here: callers either get a whole user or a tagged error.
func (c *Client) Identity(ctx context.Context, token string) (*domain.User, error) {
	resp, err := c.do(ctx, http.MethodGet, "/identity", token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var body identityResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, &AuthError{Kind: AuthMalformed, Message: err.Error()}
		}
		if body.User.Email == "" {
			return nil, &AuthError{Kind: AuthMalformed, Message: "missing user"}
		}
		return &body.User, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Kind: AuthRejected, Message: messageOr(resp.Body, "invalid or expired token")}
	default:
		return nil, &RejectedError{StatusCode: resp.StatusCode, Message: messageOr(resp.Body, "identity check failed")}
	}
}

type orderItemPayload struct {
	ProductID           string  `json:"productId"`
	Quantity            int     `json:"quantity"`
	UnitPrice           float64 `json:"unitPrice"`
	DiscountedUnitPrice float64 `json:"discountedUnitPrice"`
}

type submitOrderRequest struct {
	CustomerID  string             `json:"customerId"`
	Items       []orderItemPayload `json:"items"`
	TotalAmount float64            `json:"totalAmount"`
	OrderDate   string             `json:"orderDate"`
}

type submitOrderResponse struct {
	OrderID json.Number `json:"orderId"`
}

// SubmitOrder issues the single order-creation request. The server commits
// the order header and all items atomically or not at all, so a failed call
// leaves nothing behind and a user-driven re-submit is safe.
func (c *Client) SubmitOrder(ctx context.Context, token, customerID string, lines []domain.CartLine, total float64) (string, error) {
	req := submitOrderRequest{
		CustomerID:  customerID,
		Items:       coerceLines(lines),
		TotalAmount: total,
		OrderDate:   time.Now().UTC().Format(time.RFC3339),
	}

	resp, err := c.do(ctx, http.MethodPost, "/orders", token, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", &RejectedError{StatusCode: resp.StatusCode, Message: messageOr(resp.Body, "Failed to place order")}
	}

	var body submitOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode order response: %w", err)
	}
	if body.OrderID.String() == "" {
		return "", fmt.Errorf("order response missing orderId")
	}
	return body.OrderID.String(), nil
}

type orderDetailsResponse struct {
	Order domain.Order       `json:"order"`
	Items []domain.OrderItem `json:"items"`
}

func (c *Client) GetOrder(ctx context.Context, token, orderID string) (*domain.Order, error) {
	resp, err := c.do(ctx, http.MethodGet, "/orders/"+orderID, token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Message: messageOr(resp.Body, "Failed to fetch order details")}
	}

	var body orderDetailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode order details: %w", err)
	}
	body.Order.Items = body.Items
	return &body.Order, nil
}

type customerOrdersResponse struct {
	Count  int            `json:"count"`
	Orders []domain.Order `json:"orders"`
}

func (c *Client) ListCustomerOrders(ctx context.Context, token, customerID string) ([]domain.Order, error) {
	resp, err := c.do(ctx, http.MethodGet, "/orders/customer/"+customerID, token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RejectedError{StatusCode: resp.StatusCode, Message: messageOr(resp.Body, "Failed to fetch order history")}
	}

	var body customerOrdersResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode order history: %w", err)
	}
	return body.Orders, nil
}

// coerceLines normalizes quantities and price fields before transmission,
// defending against a corrupted persisted cart record.
func coerceLines(lines []domain.CartLine) []orderItemPayload {
	out := make([]orderItemPayload, 0, len(lines))
	for _, l := range lines {
		qty := l.Quantity
		if qty < 1 {
			qty = 1
		}
		discounted := l.DiscountedUnitPrice
		if discounted == 0 {
			discounted = l.UnitPrice
		}
		out = append(out, orderItemPayload{
			ProductID:           l.ProductID,
			Quantity:            qty,
			UnitPrice:           l.UnitPrice,
			DiscountedUnitPrice: discounted,
		})
	}
	return out
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.http.Do(req)
	})
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	return resp, nil
}

type messageBody struct {
	Message string `json:"message"`
}

// messageOr extracts the server-provided message from an error body, falling
// back when the body is empty or unparsable.
func messageOr(r io.Reader, fallback string) string {
	data, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return fallback
	}
	var body messageBody
	if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
		return fallback
	}
	return body.Message
}
