package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/internal/tokens"
)

type mockUserStore struct {
	record    *repository.UserRecord
	findErr   error
	createID  int64
	createErr error

	createdEmail string
	createdHash  string
	createdRole  string
}

func (m *mockUserStore) CreateUser(_ context.Context, email, passwordHash, role string) (int64, error) {
	m.createdEmail = email
	m.createdHash = passwordHash
	m.createdRole = role
	return m.createID, m.createErr
}

func (m *mockUserStore) FindUserByEmail(_ context.Context, _ string) (*repository.UserRecord, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.record, nil
}

type mockOrderStore struct {
	created   *domain.Order
	createErr error

	order  *domain.Order
	getErr error

	orders  []*domain.Order
	listErr error

	updateErr error
	updatedTo domain.OrderStatus
}

func (m *mockOrderStore) CreateOrder(_ context.Context, order *domain.Order) error {
	m.created = order
	return m.createErr
}

func (m *mockOrderStore) GetOrderByID(_ context.Context, _ string) (*domain.Order, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.order, nil
}

func (m *mockOrderStore) ListOrdersByCustomer(_ context.Context, _ string) ([]*domain.Order, error) {
	return m.orders, m.listErr
}

func (m *mockOrderStore) UpdateOrderStatus(_ context.Context, _ string, to domain.OrderStatus) error {
	m.updatedTo = to
	return m.updateErr
}

// memoryTokens is an in-memory stand-in for the redis-backed store.
type memoryTokens struct {
	mu       sync.Mutex
	sessions map[string]domain.User
	seq      int
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{sessions: make(map[string]domain.User)}
}

func (m *memoryTokens) Issue(_ context.Context, user domain.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	token := fmt.Sprintf("tok-%d", m.seq)
	m.sessions[token] = user
	return token, nil
}

func (m *memoryTokens) Resolve(_ context.Context, token string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.sessions[token]
	if !ok {
		return nil, tokens.ErrTokenNotFound
	}
	return &user, nil
}

func (m *memoryTokens) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func newTestRouter(users *mockUserStore, orders *mockOrderStore, store tokens.Store) http.Handler {
	if users == nil {
		users = &mockUserStore{}
	}
	if orders == nil {
		orders = &mockOrderStore{}
	}
	if store == nil {
		store = newMemoryTokens()
	}
	return NewRouter(NewAuthHandler(users, store), NewOrdersHandler(orders), store, time.Minute)
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(nil, nil, nil)

	rec := doRequest(t, router, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegister_Success(t *testing.T) {
	users := &mockUserStore{createID: 1}
	router := newTestRouter(users, nil, nil)

	rec := doRequest(t, router, http.MethodPost, "/register", "", map[string]string{
		"email": "a@b.c", "password": "secret",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "User registered successfully", decodeBody(t, rec)["message"])
	assert.Equal(t, "a@b.c", users.createdEmail)
	assert.Equal(t, "customer", users.createdRole)
	// the password is stored hashed, never verbatim
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.createdHash), []byte("secret")))
}

func TestRegister_EmailTaken(t *testing.T) {
	users := &mockUserStore{createErr: repository.ErrEmailTaken}
	router := newTestRouter(users, nil, nil)

	rec := doRequest(t, router, http.MethodPost, "/register", "", map[string]string{
		"email": "a@b.c", "password": "secret",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already exists", decodeBody(t, rec)["message"])
}

func TestRegister_MissingFields(t *testing.T) {
	router := newTestRouter(nil, nil, nil)

	rec := doRequest(t, router, http.MethodPost, "/register", "", map[string]string{"email": "a@b.c"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func userRecord(t *testing.T, password string) *repository.UserRecord {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &repository.UserRecord{ID: 7, Email: "a@b.c", PasswordHash: string(hash), Role: "customer"}
}

func TestLogin_Success(t *testing.T) {
	users := &mockUserStore{record: userRecord(t, "secret")}
	router := newTestRouter(users, nil, nil)

	rec := doRequest(t, router, http.MethodPost, "/login", "", map[string]string{
		"email": "a@b.c", "password": "secret",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["token"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a@b.c", user["email"])
}

func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	wrongPassword := newTestRouter(&mockUserStore{record: userRecord(t, "secret")}, nil, nil)
	unknownEmail := newTestRouter(&mockUserStore{findErr: repository.ErrUserNotFound}, nil, nil)

	recA := doRequest(t, wrongPassword, http.MethodPost, "/login", "", map[string]string{
		"email": "a@b.c", "password": "wrong",
	})
	recB := doRequest(t, unknownEmail, http.MethodPost, "/login", "", map[string]string{
		"email": "nobody@b.c", "password": "secret",
	})

	assert.Equal(t, http.StatusUnauthorized, recA.Code)
	assert.Equal(t, http.StatusUnauthorized, recB.Code)
	// same status, same body: the response must not leak which half was wrong
	assert.Equal(t, recA.Body.String(), recB.Body.String())
}

func TestIdentity_RequiresToken(t *testing.T) {
	router := newTestRouter(nil, nil, nil)

	rec := doRequest(t, router, http.MethodGet, "/identity", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/identity", "unknown-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestIdentity_Success(t *testing.T) {
	store := newMemoryTokens()
	router := newTestRouter(nil, nil, store)

	token, err := store.Issue(context.Background(), domain.User{ID: 7, Email: "a@b.c", Role: "customer"})
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/identity", token, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a@b.c", user["email"])
}

func TestLogout_RevokesToken(t *testing.T) {
	store := newMemoryTokens()
	router := newTestRouter(nil, nil, store)

	token, err := store.Issue(context.Background(), domain.User{ID: 7, Email: "a@b.c"})
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodPost, "/logout", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// the token is dead from this point on
	rec = doRequest(t, router, http.MethodGet, "/identity", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func validOrderBody() map[string]any {
	return map[string]any{
		"customerId": "7",
		"items": []map[string]any{
			{"productId": "A", "quantity": 2, "unitPrice": 100, "discountedUnitPrice": 90},
		},
		"totalAmount": 180,
	}
}

func TestCreateOrder_Success(t *testing.T) {
	orders := &mockOrderStore{}
	router := newTestRouter(nil, orders, nil)

	rec := doRequest(t, router, http.MethodPost, "/orders", "", validOrderBody())

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, decodeBody(t, rec)["orderId"])

	require.NotNil(t, orders.created)
	assert.Equal(t, domain.OrderStatusPending, orders.created.Status)
	assert.Equal(t, "7", orders.created.CustomerID)
	require.Len(t, orders.created.Items, 1)
	assert.Equal(t, 90.0, orders.created.Items[0].UnitPrice)
}

func TestCreateOrder_Validation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(body map[string]any)
		message string
	}{
		{
			name:    "missing customer",
			mutate:  func(b map[string]any) { b["customerId"] = "" },
			message: "Customer ID is required",
		},
		{
			name:    "no items",
			mutate:  func(b map[string]any) { b["items"] = []map[string]any{} },
			message: "Order must contain at least one item",
		},
		{
			name:    "zero total",
			mutate:  func(b map[string]any) { b["totalAmount"] = 0 },
			message: "Valid total amount is required",
		},
		{
			name:    "negative total",
			mutate:  func(b map[string]any) { b["totalAmount"] = -5 },
			message: "Valid total amount is required",
		},
		{
			name: "item without product",
			mutate: func(b map[string]any) {
				b["items"] = []map[string]any{{"quantity": 1, "unitPrice": 10}}
			},
			message: "every item needs a productId",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orders := &mockOrderStore{}
			router := newTestRouter(nil, orders, nil)

			body := validOrderBody()
			tc.mutate(body)
			rec := doRequest(t, router, http.MethodPost, "/orders", "", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.message, decodeBody(t, rec)["message"])
			assert.Nil(t, orders.created)
		})
	}
}

func TestCreateOrder_CoercesItems(t *testing.T) {
	orders := &mockOrderStore{}
	router := newTestRouter(nil, orders, nil)

	body := validOrderBody()
	body["items"] = []map[string]any{
		{"productId": "A", "quantity": 0, "unitPrice": 50},
	}
	rec := doRequest(t, router, http.MethodPost, "/orders", "", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, orders.created.Items, 1)
	assert.Equal(t, 1, orders.created.Items[0].Quantity)
	assert.Equal(t, 50.0, orders.created.Items[0].UnitPrice)
}

func TestGetOrder(t *testing.T) {
	orders := &mockOrderStore{order: &domain.Order{
		ID:         "ord-1",
		CustomerID: "7",
		Status:     domain.OrderStatusPending,
		Items:      []domain.OrderItem{{OrderID: "ord-1", ProductID: "A", Quantity: 2, UnitPrice: 90}},
	}}
	router := newTestRouter(nil, orders, nil)

	rec := doRequest(t, router, http.MethodGet, "/orders/ord-1", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Contains(t, body, "order")
	items, ok := body["items"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestGetOrder_NotFound(t *testing.T) {
	orders := &mockOrderStore{getErr: repository.ErrOrderNotFound}
	router := newTestRouter(nil, orders, nil)

	rec := doRequest(t, router, http.MethodGet, "/orders/missing", "", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOrdersByCustomer(t *testing.T) {
	orders := &mockOrderStore{orders: []*domain.Order{{ID: "b"}, {ID: "a"}}}
	router := newTestRouter(nil, orders, nil)

	rec := doRequest(t, router, http.MethodGet, "/orders/customer/7", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["count"])
}

func TestUpdateOrderStatus(t *testing.T) {
	orders := &mockOrderStore{}
	router := newTestRouter(nil, orders, nil)

	rec := doRequest(t, router, http.MethodPatch, "/orders/ord-1/status", "", map[string]string{"status": "Processing"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.OrderStatusProcessing, orders.updatedTo)
}

func TestUpdateOrderStatus_UnknownStatus(t *testing.T) {
	orders := &mockOrderStore{}
	router := newTestRouter(nil, orders, nil)

	rec := doRequest(t, router, http.MethodPatch, "/orders/ord-1/status", "", map[string]string{"status": "teleported"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, orders.updatedTo)
}

func TestUpdateOrderStatus_IllegalTransition(t *testing.T) {
	orders := &mockOrderStore{updateErr: fmt.Errorf("update: %w", repository.ErrIllegalTransition)}
	router := newTestRouter(nil, orders, nil)

	rec := doRequest(t, router, http.MethodPatch, "/orders/ord-1/status", "", map[string]string{"status": "delivered"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	orders := &mockOrderStore{updateErr: repository.ErrOrderNotFound}
	router := newTestRouter(nil, orders, nil)

	rec := doRequest(t, router, http.MethodPatch, "/orders/missing/status", "", map[string]string{"status": "processing"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
