// Package cart holds the client-side cart controller: in-memory cart state
// mirrored to the persistent store, plus the checkout lifecycle.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/fjod/go_storefront/internal/api"
	"github.com/fjod/go_storefront/internal/domain"
)

// User-facing checkout messages.
const (
	MsgEmptyCart     = "Your cart is empty"
	MsgLoginRequired = "Please login before completing your purchase"
	MsgOrderFailed   = "Failed to place order"
)

// ErrCheckoutInFlight guards the one hard mutual-exclusion requirement: at
// most one checkout submission per cart at a time.
var ErrCheckoutInFlight = errors.New("checkout already in progress")

// ValidationError is a checkout failure caught before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Gateway submits the assembled order. Implemented by api.Client.
type Gateway interface {
	SubmitOrder(ctx context.Context, token, customerID string, lines []domain.CartLine, total float64) (string, error)
}

// Sessions resolves the current identity. Implemented by session.Manager.
type Sessions interface {
	CheckAuthStatus(ctx context.Context, force bool) bool
	Current() *domain.SessionIdentity
}

// Persistence is the durable local cart store. Implemented by cartstore.Store.
type Persistence interface {
	Load() domain.Cart
	Save(cart domain.Cart)
	Clear()
}

type Config struct {
	// RequireAuth hard-blocks checkout without a verified identity. Off by
	// default: guests may check out under a "guest" customer identifier.
	RequireAuth bool
}

// Controller owns the cart and its checkout lifecycle. It is constructed
// once at application start and passed to consumers; every instance is
// isolated, so tests build their own.
type Controller struct {
	store    Persistence
	gateway  Gateway
	sessions Sessions
	cfg      Config

	mu          sync.Mutex // held across state reads/writes, never across I/O
	items       domain.Cart
	status      CheckoutStatus
	checkoutErr string
	lastOrderID string
}

func NewController(store Persistence, gateway Gateway, sessions Sessions, cfg Config) *Controller {
	c := &Controller{
		store:    store,
		gateway:  gateway,
		sessions: sessions,
		cfg:      cfg,
		status:   CheckoutIdle,
	}
	c.items = store.Load()
	return c
}

// AddItem puts a product in the cart. An existing line for the same product
// only gains quantity; its captured price fields are left as first written.
func (c *Controller) AddItem(line domain.CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.items.IndexOf(line.ProductID); i >= 0 {
		c.items[i].Quantity++
	} else {
		line.Quantity = 1
		if line.DiscountedUnitPrice == 0 {
			line.DiscountedUnitPrice = line.UnitPrice
		}
		c.items = append(c.items, line)
	}
	c.store.Save(c.items.Clone())
}

// UpdateQuantity sets a line's quantity, clamped to a minimum of one.
// Unknown product IDs are a no-op.
func (c *Controller) UpdateQuantity(productID string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.items.IndexOf(productID)
	if i < 0 {
		return
	}
	if quantity < 1 {
		quantity = 1
	}
	c.items[i].Quantity = quantity
	c.store.Save(c.items.Clone())
}

// RemoveItem drops a line outright. Unknown product IDs are a no-op.
func (c *Controller) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.items.IndexOf(productID)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.store.Save(c.items.Clone())
}

// Clear empties the cart and deletes the persisted record.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = domain.Cart{}
	c.store.Clear()
}

func (c *Controller) Items() domain.Cart {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Clone()
}

func (c *Controller) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Total()
}

func (c *Controller) Status() CheckoutStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// CheckoutError returns the user-facing message of the last failed checkout.
func (c *Controller) CheckoutError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkoutErr
}

// LastOrderID is the identifier of the most recent successful order.
func (c *Controller) LastOrderID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastOrderID
}

// Checkout converts the cart into a submitted order.
//
// Guards run before any network call: an empty cart fails immediately, and
// with RequireAuth set an unverified identity fails immediately (identity is
// verified with force, a stale token must never produce a guest-attributed
// order). On success the cart and its persisted record are cleared; on
// failure both are left untouched so the user can simply retry.
func (c *Controller) Checkout(ctx context.Context, customerID string) (string, error) {
	c.mu.Lock()
	if c.status == CheckoutSubmitting {
		c.mu.Unlock()
		return "", ErrCheckoutInFlight
	}
	if c.items.IsEmpty() {
		c.status = CheckoutFailed
		c.checkoutErr = MsgEmptyCart
		c.mu.Unlock()
		return "", &ValidationError{Message: MsgEmptyCart}
	}
	c.status = CheckoutSubmitting
	c.checkoutErr = ""
	lines := c.items.Clone()
	total := c.items.Total()
	c.mu.Unlock()

	if c.cfg.RequireAuth && !c.sessions.CheckAuthStatus(ctx, true) {
		c.fail(MsgLoginRequired)
		return "", &ValidationError{Message: MsgLoginRequired}
	}

	token := ""
	if identity := c.sessions.Current(); identity != nil {
		token = identity.Token
		customerID = strconv.FormatInt(identity.User.ID, 10)
	} else if customerID == "" {
		customerID = "guest"
	}

	orderID, err := c.gateway.SubmitOrder(ctx, token, customerID, lines, total)
	if err != nil {
		var rejected *api.RejectedError
		if errors.As(err, &rejected) && rejected.Message != "" {
			c.fail(rejected.Message)
		} else {
			c.fail(MsgOrderFailed)
		}
		return "", fmt.Errorf("submit order: %w", err)
	}

	c.mu.Lock()
	c.items = domain.Cart{}
	c.store.Clear()
	c.status = CheckoutSucceeded
	c.lastOrderID = orderID
	c.mu.Unlock()
	log.Printf("cart: order %s placed for customer %s", orderID, customerID)
	return orderID, nil
}

// ResetOrderStatus returns the checkout lifecycle to idle without touching
// cart contents. Called when the checkout view unmounts so a stale banner
// never reappears on revisit.
func (c *Controller) ResetOrderStatus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == CheckoutSubmitting {
		return
	}
	c.status = CheckoutIdle
	c.checkoutErr = ""
}

func (c *Controller) fail(message string) {
	c.mu.Lock()
	c.status = CheckoutFailed
	c.checkoutErr = message
	c.mu.Unlock()
}
