// Package cartstore keeps the durable single-device copy of the shopping
// cart. Every cart mutation is written through here; an abandoned record
// expires after two days.
package cartstore

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/localstore"
)

const cartSlot = "cart"

// DefaultTTL bounds how long an abandoned cart survives on the device.
const DefaultTTL = 48 * time.Hour

type record struct {
	Cart      domain.Cart `json:"cart"`
	ExpiresAt int64       `json:"expiresAt"` // epoch millis
}

type Store struct {
	slots *localstore.Store
	ttl   time.Duration
	now   func() time.Time
}

func New(slots *localstore.Store) *Store {
	return &Store{slots: slots, ttl: DefaultTTL, now: time.Now}
}

// Load returns the persisted cart. A missing, unparsable or expired record
// degrades to an empty cart and the slot is dropped, so one bad write can
// never wedge the store. Load never fails.
func (s *Store) Load() domain.Cart {
	data, err := s.slots.Get(cartSlot)
	if errors.Is(err, localstore.ErrNotFound) {
		return domain.Cart{}
	}
	if err != nil {
		log.Printf("cartstore: load failed, starting empty: %v", err)
		s.Clear()
		return domain.Cart{}
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Printf("cartstore: corrupt cart record, starting empty: %v", err)
		s.Clear()
		return domain.Cart{}
	}

	if s.now().UnixMilli() > rec.ExpiresAt {
		s.Clear()
		return domain.Cart{}
	}
	return rec.Cart
}

// Save overwrites the record with a fresh expiration. Failures are logged
// and swallowed: cart state is recoverable, losing a write is cheaper than
// surfacing storage errors into every mutation path.
func (s *Store) Save(cart domain.Cart) {
	rec := record{
		Cart:      cart,
		ExpiresAt: s.now().Add(s.ttl).UnixMilli(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		log.Printf("cartstore: marshal cart failed: %v", err)
		return
	}
	if err := s.slots.Set(cartSlot, data); err != nil {
		log.Printf("cartstore: save cart failed: %v", err)
	}
}

func (s *Store) Clear() {
	if err := s.slots.Delete(cartSlot); err != nil {
		log.Printf("cartstore: clear cart failed: %v", err)
	}
}
