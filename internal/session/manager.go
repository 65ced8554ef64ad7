// Package session resolves whether this device currently has a trusted
// authenticated identity, combining locally cached credentials with
// authoritative server-side verification.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/localstore"
)

const (
	tokenSlot = "auth_token"
	userSlot  = "user_profile"
)

// API is the slice of the storefront client the manager needs.
type API interface {
	Login(ctx context.Context, email, password string) (*domain.SessionIdentity, error)
	Logout(ctx context.Context, token string) error
	Identity(ctx context.Context, token string) (*domain.User, error)
}

type Manager struct {
	slots *localstore.Store
	api   API
	sf    singleflight.Group
}

func NewManager(slots *localstore.Store, api API) *Manager {
	return &Manager{slots: slots, api: api}
}

// Token returns the cached bearer token, or "" when the device has none.
func (m *Manager) Token() string {
	data, err := m.slots.Get(tokenSlot)
	if err != nil {
		return ""
	}
	return string(data)
}

// Current returns the cached identity. Token and user are exposed as a unit:
// if either half is missing the session counts as anonymous.
func (m *Manager) Current() *domain.SessionIdentity {
	token := m.Token()
	if token == "" {
		return nil
	}
	user, ok := m.cachedUser()
	if !ok {
		return nil
	}
	return &domain.SessionIdentity{Token: token, User: user}
}

// CheckAuthStatus reports whether the device holds a valid identity.
//
// With force false and a cached token+user pair, the cache is trusted and no
// network call is made. With force true (or a token without a cached user)
// the server verifies the token; any rejection or failure purges the cached
// credentials so a revoked token can never linger. Concurrent verifications
// coalesce into one request.
func (m *Manager) CheckAuthStatus(ctx context.Context, force bool) bool {
	token := m.Token()
	if token == "" {
		return false
	}

	if !force {
		if _, ok := m.cachedUser(); ok {
			return true
		}
	}

	_, err, _ := m.sf.Do("verify", func() (interface{}, error) {
		user, err := m.api.Identity(ctx, token)
		if err != nil {
			return nil, err
		}
		m.cacheUser(*user)
		return user, nil
	})
	if err != nil {
		log.Printf("session: verification failed, purging credentials: %v", err)
		m.purge()
		return false
	}
	return true
}

// Login sends credentials once and caches the returned identity. Errors
// propagate untouched; the caller decides the UX.
func (m *Manager) Login(ctx context.Context, email, password string) (*domain.SessionIdentity, error) {
	identity, err := m.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := m.slots.Set(tokenSlot, []byte(identity.Token)); err != nil {
		return nil, err
	}
	m.cacheUser(identity.User)
	return identity, nil
}

// Logout notifies the server best-effort, then unconditionally purges local
// credentials. The ordering guarantees local state ends clean even when the
// network call fails.
func (m *Manager) Logout(ctx context.Context) {
	if token := m.Token(); token != "" {
		if err := m.api.Logout(ctx, token); err != nil {
			log.Printf("session: logout notification failed: %v", err)
		}
	}
	m.purge()
}

func (m *Manager) cachedUser() (domain.User, bool) {
	data, err := m.slots.Get(userSlot)
	if err != nil {
		if !errors.Is(err, localstore.ErrNotFound) {
			log.Printf("session: read cached user failed: %v", err)
		}
		return domain.User{}, false
	}
	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		log.Printf("session: corrupt cached user, dropping: %v", err)
		_ = m.slots.Delete(userSlot)
		return domain.User{}, false
	}
	return user, true
}

func (m *Manager) cacheUser(user domain.User) {
	data, err := json.Marshal(user)
	if err != nil {
		log.Printf("session: marshal user failed: %v", err)
		return
	}
	if err := m.slots.Set(userSlot, data); err != nil {
		log.Printf("session: cache user failed: %v", err)
	}
}

func (m *Manager) purge() {
	if err := m.slots.Delete(tokenSlot); err != nil {
		log.Printf("session: purge token failed: %v", err)
	}
	if err := m.slots.Delete(userSlot); err != nil {
		log.Printf("session: purge user failed: %v", err)
	}
}
