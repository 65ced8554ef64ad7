// Package tokens issues and resolves the opaque bearer tokens the storefront
// API hands out on login.
package tokens

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
)

type Store interface {
	Issue(ctx context.Context, user domain.User) (string, error)
	Resolve(ctx context.Context, token string) (*domain.User, error)
	Revoke(ctx context.Context, token string) error
}

var ErrTokenNotFound = errors.New("token not found")
