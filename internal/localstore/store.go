// Package localstore persists small named slots of data for a single device,
// one file per slot under a state directory. It is the durable backing for
// the cart record and the cached credentials.
package localstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrNotFound = errors.New("slot not found")

type Store struct {
	dir string
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Get(slot string) ([]byte, error) {
	data, err := os.ReadFile(s.path(slot))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %s: %w", slot, err)
	}
	return data, nil
}

// Set writes the slot atomically: a torn write must never leave a
// half-serialized record behind for the next Get to choke on.
func (s *Store) Set(slot string, data []byte) error {
	tmp := s.path(slot) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write slot %s: %w", slot, err)
	}
	if err := os.Rename(tmp, s.path(slot)); err != nil {
		return fmt.Errorf("commit slot %s: %w", slot, err)
	}
	return nil
}

func (s *Store) Delete(slot string) error {
	err := os.Remove(s.path(slot))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}

func (s *Store) path(slot string) string {
	return filepath.Join(s.dir, slot+".json")
}
