// Package credentials stores the per-user account credential handle in the
// operating system keyring. Only the opaque handle is kept here; token
// acquisition and refresh happen outside this process.
package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/Chagai33/birthday-sync/internal/config"
)

// Store reads and writes credential handles under a keyring service name.
type Store struct {
	Service string
}

// NewStore returns a Store bound to the application's keyring service.
func NewStore() *Store {
	return &Store{Service: config.KeyringService}
}

func (s *Store) service() string {
	if s.Service == "" {
		return config.KeyringService
	}
	return s.Service
}

// Save persists the credential handle for a user.
func (s *Store) Save(userID, handle string) error {
	if err := keyring.Set(s.service(), userID, handle); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCredentialSave, err)
	}
	return nil
}

// Load returns the stored handle, or an empty string when none exists.
func (s *Store) Load(userID string) (string, error) {
	handle, err := keyring.Get(s.service(), userID)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCredentialLoad, err)
	}
	return handle, nil
}

// Clear removes the stored handle. Clearing a missing handle is a no-op.
func (s *Store) Clear(userID string) error {
	err := keyring.Delete(s.service(), userID)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%s: %w", config.ErrCredentialClear, err)
	}
	return nil
}
