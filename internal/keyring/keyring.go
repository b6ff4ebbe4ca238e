// Package keyring stores the postgres connection string in the OS
// credential store, so the DSN never lands in a config file on disk.
package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/ashton-edakk/AI-Executive-Assistant/internal/constants"
)

var (
	ErrNotFound           = errors.New("no connection string stored in keyring")
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// GetConnectionString reads the stored postgres DSN.
func GetConnectionString() (string, error) {
	dsn, err := keyring.Get(constants.AppName, constants.DefaultKeyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return dsn, nil
}

// SetConnectionString stores the postgres DSN, replacing any prior one.
func SetConnectionString(dsn string) error {
	if dsn == "" {
		return errors.New("connection string cannot be empty")
	}
	if err := keyring.Set(constants.AppName, constants.DefaultKeyringUser, dsn); err != nil {
		return fmt.Errorf("failed to store connection string: %w", err)
	}
	return nil
}

// DeleteConnectionString removes the stored DSN, reverting the app to
// the local sqlite backend.
func DeleteConnectionString() error {
	if err := keyring.Delete(constants.AppName, constants.DefaultKeyringUser); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete connection string: %w", err)
	}
	return nil
}

// IsAvailable probes the OS keyring with a throwaway read. A not-found
// answer still means the keyring itself works.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "availability-probe")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
