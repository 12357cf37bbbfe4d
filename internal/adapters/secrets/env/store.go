// Package env resolves secrets from environment variables. The store is
// read-only; writes belong to a fallback backend.
package env

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/iflb/neji-tutti-client/internal/domain"
	"github.com/iflb/neji-tutti-client/internal/ports"
)

var ErrReadOnly = errors.New("environment secret store is read-only")

type Store struct {
	prefix string
}

var _ ports.SecretStore = (*Store)(nil)

// NewStore maps secret keys to environment variables under prefix, e.g. with
// prefix "NJT" the key "market.password" resolves from NJT_MARKET_PASSWORD.
func NewStore(prefix string) *Store {
	return &Store{prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, err := s.varName(key)
	if err != nil {
		return "", err
	}

	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return "", fmt.Errorf("environment variable %s: %w", name, domain.ErrSecretNotFound)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrReadOnly
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrReadOnly
}

func (s *Store) varName(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errors.New("secret key is empty")
	}

	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, trimmed)

	if s.prefix == "" {
		return mapped, nil
	}
	return s.prefix + "_" + mapped, nil
}
