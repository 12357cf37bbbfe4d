// Package chain combines two secret stores: reads prefer the primary, writes
// land wherever accepts them.
package chain

import (
	"context"
	"errors"
	"fmt"

	envstore "github.com/iflb/neji-tutti-client/internal/adapters/secrets/env"
	filestore "github.com/iflb/neji-tutti-client/internal/adapters/secrets/file"
	"github.com/iflb/neji-tutti-client/internal/ports"
)

type Store struct {
	primary  ports.SecretStore
	fallback ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(primary, fallback ports.SecretStore) (*Store, error) {
	if primary == nil {
		return nil, errors.New("primary secret store is nil")
	}
	if fallback == nil {
		return nil, errors.New("fallback secret store is nil")
	}
	return &Store{primary: primary, fallback: fallback}, nil
}

// NewEnvFirstWithFileFallback resolves secrets from prefixed environment
// variables first and from per-key files under fileRoot second.
func NewEnvFirstWithFileFallback(prefix, fileRoot string) (*Store, error) {
	return NewStore(envstore.NewStore(prefix), filestore.NewStore(fileRoot))
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if shouldSkipFallback(err) {
		return "", err
	}

	fallbackValue, fallbackErr := s.fallback.Get(ctx, key)
	if fallbackErr == nil {
		return fallbackValue, nil
	}
	return "", fmt.Errorf("primary get failed: %w; fallback get failed: %w", err, fallbackErr)
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	err := s.primary.Put(ctx, key, value)
	if err == nil {
		return nil
	}
	if shouldSkipFallback(err) {
		return err
	}

	fallbackErr := s.fallback.Put(ctx, key, value)
	if fallbackErr == nil {
		return nil
	}
	return fmt.Errorf("primary put failed: %w; fallback put failed: %w", err, fallbackErr)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.primary.Delete(ctx, key)
	if err == nil {
		return s.fallback.Delete(ctx, key)
	}
	if shouldSkipFallback(err) {
		return err
	}
	return s.fallback.Delete(ctx, key)
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
