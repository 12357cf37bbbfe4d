package ports

import "context"

// SecretStore resolves credentials for the CLI. Stores backed by read-only
// sources return domain.ErrSecretNotFound from Get and reject Put/Delete.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
