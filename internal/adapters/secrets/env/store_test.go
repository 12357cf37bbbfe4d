package env

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iflb/neji-tutti-client/internal/domain"
)

func TestGetMapsKeyToPrefixedVariable(t *testing.T) {
	t.Setenv("NJT_MARKET_PASSWORD", "requester1")

	store := NewStore("NJT")
	value, err := store.Get(context.Background(), "market.password")
	require.NoError(t, err)
	assert.Equal(t, "requester1", value)
}

func TestGetMissingVariableIsNotFound(t *testing.T) {
	t.Setenv("NJT_WORKS_PASSWORD", "")

	store := NewStore("NJT")
	_, err := store.Get(context.Background(), "works.password")
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestGetRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	store := NewStore("NJT")
	_, err := store.Get(context.Background(), "  ")
	require.Error(t, err)
}

func TestWritesAreRejected(t *testing.T) {
	t.Parallel()

	store := NewStore("NJT")
	require.ErrorIs(t, store.Put(context.Background(), "works.password", "x"), ErrReadOnly)
	require.ErrorIs(t, store.Delete(context.Background(), "works.password"), ErrReadOnly)
}
