package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricing_catalog/internal/shared"
)

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "pricing.db")

	db, repo, err := Open(ctx, shared.Config{StoreDriver: "sqlite", SQLitePath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.Same(t, db, repo.DB())

	_, err = db.Exec(`INSERT INTO users (email) VALUES ('a@example.com')`)
	require.NoError(t, err)
	cs, err := repo.ListCities(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, _, err := Open(context.Background(), shared.Config{StoreDriver: "oracle"})
	assert.ErrorContains(t, err, "unknown store driver")
}
