package sqldb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/repository"
)

// newPostgresDB starts a throwaway PostgreSQL container. Skipped with -short
// or when no Docker daemon is reachable.
func newPostgresDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("journal"),
		postgres.WithUsername("journal"),
		postgres.WithPassword("journal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgres_MemoryAndShareQueries(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()

	owner := &model.User{Email: "ana@example.com"}
	require.NoError(t, db.CreateUser(ctx, owner))
	err := db.CreateUser(ctx, &model.User{Email: "ana@example.com"})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)

	m := &model.Memory{
		UserID:  owner.ID,
		Type:    model.MemoryTypeText,
		Content: "Skiing in the Alps",
		People:  []string{"Maria"},
		Date:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.CreateMemory(ctx, m))

	got, err := db.ListMemories(ctx, repository.MemoryFilter{UserID: owner.ID, Search: "ALPS", People: []string{"maria"}})
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID}, ids(got))

	linked, err := db.SetShareToken(ctx, m.ID, "tok")
	require.NoError(t, err)
	assert.Equal(t, model.VisibilityShared, linked.Visibility)
	assert.True(t, linked.IsPublic)

	require.NoError(t, db.CreateShare(ctx, &model.MemoryShare{
		MemoryID: m.ID, SharedWithEmail: "bob@example.com", SharedByUserID: owner.ID, Permission: model.PermissionView,
	}))
	shared, err := db.ListMemoriesSharedWith(ctx, "BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID}, ids(shared))

	categories, err := db.ListPromptCategories(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, categories)
}
