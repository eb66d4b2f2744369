package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/repository"
)

func seedOwner(t *testing.T, s *Store) *model.User {
	t.Helper()
	u := &model.User{Email: "ana@example.com"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestCopiesDoNotAliasState(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedOwner(t, s)

	m := &model.Memory{UserID: u.ID, Type: model.MemoryTypeText, Content: "x", People: []string{"Maria"}}
	require.NoError(t, s.CreateMemory(ctx, m))
	m.People[0] = "changed"

	got, err := s.GetMemory(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Maria"}, got.People)

	got.People[0] = "changed again"
	again, _ := s.GetMemory(ctx, m.ID)
	assert.Equal(t, []string{"Maria"}, again.People)
}

func TestListMemories_FiltersAndOrders(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedOwner(t, s)

	day := func(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }
	a := &model.Memory{UserID: u.ID, Type: model.MemoryTypeText, Content: "Ski trip", People: []string{"Maria"}, Date: day(1)}
	b := &model.Memory{UserID: u.ID, Type: model.MemoryTypeText, Content: "Coffee", Location: "Lisbon", Date: day(2)}
	for _, m := range []*model.Memory{a, b} {
		require.NoError(t, s.CreateMemory(ctx, m))
	}

	all, err := s.ListMemories(ctx, repository.MemoryFilter{UserID: u.ID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID)

	byPerson, _ := s.ListMemories(ctx, repository.MemoryFilter{UserID: u.ID, People: []string{"maria"}})
	require.Len(t, byPerson, 1)
	assert.Equal(t, a.ID, byPerson[0].ID)

	byLocation, _ := s.ListMemories(ctx, repository.MemoryFilter{UserID: u.ID, Location: "lis"})
	require.Len(t, byLocation, 1)
	assert.Equal(t, b.ID, byLocation[0].ID)

	paged, _ := s.ListMemories(ctx, repository.MemoryFilter{UserID: u.ID, ListOptions: repository.ListOptions{Offset: 5}})
	assert.Empty(t, paged)
}

func TestSetShareToken_Atomic(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedOwner(t, s)
	m := &model.Memory{UserID: u.ID, Type: model.MemoryTypeText, Content: "x"}
	require.NoError(t, s.CreateMemory(ctx, m))

	first, err := s.SetShareToken(ctx, m.ID, "one")
	require.NoError(t, err)
	assert.Equal(t, model.VisibilityShared, first.Visibility)
	assert.True(t, first.IsPublic)

	_, err = s.SetShareToken(ctx, m.ID, "two")
	require.NoError(t, err)

	_, err = s.GetMemoryByShareToken(ctx, "one")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	private, err := s.SetVisibility(ctx, m.ID, model.VisibilityPrivate)
	require.NoError(t, err)
	assert.False(t, private.IsPublic)
}

func TestShares_DedupeAndCascade(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedOwner(t, s)
	m := &model.Memory{UserID: u.ID, Type: model.MemoryTypeText, Content: "x"}
	require.NoError(t, s.CreateMemory(ctx, m))

	for range 2 {
		require.NoError(t, s.CreateShare(ctx, &model.MemoryShare{
			MemoryID: m.ID, SharedWithEmail: "bob@example.com", SharedByUserID: u.ID, Permission: model.PermissionView,
		}))
	}

	shared, err := s.ListMemoriesSharedWith(ctx, "BOB@example.com")
	require.NoError(t, err)
	assert.Len(t, shared, 1)

	byMemory, _ := s.ListSharesByMemory(ctx, m.ID)
	assert.Len(t, byMemory, 2)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	byEmail, _ := s.ListSharesByEmail(ctx, "bob@example.com")
	assert.Empty(t, byEmail)

	removed, err := s.DeleteShare(ctx, byMemory[0].ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := New()
	seedOwner(t, s)
	err := s.CreateUser(context.Background(), &model.User{Email: "ANA@example.com"})
	assert.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestPrompts_Seeded(t *testing.T) {
	s := New()
	ctx := context.Background()

	all, _ := s.ListPrompts(ctx, "")
	assert.Len(t, all, len(repository.DefaultPrompts))

	cats, _ := s.ListPromptCategories(ctx)
	assert.IsIncreasing(t, cats)

	p, err := s.RandomPrompt(ctx)
	require.NoError(t, err)
	assert.True(t, p.IsActive)
}
