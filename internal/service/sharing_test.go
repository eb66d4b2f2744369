package service

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/policy"
	"github.com/sakif/memory-journal/internal/repository/memstore"
	"github.com/sakif/memory-journal/internal/validate"
)

type sharingFixture struct {
	store    *memstore.Store
	sharing  *SharingService
	memories *MemoryService
	memory   *model.Memory
}

// newSharingFixture stores one private memory owned by u1.
func newSharingFixture(t *testing.T) *sharingFixture {
	t.Helper()
	store := memstore.New()
	seedUser(t, store, "u1", "owner@example.com")
	seedUser(t, store, "u2", "friend@example.com")

	memories := NewMemoryService(store, nil, nil, discardLogger())
	m, err := memories.Create(context.Background(), CreateMemoryInput{UserID: "u1", Content: "Sunset over the lake"})
	require.NoError(t, err)

	return &sharingFixture{
		store:    store,
		sharing:  NewSharingService(store, validate.New(), "https://journal.example.com/", discardLogger()),
		memories: memories,
		memory:   m,
	}
}

func TestGeneratePublicLink(t *testing.T) {
	f := newSharingFixture(t)
	ctx := context.Background()

	link, err := f.sharing.GeneratePublicLink(ctx, policy.Owner("u1"), f.memory.ID)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(link.Token)
	require.NoError(t, err)
	assert.Len(t, raw, tokenBytes)
	assert.Equal(t, "https://journal.example.com/shared/"+link.Token, link.URL)

	m, err := f.sharing.ResolveByToken(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, f.memory.ID, m.ID)
	assert.True(t, m.IsPublic)
	assert.Equal(t, model.VisibilityShared, m.Visibility)
}

func TestGeneratePublicLink_RegenerationInvalidatesOldToken(t *testing.T) {
	f := newSharingFixture(t)
	ctx := context.Background()

	first, err := f.sharing.GeneratePublicLink(ctx, policy.Owner("u1"), f.memory.ID)
	require.NoError(t, err)
	second, err := f.sharing.GeneratePublicLink(ctx, policy.Owner("u1"), f.memory.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	_, err = f.sharing.ResolveByToken(ctx, first.Token)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = f.sharing.ResolveByToken(ctx, second.Token)
	assert.NoError(t, err)
}

func TestGeneratePublicLink_OwnerOnly(t *testing.T) {
	f := newSharingFixture(t)
	ctx := context.Background()

	_, err := f.sharing.GeneratePublicLink(ctx, policy.Owner("u2"), f.memory.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.sharing.GeneratePublicLink(ctx, policy.Anonymous(), f.memory.ID)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	_, err = f.sharing.GeneratePublicLink(ctx, policy.Owner("u1"), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestResolveByToken_PrivateClosesLink(t *testing.T) {
	f := newSharingFixture(t)
	ctx := context.Background()

	link, err := f.sharing.GeneratePublicLink(ctx, policy.Owner("u1"), f.memory.ID)
	require.NoError(t, err)

	m, err := f.sharing.SetVisibility(ctx, policy.Owner("u1"), f.memory.ID, model.VisibilityPrivate)
	require.NoError(t, err)
	assert.False(t, m.IsPublic)

	_, err = f.sharing.ResolveByToken(ctx, link.Token)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// Making it shared again does not reopen the old link.
	_, err = f.sharing.SetVisibility(ctx, policy.Owner("u1"), f.memory.ID, model.VisibilityShared)
	require.NoError(t, err)
	_, err = f.sharing.ResolveByToken(ctx, link.Token)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestResolveByToken_Unknown(t *testing.T) {
	f := newSharingFixture(t)

	for _, token := range []string{"", "   ", "no-such-token"} {
		_, err := f.sharing.ResolveByToken(context.Background(), token)
		assert.ErrorIs(t, err, apperror.ErrNotFound, "token %q", token)
	}
}

func TestShareWithUser_ShareAndRevoke(t *testing.T) {
	f := newSharingFixture(t)
	ctx := context.Background()
	owner := policy.Owner("u1")

	share, err := f.sharing.ShareWithUser(ctx, owner, f.memory.ID, " Friend@Example.com ", "")
	require.NoError(t, err)
	assert.Equal(t, "friend@example.com", share.SharedWithEmail)
	assert.Equal(t, "u2", share.SharedWithUserID)
	assert.Equal(t, model.PermissionView, share.Permission)

	m, err := f.store.GetMemory(ctx, f.memory.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VisibilityShared, m.Visibility)

	shared, err := f.sharing.ListSharedWithEmail(ctx, "friend@example.com")
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, f.memory.ID, shared[0].ID)

	_, err = f.memories.Get(ctx, f.memory.ID, policy.EmailIdentity("friend@example.com"))
	assert.NoError(t, err)

	removed, err := f.sharing.Revoke(ctx, owner, share.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	shared, err = f.sharing.ListSharedWithEmail(ctx, "friend@example.com")
	require.NoError(t, err)
	assert.Empty(t, shared)

	_, err = f.memories.Get(ctx, f.memory.ID, policy.EmailIdentity("friend@example.com"))
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	removed, err = f.sharing.Revoke(ctx, owner, share.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestShareWithUser_DuplicateGrantsRevokedSeparately(t *testing.T) {
	f := newSharingFixture(t)
	ctx := context.Background()
	owner := policy.Owner("u1")

	a, err := f.sharing.ShareWithUser(ctx, owner, f.memory.ID, "pal@example.com", model.PermissionView)
	require.NoError(t, err)
	b, err := f.sharing.ShareWithUser(ctx, owner, f.memory.ID, "pal@example.com", model.PermissionEdit)
	require.NoError(t, err)
	assert.Empty(t, a.SharedWithUserID)

	shared, err := f.sharing.ListSharedWithEmail(ctx, "pal@example.com")
	require.NoError(t, err)
	assert.Len(t, shared, 1)

	_, err = f.sharing.Revoke(ctx, owner, a.ID)
	require.NoError(t, err)
	shared, err = f.sharing.ListSharedWithEmail(ctx, "pal@example.com")
	require.NoError(t, err)
	assert.Len(t, shared, 1, "second grant still stands")

	_, err = f.sharing.Revoke(ctx, owner, b.ID)
	require.NoError(t, err)
	shared, err = f.sharing.ListSharedWithEmail(ctx, "pal@example.com")
	require.NoError(t, err)
	assert.Empty(t, shared)
}

func TestShareWithUser_Validation(t *testing.T) {
	f := newSharingFixture(t)
	ctx := context.Background()

	_, err := f.sharing.ShareWithUser(ctx, policy.Owner("u1"), f.memory.ID, "not-an-email", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.sharing.ShareWithUser(ctx, policy.Owner("u1"), f.memory.ID, "a@example.com", "admin")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.sharing.ShareWithUser(ctx, policy.Owner("u2"), f.memory.ID, "a@example.com", "")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestListSharedWithEmail_HidesPrivate(t *testing.T) {
	f := newSharingFixture(t)
	ctx := context.Background()

	_, err := f.sharing.ShareWithUser(ctx, policy.Owner("u1"), f.memory.ID, "friend@example.com", "")
	require.NoError(t, err)
	_, err = f.sharing.SetVisibility(ctx, policy.Owner("u1"), f.memory.ID, model.VisibilityPrivate)
	require.NoError(t, err)

	shared, err := f.sharing.ListSharedWithEmail(ctx, "friend@example.com")
	require.NoError(t, err)
	assert.Empty(t, shared)
}

func TestRevoke_OnlyOwnerOrGranter(t *testing.T) {
	f := newSharingFixture(t)
	ctx := context.Background()

	share, err := f.sharing.ShareWithUser(ctx, policy.Owner("u1"), f.memory.ID, "friend@example.com", "")
	require.NoError(t, err)

	_, err = f.sharing.Revoke(ctx, policy.Owner("u2"), share.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	removed, err := f.sharing.Revoke(ctx, policy.Anonymous(), "missing")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSetVisibility(t *testing.T) {
	f := newSharingFixture(t)
	ctx := context.Background()

	m, err := f.sharing.SetVisibility(ctx, policy.Owner("u1"), f.memory.ID, model.VisibilityPublic)
	require.NoError(t, err)
	assert.Equal(t, model.VisibilityPublic, m.Visibility)

	_, err = f.memories.Get(ctx, f.memory.ID, policy.Anonymous())
	assert.NoError(t, err)

	_, err = f.sharing.SetVisibility(ctx, policy.Owner("u1"), f.memory.ID, "everyone")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = f.sharing.SetVisibility(ctx, policy.Owner("u2"), f.memory.ID, model.VisibilityPrivate)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}
