package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/policy"
)

// tokenBytes of crypto/rand gives 256 bits per share token.
const tokenBytes = 32

// EmailValidator checks grantee addresses. *validate.Validator implements it.
type EmailValidator interface {
	Email(s string) error
}

// SharingService is the ledger of who can see a memory: public links and
// per-email grants.
type SharingService struct {
	store   MemoryStore
	emails  EmailValidator
	baseURL string
	logger  *slog.Logger
}

// NewSharingService builds the ledger. baseURL prefixes share links
// ("https://journal.example.com"); empty gives relative links.
func NewSharingService(store MemoryStore, emails EmailValidator, baseURL string, logger *slog.Logger) *SharingService {
	return &SharingService{
		store:   store,
		emails:  emails,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

type ShareLink struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// GeneratePublicLink issues a fresh token for the owner's memory. The old
// token, if any, stops resolving at the same moment.
func (s *SharingService) GeneratePublicLink(ctx context.Context, actor policy.Viewer, memoryID string) (*ShareLink, error) {
	if _, err := s.ownedMemory(ctx, actor, memoryID); err != nil {
		return nil, err
	}

	token, err := newShareToken()
	if err != nil {
		return nil, err
	}
	if _, err := s.store.SetShareToken(ctx, memoryID, token); err != nil {
		return nil, fmt.Errorf("service/sharing: storing share token: %w", err)
	}

	s.logger.Info("public link generated", slog.String("memory_id", memoryID))
	return &ShareLink{Token: token, URL: s.baseURL + "/shared/" + token}, nil
}

// ResolveByToken returns the memory behind an open link. Unknown tokens,
// closed links and private memories all look the same: NotFound.
func (s *SharingService) ResolveByToken(ctx context.Context, token string) (*model.Memory, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperror.NotFound("shared memory", token)
	}
	m, err := s.store.GetMemoryByShareToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(m, policy.TokenHolder(token), nil) {
		return nil, apperror.NotFound("shared memory", token)
	}
	return m, nil
}

// ShareWithUser grants email access to the owner's memory. An empty
// permission means view. Duplicate grants are allowed and each is revoked
// separately.
func (s *SharingService) ShareWithUser(ctx context.Context, actor policy.Viewer, memoryID, email string, permission model.Permission) (*model.MemoryShare, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.emails.Email(email); err != nil {
		return nil, err
	}
	if permission == "" {
		permission = model.PermissionView
	}
	if !permission.Valid() {
		return nil, apperror.ValidationFailed("permission", "permission must be one of: view, edit")
	}

	m, err := s.ownedMemory(ctx, actor, memoryID)
	if err != nil {
		return nil, err
	}

	share := &model.MemoryShare{
		MemoryID:        memoryID,
		SharedWithEmail: email,
		SharedByUserID:  actor.UserID,
		Permission:      permission,
	}
	if u, err := s.store.GetUserByEmail(ctx, email); err == nil {
		share.SharedWithUserID = u.ID
	}

	if m.Visibility == model.VisibilityPrivate {
		if _, err := s.store.SetVisibility(ctx, memoryID, model.VisibilityShared); err != nil {
			return nil, fmt.Errorf("service/sharing: promoting memory to shared: %w", err)
		}
	}
	if err := s.store.CreateShare(ctx, share); err != nil {
		return nil, fmt.Errorf("service/sharing: creating share: %w", err)
	}

	s.logger.Info("memory shared",
		slog.String("memory_id", memoryID),
		slog.String("share_id", share.ID),
		slog.String("permission", string(permission)),
	)
	return share, nil
}

// ListShares returns every grant on the owner's memory.
func (s *SharingService) ListShares(ctx context.Context, actor policy.Viewer, memoryID string) ([]model.MemoryShare, error) {
	if _, err := s.ownedMemory(ctx, actor, memoryID); err != nil {
		return nil, err
	}
	shares, err := s.store.ListSharesByMemory(ctx, memoryID)
	if err != nil {
		return nil, fmt.Errorf("service/sharing: listing shares: %w", err)
	}
	return shares, nil
}

// ListSharedWithEmail returns each memory granted to email once, newest
// first, minus any the owner has since made private.
func (s *SharingService) ListSharedWithEmail(ctx context.Context, email string) ([]model.Memory, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.emails.Email(email); err != nil {
		return nil, err
	}

	memories, err := s.store.ListMemoriesSharedWith(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/sharing: listing memories shared with %s: %w", email, err)
	}
	grants, err := s.store.ListSharesByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/sharing: listing grants for %s: %w", email, err)
	}

	viewer := policy.EmailIdentity(email)
	visible := make([]model.Memory, 0, len(memories))
	for i := range memories {
		if policy.CanView(&memories[i], viewer, grants) {
			visible = append(visible, memories[i])
		}
	}
	return visible, nil
}

// Revoke deletes a grant. A missing id reports false and no error. Only the
// granter or the memory's owner may revoke.
func (s *SharingService) Revoke(ctx context.Context, actor policy.Viewer, shareID string) (bool, error) {
	share, err := s.store.GetShare(ctx, shareID)
	if apperror.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("service/sharing: loading share %s: %w", shareID, err)
	}

	if actor.UserID != share.SharedByUserID {
		m, err := s.store.GetMemory(ctx, share.MemoryID)
		if err != nil && !apperror.IsNotFound(err) {
			return false, fmt.Errorf("service/sharing: loading memory %s: %w", share.MemoryID, err)
		}
		if !policy.IsOwner(m, actor) {
			return false, denied(actor, "only the owner or the person who shared can revoke access")
		}
	}

	removed, err := s.store.DeleteShare(ctx, shareID)
	if err != nil {
		return false, fmt.Errorf("service/sharing: deleting share %s: %w", shareID, err)
	}
	if removed {
		s.logger.Info("share revoked", slog.String("share_id", shareID), slog.String("memory_id", share.MemoryID))
	}
	return removed, nil
}

// SetVisibility changes the owner's memory's access level. Private also
// closes the public link.
func (s *SharingService) SetVisibility(ctx context.Context, actor policy.Viewer, memoryID string, visibility model.Visibility) (*model.Memory, error) {
	if !visibility.Valid() {
		return nil, apperror.ValidationFailed("visibility", "visibility must be one of: private, shared, public")
	}
	if _, err := s.ownedMemory(ctx, actor, memoryID); err != nil {
		return nil, err
	}
	m, err := s.store.SetVisibility(ctx, memoryID, visibility)
	if err != nil {
		return nil, fmt.Errorf("service/sharing: setting visibility: %w", err)
	}
	return m, nil
}

func (s *SharingService) ownedMemory(ctx context.Context, actor policy.Viewer, memoryID string) (*model.Memory, error) {
	if strings.TrimSpace(memoryID) == "" {
		return nil, apperror.ValidationFailed("id", "memory id is required")
	}
	m, err := s.store.GetMemory(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	if !policy.IsOwner(m, actor) {
		return nil, denied(actor, "only the owner can manage sharing for this memory")
	}
	return m, nil
}

func newShareToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("service/sharing: reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
