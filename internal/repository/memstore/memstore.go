// Package memstore is an in-memory repository.Store.
//
// It mirrors the sqldb adapter's behaviour (cascading deletes, deduplicated
// shared-with lists, atomic share tokens) closely enough that services can be
// tested without a database. Everything lives behind one RWMutex, and values
// are copied on the way in and out so callers never alias internal state.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/repository"
)

var _ repository.Store = (*Store)(nil)

const defaultListLimit = 50

type Store struct {
	mu       sync.RWMutex
	users    map[string]model.User
	memories map[string]model.Memory
	shares   map[string]model.MemoryShare
	prompts  []model.MemoryPrompt
}

// New returns an empty store seeded with repository.DefaultPrompts.
func New() *Store {
	s := &Store{
		users:    make(map[string]model.User),
		memories: make(map[string]model.Memory),
		shares:   make(map[string]model.MemoryShare),
	}
	for i, p := range repository.DefaultPrompts {
		p.ID = int64(i + 1)
		p.IsActive = true
		s.prompts = append(s.prompts, p)
	}
	return s
}

func (s *Store) Close() error { return nil }

// =========================================================================
// USERS
// =========================================================================

func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = xid.New().String()
	}
	if user.Provider == "" {
		user.Provider = "email"
	}
	for _, u := range s.users {
		if u.ID == user.ID || strings.EqualFold(u.Email, user.Email) {
			return apperror.Conflict(fmt.Sprintf("a user with email %s already exists", user.Email))
		}
	}
	user.CreatedAt = time.Now().UTC()
	s.users[user.ID] = *user
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (s *Store) UpdateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[user.ID]
	if !ok {
		return apperror.NotFound("user", user.ID)
	}
	u.Name = user.Name
	u.AvatarURL = user.AvatarURL
	u.PasswordHash = user.PasswordHash
	s.users[u.ID] = u
	return nil
}

// DeleteUser cascades to the user's memories and to shares they made or received.
func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return apperror.NotFound("user", id)
	}
	delete(s.users, id)
	for mid, m := range s.memories {
		if m.UserID == id {
			s.deleteMemoryLocked(mid)
		}
	}
	for sid, sh := range s.shares {
		if sh.SharedByUserID == id || sh.SharedWithUserID == id {
			delete(s.shares, sid)
		}
	}
	return nil
}

// =========================================================================
// MEMORIES
// =========================================================================

func (s *Store) CreateMemory(_ context.Context, memory *model.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	memory.ID = xid.New().String()
	memory.CreatedAt = now
	memory.UpdatedAt = now
	if memory.Date.IsZero() {
		memory.Date = now
	}
	if memory.Visibility == "" {
		memory.Visibility = model.VisibilityPrivate
	}
	normalizeLists(memory)

	if memory.ShareToken != "" && s.tokenTakenLocked(memory.ShareToken, "") {
		return apperror.Conflict("share token already in use")
	}
	s.memories[memory.ID] = cloneMemory(*memory)
	return nil
}

func (s *Store) GetMemory(_ context.Context, id string) (*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.memories[id]
	if !ok {
		return nil, apperror.NotFound("memory", id)
	}
	out := cloneMemory(m)
	return &out, nil
}

func (s *Store) GetMemoryByShareToken(_ context.Context, token string) (*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if token != "" {
		for _, m := range s.memories {
			if m.ShareToken == token {
				out := cloneMemory(m)
				return &out, nil
			}
		}
	}
	return nil, apperror.NotFound("shared memory", token)
}

func (s *Store) ListMemories(_ context.Context, f repository.MemoryFilter) ([]model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.Memory{}
	for _, m := range s.memories {
		if m.UserID == f.UserID && matches(m, f) {
			out = append(out, cloneMemory(m))
		}
	}
	sortByDateDesc(out)

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := max(f.Offset, 0)
	if offset >= len(out) {
		return []model.Memory{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateMemory(_ context.Context, memory *model.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.memories[memory.ID]
	if !ok {
		return apperror.NotFound("memory", memory.ID)
	}
	normalizeLists(memory)
	memory.UpdatedAt = time.Now().UTC()

	cur.Type = memory.Type
	cur.Title = memory.Title
	cur.Content = memory.Content
	cur.Transcript = memory.Transcript
	cur.AudioURL = memory.AudioURL
	cur.AudioDuration = memory.AudioDuration
	cur.ImageURL = memory.ImageURL
	cur.VideoURL = memory.VideoURL
	cur.Attachments = memory.Attachments
	cur.People = memory.People
	cur.Location = memory.Location
	cur.Emotion = memory.Emotion
	cur.Date = memory.Date
	cur.Prompt = memory.Prompt
	cur.UpdatedAt = memory.UpdatedAt
	s.memories[cur.ID] = cloneMemory(cur)
	return nil
}

func (s *Store) DeleteMemory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.memories[id]; !ok {
		return apperror.NotFound("memory", id)
	}
	s.deleteMemoryLocked(id)
	return nil
}

func (s *Store) SetShareToken(_ context.Context, id, token string) (*model.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memories[id]
	if !ok {
		return nil, apperror.NotFound("memory", id)
	}
	if s.tokenTakenLocked(token, id) {
		return nil, apperror.Conflict("share token already in use")
	}
	m.ShareToken = token
	m.IsPublic = true
	if m.Visibility == model.VisibilityPrivate {
		m.Visibility = model.VisibilityShared
	}
	m.UpdatedAt = time.Now().UTC()
	s.memories[id] = m

	out := cloneMemory(m)
	return &out, nil
}

func (s *Store) SetVisibility(_ context.Context, id string, visibility model.Visibility) (*model.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memories[id]
	if !ok {
		return nil, apperror.NotFound("memory", id)
	}
	m.Visibility = visibility
	if visibility == model.VisibilityPrivate {
		m.IsPublic = false
	}
	m.UpdatedAt = time.Now().UTC()
	s.memories[id] = m

	out := cloneMemory(m)
	return &out, nil
}

// =========================================================================
// SHARES
// =========================================================================

func (s *Store) CreateShare(_ context.Context, share *model.MemoryShare) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.memories[share.MemoryID]; !ok {
		return apperror.NotFound("memory", share.MemoryID)
	}
	share.ID = xid.New().String()
	share.CreatedAt = time.Now().UTC()
	s.shares[share.ID] = *share
	return nil
}

func (s *Store) GetShare(_ context.Context, id string) (*model.MemoryShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sh, ok := s.shares[id]
	if !ok {
		return nil, apperror.NotFound("share", id)
	}
	return &sh, nil
}

func (s *Store) ListSharesByMemory(_ context.Context, memoryID string) ([]model.MemoryShare, error) {
	return s.filterShares(func(sh model.MemoryShare) bool { return sh.MemoryID == memoryID }), nil
}

func (s *Store) ListSharesByEmail(_ context.Context, email string) ([]model.MemoryShare, error) {
	return s.filterShares(func(sh model.MemoryShare) bool { return strings.EqualFold(sh.SharedWithEmail, email) }), nil
}

func (s *Store) ListMemoriesSharedWith(_ context.Context, email string) ([]model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	out := []model.Memory{}
	for _, sh := range s.shares {
		if !strings.EqualFold(sh.SharedWithEmail, email) || seen[sh.MemoryID] {
			continue
		}
		seen[sh.MemoryID] = true
		if m, ok := s.memories[sh.MemoryID]; ok {
			out = append(out, cloneMemory(m))
		}
	}
	sortByDateDesc(out)
	return out, nil
}

func (s *Store) DeleteShare(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.shares[id]
	delete(s.shares, id)
	return ok, nil
}

func (s *Store) filterShares(keep func(model.MemoryShare) bool) []model.MemoryShare {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.MemoryShare{}
	for _, sh := range s.shares {
		if keep(sh) {
			out = append(out, sh)
		}
	}
	slices.SortFunc(out, func(a, b model.MemoryShare) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// =========================================================================
// PROMPTS
// =========================================================================

func (s *Store) ListPrompts(_ context.Context, category string) ([]model.MemoryPrompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.MemoryPrompt{}
	for _, p := range s.prompts {
		if p.IsActive && (category == "" || p.Category == category) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) RandomPrompt(ctx context.Context) (*model.MemoryPrompt, error) {
	active, _ := s.ListPrompts(ctx, "")
	if len(active) == 0 {
		return nil, apperror.NotFound("prompt", "random")
	}
	p := active[rand.IntN(len(active))]
	return &p, nil
}

func (s *Store) ListPromptCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []string{}
	for _, p := range s.prompts {
		if p.IsActive && !slices.Contains(out, p.Category) {
			out = append(out, p.Category)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *Store) CreatePrompt(_ context.Context, prompt *model.MemoryPrompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prompt.ID = int64(len(s.prompts) + 1)
	s.prompts = append(s.prompts, *prompt)
	return nil
}

// =========================================================================
// HELPERS
// =========================================================================

func (s *Store) deleteMemoryLocked(id string) {
	delete(s.memories, id)
	for sid, sh := range s.shares {
		if sh.MemoryID == id {
			delete(s.shares, sid)
		}
	}
}

func (s *Store) tokenTakenLocked(token, exceptID string) bool {
	for id, m := range s.memories {
		if id != exceptID && m.ShareToken == token {
			return true
		}
	}
	return false
}

func matches(m model.Memory, f repository.MemoryFilter) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		hay := []string{m.Content, m.Transcript, m.Title, m.Location, string(m.Emotion)}
		if !slices.ContainsFunc(hay, func(s string) bool { return strings.Contains(strings.ToLower(s), q) }) {
			return false
		}
	}
	if f.Emotion != "" && m.Emotion != f.Emotion {
		return false
	}
	if loc := strings.TrimSpace(f.Location); loc != "" && !strings.Contains(strings.ToLower(m.Location), strings.ToLower(loc)) {
		return false
	}
	if len(f.People) > 0 && !anyPerson(m.People, f.People) {
		return false
	}
	if !f.From.IsZero() && m.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && m.Date.After(f.To) {
		return false
	}
	return true
}

func anyPerson(have, want []string) bool {
	for _, w := range want {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

func sortByDateDesc(ms []model.Memory) {
	slices.SortStableFunc(ms, func(a, b model.Memory) int {
		return cmp.Or(b.Date.Compare(a.Date), b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
}

func normalizeLists(m *model.Memory) {
	if m.People == nil {
		m.People = []string{}
	}
	if m.Attachments == nil {
		m.Attachments = []model.Attachment{}
	}
}

func cloneMemory(m model.Memory) model.Memory {
	m.People = slices.Clone(m.People)
	m.Attachments = slices.Clone(m.Attachments)
	normalizeLists(&m)
	return m
}
