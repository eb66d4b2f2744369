// Package repository declares the persistence interfaces the services depend on.
//
// Two adapters implement them: sqldb (SQLite or PostgreSQL through
// database/sql) and memstore (in-memory, for tests and throwaway runs).
// Services never import an adapter; main wires one in.
package repository

import (
	"context"
	"time"

	"github.com/sakif/memory-journal/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// MemoryFilter narrows a user's memories. Zero-valued fields are ignored.
// Results are always ordered by Date, newest first.
type MemoryFilter struct {
	UserID   string
	Search   string // case-insensitive substring of content, transcript, title, location or emotion
	Emotion  model.Emotion
	Location string   // case-insensitive substring
	People   []string // matches memories mentioning any of these people
	From     time.Time
	To       time.Time
	ListOptions
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error
}

type MemoryRepository interface {
	CreateMemory(ctx context.Context, memory *model.Memory) error
	GetMemory(ctx context.Context, id string) (*model.Memory, error)
	ListMemories(ctx context.Context, filter MemoryFilter) ([]model.Memory, error)
	UpdateMemory(ctx context.Context, memory *model.Memory) error
	DeleteMemory(ctx context.Context, id string) error

	// GetMemoryByShareToken returns the memory holding token, whatever its
	// isPublic flag; the caller decides whether it may be served.
	GetMemoryByShareToken(ctx context.Context, token string) (*model.Memory, error)

	// SetShareToken atomically replaces the memory's token, sets isPublic and
	// moves visibility from private to shared. The previous token stops matching
	// in the same statement.
	SetShareToken(ctx context.Context, id, token string) (*model.Memory, error)

	// SetVisibility updates visibility; private also clears isPublic.
	SetVisibility(ctx context.Context, id string, visibility model.Visibility) (*model.Memory, error)
}

type ShareRepository interface {
	CreateShare(ctx context.Context, share *model.MemoryShare) error
	GetShare(ctx context.Context, id string) (*model.MemoryShare, error)
	ListSharesByMemory(ctx context.Context, memoryID string) ([]model.MemoryShare, error)
	// ListSharesByEmail returns every grant addressed to email (case-insensitive).
	ListSharesByEmail(ctx context.Context, email string) ([]model.MemoryShare, error)
	// ListMemoriesSharedWith returns each memory granted to email once, newest Date first.
	ListMemoriesSharedWith(ctx context.Context, email string) ([]model.Memory, error)
	// DeleteShare reports whether a row was removed. A missing id is not an error.
	DeleteShare(ctx context.Context, id string) (bool, error)
}

type PromptRepository interface {
	ListPrompts(ctx context.Context, category string) ([]model.MemoryPrompt, error)
	RandomPrompt(ctx context.Context) (*model.MemoryPrompt, error)
	ListPromptCategories(ctx context.Context) ([]string, error)
	CreatePrompt(ctx context.Context, prompt *model.MemoryPrompt) error
}

// Store bundles every repository. Both adapters satisfy it with one value.
type Store interface {
	UserRepository
	MemoryRepository
	ShareRepository
	PromptRepository
	Close() error
}
