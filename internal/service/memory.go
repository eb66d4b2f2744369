// Package service holds the business rules of the journal.
//
//	Handler (HTTP) → Service (rules, policy checks) → repository.Store
//
// Services take repository interfaces and small capability interfaces, never
// concrete adapters, so tests run them against memstore and stub oracles.
// Every error they return is either an *apperror.AppError (which the handler
// layer maps to a status code) or an unexpected storage error (500).
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/insight"
	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/policy"
	"github.com/sakif/memory-journal/internal/repository"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 100
	MaxTitleLength   = 200
	MaxContentLength = 50000
)

// SentimentAnalyzer tags text with an emotion. *insight.Service implements it.
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) (insight.Sentiment, error)
}

// SentimentObserver counts automatic tags. May be nil.
type SentimentObserver interface {
	ObserveSentiment(emotion string)
}

// MemoryStore is what MemoryService needs from storage.
type MemoryStore interface {
	repository.UserRepository
	repository.MemoryRepository
	repository.ShareRepository
}

type MemoryService struct {
	store     MemoryStore
	sentiment SentimentAnalyzer
	observer  SentimentObserver
	logger    *slog.Logger
}

func NewMemoryService(store MemoryStore, sentiment SentimentAnalyzer, observer SentimentObserver, logger *slog.Logger) *MemoryService {
	return &MemoryService{store: store, sentiment: sentiment, observer: observer, logger: logger}
}

// CreateMemoryInput carries a new memory. Zero values mean "not provided".
type CreateMemoryInput struct {
	UserID        string
	Type          model.MemoryType
	Title         string
	Content       string
	Transcript    string
	AudioURL      string
	AudioDuration int
	ImageURL      string
	VideoURL      string
	Attachments   []model.Attachment
	People        []string
	Location      string
	Emotion       model.Emotion
	Date          time.Time
	Prompt        string
	Visibility    model.Visibility
}

// Create validates and stores a memory. When content is present and no
// emotion was given, the sentiment analyzer picks one; if it can't, the
// emotion stays unset and the memory is still created.
func (s *MemoryService) Create(ctx context.Context, in CreateMemoryInput) (*model.Memory, error) {
	m := &model.Memory{
		UserID:        strings.TrimSpace(in.UserID),
		Type:          in.Type,
		Title:         strings.TrimSpace(in.Title),
		Content:       strings.TrimSpace(in.Content),
		Transcript:    strings.TrimSpace(in.Transcript),
		AudioURL:      in.AudioURL,
		AudioDuration: in.AudioDuration,
		ImageURL:      in.ImageURL,
		VideoURL:      in.VideoURL,
		Attachments:   in.Attachments,
		People:        cleanPeople(in.People),
		Location:      strings.TrimSpace(in.Location),
		Emotion:       in.Emotion,
		Date:          in.Date,
		Prompt:        strings.TrimSpace(in.Prompt),
		Visibility:    in.Visibility,
	}
	if m.Type == "" {
		m.Type = model.MemoryTypeText
	}
	if m.Visibility == "" {
		m.Visibility = model.VisibilityPrivate
	}
	if m.UserID == "" {
		return nil, apperror.ValidationFailed("userId", "userId is required")
	}
	if err := validateMemory(m); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByID(ctx, m.UserID); err != nil {
		return nil, fmt.Errorf("service/memory: checking owner: %w", err)
	}

	if m.Emotion == "" && m.Content != "" && s.sentiment != nil {
		s.tagEmotion(ctx, m)
	}

	if err := s.store.CreateMemory(ctx, m); err != nil {
		return nil, fmt.Errorf("service/memory: creating memory: %w", err)
	}

	s.logger.Info("memory created",
		slog.String("memory_id", m.ID),
		slog.String("user_id", m.UserID),
		slog.String("type", string(m.Type)),
	)
	return m, nil
}

func (s *MemoryService) tagEmotion(ctx context.Context, m *model.Memory) {
	sentiment, err := s.sentiment.AnalyzeSentiment(ctx, m.Content)
	if err != nil {
		s.logger.Warn("sentiment analysis failed; emotion left unset", "user_id", m.UserID, "error", err)
		return
	}
	m.Emotion = sentiment.Emotion
	if s.observer != nil {
		s.observer.ObserveSentiment(string(sentiment.Emotion))
	}
}

// Get returns the memory if viewer may see it.
func (s *MemoryService) Get(ctx context.Context, id string, viewer policy.Viewer) (*model.Memory, error) {
	m, shares, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(m, viewer, shares) {
		return nil, denied(viewer, "you do not have access to this memory")
	}
	return m, nil
}

// List returns the owner's memories, newest first. Limit is clamped to
// [1, MaxListLimit] with DefaultListLimit for zero.
func (s *MemoryService) List(ctx context.Context, filter repository.MemoryFilter) ([]model.Memory, error) {
	if strings.TrimSpace(filter.UserID) == "" {
		return nil, apperror.ValidationFailed("userId", "userId is required")
	}
	if filter.Emotion != "" && !filter.Emotion.Valid() {
		return nil, apperror.ValidationFailed("emotion", "unknown emotion "+string(filter.Emotion))
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = DefaultListLimit
	case filter.Limit > MaxListLimit:
		filter.Limit = MaxListLimit
	}
	filter.Offset = max(filter.Offset, 0)

	memories, err := s.store.ListMemories(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/memory: listing memories: %w", err)
	}
	return memories, nil
}

// UpdateMemoryInput is a partial update: nil fields are left unchanged.
type UpdateMemoryInput struct {
	Type          *model.MemoryType
	Title         *string
	Content       *string
	Transcript    *string
	AudioURL      *string
	AudioDuration *int
	ImageURL      *string
	VideoURL      *string
	Attachments   *[]model.Attachment
	People        *[]string
	Location      *string
	Emotion       *model.Emotion
	Date          *time.Time
	Prompt        *string
}

// Update applies in for the owner or an edit grantee. Visibility and sharing
// state change only through SharingService.
func (s *MemoryService) Update(ctx context.Context, id string, viewer policy.Viewer, in UpdateMemoryInput) (*model.Memory, error) {
	m, shares, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanEdit(m, viewer, shares) {
		return nil, denied(viewer, "you cannot edit this memory")
	}

	setIf(&m.Type, in.Type)
	setTrimmed(&m.Title, in.Title)
	setTrimmed(&m.Content, in.Content)
	setTrimmed(&m.Transcript, in.Transcript)
	setIf(&m.AudioURL, in.AudioURL)
	setIf(&m.AudioDuration, in.AudioDuration)
	setIf(&m.ImageURL, in.ImageURL)
	setIf(&m.VideoURL, in.VideoURL)
	setIf(&m.Attachments, in.Attachments)
	setTrimmed(&m.Location, in.Location)
	setIf(&m.Emotion, in.Emotion)
	setIf(&m.Date, in.Date)
	setTrimmed(&m.Prompt, in.Prompt)
	if in.People != nil {
		m.People = cleanPeople(*in.People)
	}

	if err := validateMemory(m); err != nil {
		return nil, err
	}
	if err := s.store.UpdateMemory(ctx, m); err != nil {
		return nil, fmt.Errorf("service/memory: updating memory %s: %w", id, err)
	}
	return m, nil
}

// Delete removes a memory and its grants. Owner only.
func (s *MemoryService) Delete(ctx context.Context, id string, viewer policy.Viewer) error {
	m, err := s.store.GetMemory(ctx, id)
	if err != nil {
		return err
	}
	if !policy.IsOwner(m, viewer) {
		return denied(viewer, "only the owner can delete this memory")
	}
	if err := s.store.DeleteMemory(ctx, id); err != nil {
		return fmt.Errorf("service/memory: deleting memory %s: %w", id, err)
	}
	s.logger.Info("memory deleted", slog.String("memory_id", id), slog.String("user_id", m.UserID))
	return nil
}

func (s *MemoryService) load(ctx context.Context, id string) (*model.Memory, []model.MemoryShare, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil, apperror.ValidationFailed("id", "memory id is required")
	}
	m, err := s.store.GetMemory(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	shares, err := s.store.ListSharesByMemory(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("service/memory: loading shares of %s: %w", id, err)
	}
	return m, shares, nil
}

func validateMemory(m *model.Memory) error {
	switch {
	case !m.Type.Valid():
		return apperror.ValidationFailed("type", "type must be one of: text, audio, mixed")
	case m.Content == "":
		return apperror.ValidationFailed("content", "content is required")
	case len(m.Content) > MaxContentLength:
		return apperror.ValidationFailed("content", fmt.Sprintf("content must be at most %d characters", MaxContentLength))
	case len(m.Title) > MaxTitleLength:
		return apperror.ValidationFailed("title", fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	case !m.Emotion.Valid():
		return apperror.ValidationFailed("emotion", "unknown emotion "+string(m.Emotion))
	case !m.Visibility.Valid():
		return apperror.ValidationFailed("visibility", "visibility must be one of: private, shared, public")
	case m.AudioDuration < 0:
		return apperror.ValidationFailed("audioDuration", "audioDuration must not be negative")
	}
	return nil
}

// denied picks 401 for anonymous callers and 403 for everyone else.
func denied(viewer policy.Viewer, msg string) error {
	if viewer.UserID == "" && viewer.Email == "" {
		return apperror.Unauthorized(msg)
	}
	return apperror.Forbidden(msg)
}

func cleanPeople(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
