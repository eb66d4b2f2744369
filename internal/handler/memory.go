package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/repository"
	"github.com/sakif/memory-journal/internal/search"
	"github.com/sakif/memory-journal/internal/service"
	"github.com/sakif/memory-journal/internal/validate"
)

// Searcher runs semantic search. *search.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, userID, query string) (*search.Response, error)
}

// MemoryHandler serves memory CRUD and semantic search.
type MemoryHandler struct {
	memories *service.MemoryService
	searcher Searcher
	identity *Identity
	validate *validate.Validator
	logger   *slog.Logger
}

func NewMemoryHandler(memories *service.MemoryService, searcher Searcher, identity *Identity, validate *validate.Validator, logger *slog.Logger) *MemoryHandler {
	return &MemoryHandler{
		memories: memories,
		searcher: searcher,
		identity: identity,
		validate: validate,
		logger:   logger,
	}
}

type createMemoryRequest struct {
	UserID        string             `json:"userId"`
	Type          model.MemoryType   `json:"type" validate:"omitempty,oneof=text audio mixed"`
	Title         string             `json:"title" validate:"max=200"`
	Content       string             `json:"content" validate:"required"`
	Transcript    string             `json:"transcript"`
	AudioURL      string             `json:"audioUrl"`
	AudioDuration int                `json:"audioDuration" validate:"min=0"`
	ImageURL      string             `json:"imageUrl"`
	VideoURL      string             `json:"videoUrl"`
	Attachments   []model.Attachment `json:"attachments"`
	People        []string           `json:"people"`
	Location      string             `json:"location"`
	Emotion       model.Emotion      `json:"emotion"`
	Date          *time.Time         `json:"date"`
	Prompt        string             `json:"prompt"`
	Visibility    model.Visibility   `json:"visibility" validate:"omitempty,oneof=private shared public"`
}

// HandleCreate stores a new memory for the caller.
//
// HTTP: POST /api/memories
func (h *MemoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createMemoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}
	viewer, err := h.identity.RequireUser(r, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	in := service.CreateMemoryInput{
		UserID:        viewer.UserID,
		Type:          req.Type,
		Title:         req.Title,
		Content:       req.Content,
		Transcript:    req.Transcript,
		AudioURL:      req.AudioURL,
		AudioDuration: req.AudioDuration,
		ImageURL:      req.ImageURL,
		VideoURL:      req.VideoURL,
		Attachments:   req.Attachments,
		People:        req.People,
		Location:      req.Location,
		Emotion:       req.Emotion,
		Prompt:        req.Prompt,
		Visibility:    req.Visibility,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}

	m, err := h.memories.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// HandleList returns the caller's memories, newest first.
//
// HTTP: GET /api/memories?userId=&limit=&offset=&emotion=&location=&people=&search=&from=&to=
func (h *MemoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseMemoryFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	viewer, err := h.identity.RequireUser(r, filter.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	filter.UserID = viewer.UserID

	memories, err := h.memories.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memories)
}

// HandleGet returns one memory if the caller may see it.
//
// HTTP: GET /api/memories/{id}
func (h *MemoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.identity.Viewer(r, r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	m, err := h.memories.Get(r.Context(), chi.URLParam(r, "id"), viewer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, present(m, viewer))
}

type updateMemoryRequest struct {
	UserID        string              `json:"userId"`
	Type          *model.MemoryType   `json:"type" validate:"omitempty,oneof=text audio mixed"`
	Title         *string             `json:"title" validate:"omitempty,max=200"`
	Content       *string             `json:"content"`
	Transcript    *string             `json:"transcript"`
	AudioURL      *string             `json:"audioUrl"`
	AudioDuration *int                `json:"audioDuration" validate:"omitempty,min=0"`
	ImageURL      *string             `json:"imageUrl"`
	VideoURL      *string             `json:"videoUrl"`
	Attachments   *[]model.Attachment `json:"attachments"`
	People        *[]string           `json:"people"`
	Location      *string             `json:"location"`
	Emotion       *model.Emotion      `json:"emotion"`
	Date          *time.Time          `json:"date"`
	Prompt        *string             `json:"prompt"`
}

// HandleUpdate applies a partial update. Absent fields are left alone.
//
// HTTP: PUT /api/memories/{id}
func (h *MemoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateMemoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}
	viewer, err := h.identity.Viewer(r, firstNonEmpty(req.UserID, r.URL.Query().Get("userId")))
	if err != nil {
		writeError(w, err)
		return
	}

	m, err := h.memories.Update(r.Context(), chi.URLParam(r, "id"), viewer, service.UpdateMemoryInput{
		Type:          req.Type,
		Title:         req.Title,
		Content:       req.Content,
		Transcript:    req.Transcript,
		AudioURL:      req.AudioURL,
		AudioDuration: req.AudioDuration,
		ImageURL:      req.ImageURL,
		VideoURL:      req.VideoURL,
		Attachments:   req.Attachments,
		People:        req.People,
		Location:      req.Location,
		Emotion:       req.Emotion,
		Date:          req.Date,
		Prompt:        req.Prompt,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, present(m, viewer))
}

// HandleDelete removes a memory and its grants.
//
// HTTP: DELETE /api/memories/{id}
func (h *MemoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.identity.Viewer(r, r.URL.Query().Get("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.memories.Delete(r.Context(), chi.URLParam(r, "id"), viewer); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Memory deleted successfully"})
}

type searchRequest struct {
	Query  string `json:"query" validate:"required,max=500"`
	UserID string `json:"userId"`
}

// HandleSemanticSearch ranks the caller's memories against a query. Provider
// outages degrade the response instead of failing it.
//
// HTTP: POST /api/memories/semantic-search
func (h *MemoryHandler) HandleSemanticSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}
	viewer, err := h.identity.RequireUser(r, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.searcher.Search(r.Context(), viewer.UserID, req.Query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseMemoryFilter reads the list query string. people may repeat or be
// comma separated; from and to accept RFC 3339 or YYYY-MM-DD, and a bare
// "to" date includes that whole day.
func parseMemoryFilter(r *http.Request) (repository.MemoryFilter, error) {
	q := r.URL.Query()
	f := repository.MemoryFilter{
		UserID:   q.Get("userId"),
		Search:   q.Get("search"),
		Emotion:  model.Emotion(q.Get("emotion")),
		Location: q.Get("location"),
	}
	for _, v := range q["people"] {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				f.People = append(f.People, p)
			}
		}
	}

	var err error
	if f.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return f, err
	}
	if f.From, _, err = timeParam(q.Get("from"), "from"); err != nil {
		return f, err
	}
	var dateOnly bool
	if f.To, dateOnly, err = timeParam(q.Get("to"), "to"); err != nil {
		return f, err
	}
	if dateOnly {
		f.To = f.To.Add(24*time.Hour - time.Nanosecond)
	}
	return f, nil
}

func intParam(s, field string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, apperror.ValidationFailed(field, field+" must be a non-negative integer")
	}
	return n, nil
}

func timeParam(s, field string) (t time.Time, dateOnly bool, err error) {
	if s == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, apperror.ValidationFailed(field, field+" must be RFC 3339 or YYYY-MM-DD")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
