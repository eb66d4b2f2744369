package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/service"
	"github.com/sakif/memory-journal/internal/validate"
)

// maxAudioUpload matches the transcription provider's file limit.
const maxAudioUpload = 25 << 20

// Transcriber turns audio into text. *insight.Service implements it.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// PromptHandler serves writing prompts and audio transcription.
type PromptHandler struct {
	prompts     *service.PromptService
	transcriber Transcriber
	validate    *validate.Validator
	logger      *slog.Logger
}

func NewPromptHandler(prompts *service.PromptService, transcriber Transcriber, validate *validate.Validator, logger *slog.Logger) *PromptHandler {
	return &PromptHandler{prompts: prompts, transcriber: transcriber, validate: validate, logger: logger}
}

// HandleList returns active prompts, optionally for one category.
//
// HTTP: GET /api/prompts?category=
func (h *PromptHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.prompts.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompts)
}

// HTTP: GET /api/prompts/random
func (h *PromptHandler) HandleRandom(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.prompts.Random(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

// HTTP: GET /api/prompts/categories
func (h *PromptHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.prompts.Categories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

type generatePromptRequest struct {
	Category string `json:"category" validate:"max=50"`
}

type GeneratedPrompt struct {
	Prompt   string `json:"prompt"`
	Category string `json:"category,omitempty"`
}

// HandleGenerate writes a fresh prompt. It always succeeds; without a
// completion provider a stock prompt is returned.
//
// HTTP: POST /api/prompts/generate
func (h *PromptHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generatePromptRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GeneratedPrompt{
		Prompt:   h.prompts.Generate(r.Context(), req.Category),
		Category: req.Category,
	})
}

type TranscriptionResponse struct {
	Text string `json:"text"`
}

// HandleTranscribe transcribes the multipart field "audio".
//
// HTTP: POST /api/transcribe
func (h *PromptHandler) HandleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUpload+1<<20)
	file, header, err := r.FormFile("audio")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, apperror.ValidationFailed("audio", "audio file must be at most 25 MB"))
			return
		}
		writeError(w, apperror.ValidationFailed("audio", "no audio file provided"))
		return
	}
	defer file.Close()
	if header.Size > maxAudioUpload {
		writeError(w, apperror.ValidationFailed("audio", "audio file must be at most 25 MB"))
		return
	}

	text, err := h.transcriber.Transcribe(r.Context(), file, header.Filename)
	if err != nil {
		h.logger.Warn("transcription failed", slog.String("filename", header.Filename), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TranscriptionResponse{Text: text})
}
