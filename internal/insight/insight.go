// Package insight holds the small AI helpers around memories: sentiment
// tagging, writing-prompt generation and audio transcription.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sakif/memory-journal/internal/apperror"
	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/oracle"
)

// FallbackPrompt is served when no prompt can be generated.
const FallbackPrompt = "Tell me about a moment that made you smile today."

// Sentiment is the classifier's verdict on a piece of text.
type Sentiment struct {
	Emotion    model.Emotion `json:"emotion"`
	Confidence float64       `json:"confidence"`
}

type Service struct {
	completer   oracle.Completer
	transcriber oracle.Transcriber
	logger      *slog.Logger
}

func New(completer oracle.Completer, transcriber oracle.Transcriber, logger *slog.Logger) *Service {
	return &Service{completer: completer, transcriber: transcriber, logger: logger}
}

// AnalyzeSentiment classifies text into one of model.Emotions. A reply naming
// an unknown emotion is an upstream error; confidence is clamped to [0, 1]
// and defaults to 0.5.
func (s *Service) AnalyzeSentiment(ctx context.Context, text string) (Sentiment, error) {
	if strings.TrimSpace(text) == "" {
		return Sentiment{}, apperror.ValidationFailed("text", "text is required")
	}

	names := make([]string, len(model.Emotions))
	for i, e := range model.Emotions {
		names[i] = string(e)
	}

	reply, err := s.completer.Complete(ctx, oracle.Prompt{
		System: "You are a sentiment analysis expert. Analyze the emotional tone of the text and classify it into one of these categories: " +
			strings.Join(names, ", ") + ". Also provide a confidence score between 0 and 1. " +
			`Respond with JSON in this format: {"emotion": "category", "confidence": number}`,
		User: text,
		JSON: true,
	})
	if err != nil {
		return Sentiment{}, err
	}

	var raw struct {
		Emotion    string   `json:"emotion"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(reply), &raw); err != nil {
		return Sentiment{}, apperror.Upstream("sentiment", fmt.Errorf("decoding reply: %w", err))
	}

	emotion := model.Emotion(strings.ToLower(strings.TrimSpace(raw.Emotion)))
	if emotion == "" || !emotion.Valid() {
		return Sentiment{}, apperror.Upstream("sentiment", fmt.Errorf("unknown emotion %q", raw.Emotion))
	}

	confidence := 0.5
	if raw.Confidence != nil {
		confidence = min(1, max(0, *raw.Confidence))
	}
	return Sentiment{Emotion: emotion, Confidence: confidence}, nil
}

// GeneratePrompt asks for a fresh writing prompt, optionally themed on a
// category. It never fails: any problem yields FallbackPrompt.
func (s *Service) GeneratePrompt(ctx context.Context, category string) string {
	theme := ""
	if c := strings.TrimSpace(category); c != "" {
		theme = " in the " + c + " category"
	}

	reply, err := s.completer.Complete(ctx, oracle.Prompt{
		System: "You are a helpful assistant that creates thoughtful prompts to help people remember and write about their personal experiences and memories.",
		User: "Generate a thoughtful, personal memory prompt" + theme +
			" that would help someone recall and write about a meaningful experience from their life. " +
			"The prompt should be engaging, specific enough to spark a memory, but broad enough to be relatable. " +
			"Return only the prompt text, nothing else.",
		MaxTokens:   100,
		Temperature: 0.8,
	})
	if err != nil {
		s.logger.Debug("prompt generation unavailable", "error", err)
		return FallbackPrompt
	}

	reply = strings.Trim(strings.TrimSpace(reply), `"`)
	if reply == "" {
		return FallbackPrompt
	}
	return reply
}

// Transcribe turns a recording into text. Failures surface to the caller.
func (s *Service) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	text, err := s.transcriber.Transcribe(ctx, audio, filename)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
