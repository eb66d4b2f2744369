package oracle

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultOpenAIBaseURL      = "https://api.openai.com/v1"
	DefaultEmbeddingModel     = "text-embedding-3-small"
	DefaultChatModel          = "gpt-4o"
	DefaultTranscriptionModel = "whisper-1"
)

type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	EmbeddingModel     string
	ChatModel          string
	TranscriptionModel string
}

// OpenAI talks to the OpenAI REST API (or anything API-compatible behind
// BaseURL). It implements Embedder, Completer and Transcriber.
type OpenAI struct {
	client *resty.Client
	cfg    OpenAIConfig
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = DefaultTranscriptionModel
	}

	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		// Guard applies the per-call deadline; this only bounds runaway requests.
		SetTimeout(2 * time.Minute)

	return &OpenAI{client: c, cfg: cfg}
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func statusError(op string, resp *resty.Response) error {
	msg := resp.Status()
	if e, ok := resp.Error().(*apiError); ok && e.Error.Message != "" {
		msg = e.Error.Message
	}
	return fmt.Errorf("openai %s: status %d: %s", op, resp.StatusCode(), msg)
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	var out embeddingResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(embeddingRequest{Input: text, Model: o.cfg.EmbeddingModel}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/embeddings")
	if err != nil {
		return nil, fmt.Errorf("openai embeddings request: %w", err)
	}
	if resp.IsError() {
		return nil, statusError("embeddings", resp)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response")
	}

	vec := make([]float32, len(out.Data[0].Embedding))
	for i, v := range out.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Complete(ctx context.Context, p Prompt) (string, error) {
	req := chatRequest{Model: o.cfg.ChatModel, MaxTokens: p.MaxTokens}
	if p.System != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: p.System})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: p.User})
	if p.Temperature > 0 {
		req.Temperature = &p.Temperature
	}
	if p.JSON {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var out chatResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openai chat request: %w", err)
	}
	if resp.IsError() {
		return "", statusError("chat", resp)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai chat: no choices in response")
	}
	return out.Choices[0].Message.Content, nil
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

func (o *OpenAI) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	var out transcriptionResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetFileReader("file", filename, audio).
		SetFormData(map[string]string{"model": o.cfg.TranscriptionModel}).
		SetResult(&out).
		SetError(&apiError{}).
		Post("/audio/transcriptions")
	if err != nil {
		return "", fmt.Errorf("openai transcription request: %w", err)
	}
	if resp.IsError() {
		return "", statusError("transcription", resp)
	}
	return out.Text, nil
}
