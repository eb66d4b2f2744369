package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/memory-journal/internal/model"
	"github.com/sakif/memory-journal/internal/repository"
)

// PromptGenerator writes a new prompt on demand. *insight.Service implements it.
type PromptGenerator interface {
	GeneratePrompt(ctx context.Context, category string) string
}

// PromptService serves writing prompts: the curated list from storage and
// freshly generated ones.
type PromptService struct {
	prompts   repository.PromptRepository
	generator PromptGenerator
}

func NewPromptService(prompts repository.PromptRepository, generator PromptGenerator) *PromptService {
	return &PromptService{prompts: prompts, generator: generator}
}

func (s *PromptService) List(ctx context.Context, category string) ([]model.MemoryPrompt, error) {
	prompts, err := s.prompts.ListPrompts(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, fmt.Errorf("service/prompt: listing prompts: %w", err)
	}
	return prompts, nil
}

func (s *PromptService) Random(ctx context.Context) (*model.MemoryPrompt, error) {
	return s.prompts.RandomPrompt(ctx)
}

func (s *PromptService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.prompts.ListPromptCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/prompt: listing categories: %w", err)
	}
	return categories, nil
}

// Generate never fails; the generator falls back to a stock prompt.
func (s *PromptService) Generate(ctx context.Context, category string) string {
	return s.generator.GeneratePrompt(ctx, category)
}
