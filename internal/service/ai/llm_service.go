// Package ai adapts text generation backends to a single prompt-in,
// text-out call.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-interview/backend/internal/config"
)

var ErrEmptyResponse = errors.New("generator returned empty text")

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ChainGenerator runs prompts through an eino chain ending in a chat model.
type ChainGenerator struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewChainGenerator compiles a chain that sends the prompt as a single user
// message to chatModel.
func NewChainGenerator(ctx context.Context, chatModel model.BaseChatModel) (*ChainGenerator, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{prompt}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile generator chain: %w", err)
	}
	return &ChainGenerator{chain: runnable}, nil
}

// Generate implements Generator.
func (g *ChainGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := g.chain.Invoke(ctx, map[string]any{"prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("failed to run generator chain: %w", err)
	}
	if response == nil || response.Content == "" {
		return "", ErrEmptyResponse
	}

	log.Printf("[ai] chain generated %d bytes for %d byte prompt", len(response.Content), len(prompt))
	return response.Content, nil
}

// NewGenerator builds the generator selected by cfg. It returns nil without
// error when the provider has no credentials, so the service can start and
// report the missing configuration per request.
func NewGenerator(ctx context.Context, cfg config.AIConfig) (Generator, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	switch cfg.Provider {
	case config.ProviderArk:
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		gen, err := NewChainGenerator(ctx, chatModel)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case config.ProviderGemini:
		gen, err := NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Provider)
	}
}
