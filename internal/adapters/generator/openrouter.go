package generator

import (
	"apexlens/internal/core/domain"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/revrost/go-openrouter"
	"github.com/rs/zerolog/log"
)

const DefaultAnalysisPrompt = "Describe this photo in two sentences and point out what limits its sharpness " +
	"(blur, noise, compression, low resolution)."

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context,
		ccr openrouter.ChatCompletionRequest) (openrouter.ChatCompletionResponse, error)
}

// OpenRouter describes images with a vision model served through OpenRouter.
type OpenRouter struct {
	client       chatCompleter
	model        string
	systemPrompt string
}

func NewOpenRouter(apiKey, model, systemPrompt string) *OpenRouter {
	if systemPrompt == "" {
		systemPrompt = DefaultAnalysisPrompt
	}

	return &OpenRouter{
		model:        model,
		systemPrompt: systemPrompt,
		client: openrouter.NewClient(
			apiKey,
			openrouter.WithXTitle("apexlens"),
		),
	}
}

func (c *OpenRouter) Analyze(ctx context.Context, image domain.DataURL) (string, error) {
	if image == "" {
		return "", domain.ErrNoOriginal
	}

	ccr := openrouter.ChatCompletionRequest{
		Model: c.model,
		Messages: []openrouter.ChatCompletionMessage{
			{
				Role: openrouter.ChatMessageRoleSystem,
				Content: openrouter.Content{
					Text: c.systemPrompt,
				},
			},
			{
				Role: openrouter.ChatMessageRoleUser,
				Content: openrouter.Content{Multi: []openrouter.ChatMessagePart{
					{
						Type:     openrouter.ChatMessagePartTypeImageURL,
						ImageURL: &openrouter.ChatMessageImageURL{URL: string(image)},
					},
					{
						Type: openrouter.ChatMessagePartTypeText,
						Text: "Analyze this image.",
					},
				}},
			},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, ccr)
	if err != nil {
		return "", fmt.Errorf("openrouter API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned from openrouter")
	}

	l := log.Debug().Str("model", resp.Model)
	if resp.Usage != nil {
		l = l.Int("totalTokens", resp.Usage.TotalTokens)
	}
	l.Msg("image analysis finished")

	return strings.TrimSpace(resp.Choices[0].Message.Content.Text), nil
}
