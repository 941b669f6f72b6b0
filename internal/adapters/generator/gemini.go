package generator

import (
	"apexlens/internal/core/domain"
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash-image"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content,
		config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini edits images with a Gemini image model.
type Gemini struct {
	models contentGenerator
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating gemini client: %w", err)
	}

	if model == "" {
		model = DefaultGeminiModel
	}

	return &Gemini{models: client.Models, model: model}, nil
}

func (g *Gemini) Enhance(ctx context.Context, image domain.DataURL, instruction string) (domain.DataURL, error) {
	result, err := g.editImage(ctx, image, instruction)
	if err != nil {
		log.Error().Err(err).Str("model", g.model).Msg("editing error")
		return "", fmt.Errorf("failed to edit image: %w", err)
	}

	return result, nil
}

func (g *Gemini) editImage(ctx context.Context, image domain.DataURL, instruction string) (domain.DataURL, error) {
	data, mimeType, err := image.Decode()
	if err != nil {
		return "", err
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
		genai.NewPartFromText(instruction),
	}

	log.Debug().
		Str("model", g.model).
		Str("mimeType", mimeType).
		Int("bytes", len(data)).
		Msg("sending image to gemini")

	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	if resp == nil {
		return "", domain.ErrNoImageReturned
	}

	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return domain.NewDataURL(domain.OutputMIMEType, part.InlineData.Data), nil
			}
		}
	}

	return "", domain.ErrNoImageReturned
}
