package port

import (
	"apexlens/internal/core/domain"
	"context"
)

type ImageEnhancer interface {
	// Enhance sends an image and an instruction to a remote model and returns the edited image.
	Enhance(ctx context.Context, image domain.DataURL, instruction string) (domain.DataURL, error)
}

type ImageAnalyzer interface {
	// Analyze returns a short text description of the image.
	Analyze(ctx context.Context, image domain.DataURL) (string, error)
}
