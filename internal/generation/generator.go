package generation

import (
	"context"

	"github.com/phrazzld/studio-api/internal/domain"
)

// AnalysisRequest carries the images and instructions for the planning call.
type AnalysisRequest struct {
	Mode           domain.Mode
	ReferenceImage []byte
	ProductImages  [][]byte
	Instruction    string
	FreedomLevel   int
}

// ImageRequest describes a single output image.
type ImageRequest struct {
	Mode           domain.Mode
	Prompt         string
	ProductImages  [][]byte
	ReferenceImage []byte
	Strict         bool
	FreedomLevel   int
	Size           domain.ImageSize
	AspectRatio    domain.AspectRatio

	// Variant and Variants identify this image among renderings of the same
	// prompt. When Variants > 1 the generator asks for a distinct variation.
	Variant  int
	Variants int
}

// Generator defines the interface for the remote generative calls.
// This interface serves as a boundary between the application core and
// external AI services, following the hexagonal architecture pattern.
//
// Implementations make exactly one remote round trip per call. Retrying is
// the caller's concern.
type Generator interface {
	// Analyze turns uploaded images and instructions into a creative plan.
	Analyze(ctx context.Context, req AnalysisRequest) (*domain.Plan, error)

	// GenerateImage renders one image. The returned artifact has its data and
	// MIME type set; the caller assigns generation ID and index.
	GenerateImage(ctx context.Context, req ImageRequest) (*domain.Artifact, error)
}
