package api

import (
	"time"

	"github.com/phrazzld/studio-api/internal/api/shared"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/studio"
)

// AnalyzeRequest defines the payload for POST /api/analyses.
type AnalyzeRequest struct {
	Mode           string         `json:"mode"            validate:"required,oneof=remix tryon custom_model studio"`
	ReferenceImage shared.Image   `json:"reference_image" validate:"required,min=1"`
	ProductImages  []shared.Image `json:"product_images"  validate:"max=8,dive,min=1"`
	Instruction    string         `json:"instruction"     validate:"max=4000"`

	// FreedomLevel defaults per mode when omitted
	FreedomLevel *int `json:"freedom_level" validate:"omitempty,gte=0,lte=10"`
}

func (r AnalyzeRequest) toInput() studio.AnalyzeInput {
	mode := domain.Mode(r.Mode)
	return studio.AnalyzeInput{
		Mode:           mode,
		ReferenceImage: r.ReferenceImage,
		ProductImages:  shared.ImageBytes(r.ProductImages),
		Instruction:    r.Instruction,
		FreedomLevel:   freedomOrDefault(r.FreedomLevel, mode),
	}
}

// CreateGenerationRequest defines the payload for POST /api/generations.
type CreateGenerationRequest struct {
	Mode           string         `json:"mode"             validate:"required,oneof=remix tryon custom_model studio"`
	Size           string         `json:"size"             validate:"required,oneof=1K 2K 4K"`
	AspectRatio    string         `json:"aspect_ratio"     validate:"required,oneof=3:4 1:1 9:16"`
	Prompts        []string       `json:"prompts"          validate:"required,min=1,max=12,dive,required,max=4000"`
	CountPerPrompt int            `json:"count_per_prompt" validate:"omitempty,gte=1,lte=4"`
	ProductImages  []shared.Image `json:"product_images"   validate:"max=8,dive,min=1"`
	ReferenceImage shared.Image   `json:"reference_image"`
	Strict         bool           `json:"strict"`
	FreedomLevel   *int           `json:"freedom_level"    validate:"omitempty,gte=0,lte=10"`
}

func (r CreateGenerationRequest) toInput() studio.CreateInput {
	mode := domain.Mode(r.Mode)
	count := r.CountPerPrompt
	if count == 0 {
		count = 1
	}
	return studio.CreateInput{
		Mode:           mode,
		Size:           domain.ImageSize(r.Size),
		AspectRatio:    domain.AspectRatio(r.AspectRatio),
		Prompts:        r.Prompts,
		CountPerPrompt: count,
		ProductImages:  shared.ImageBytes(r.ProductImages),
		ReferenceImage: r.ReferenceImage,
		Strict:         r.Strict,
		FreedomLevel:   freedomOrDefault(r.FreedomLevel, mode),
	}
}

func freedomOrDefault(level *int, mode domain.Mode) int {
	if level == nil {
		return mode.DefaultFreedomLevel()
	}
	return *level
}

// GenerationResponse is the public view of a generation.
type GenerationResponse struct {
	ID             string             `json:"id"`
	Mode           string             `json:"mode"`
	Size           string             `json:"size"`
	AspectRatio    string             `json:"aspect_ratio"`
	Prompts        []string           `json:"prompts"`
	CountPerPrompt int                `json:"count_per_prompt"`
	TotalImages    int                `json:"total_images"`
	Cost           int                `json:"cost"`
	Status         string             `json:"status"`
	Progress       int                `json:"progress"`
	Error          string             `json:"error,omitempty"`
	Artifacts      []ArtifactResponse `json:"artifacts"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// ArtifactResponse describes one stored image; the bytes are served by
// GET /api/generations/{id}/artifacts/{index}.
type ArtifactResponse struct {
	Index    int    `json:"index"`
	MIMEType string `json:"mime_type,omitempty"`
	Label    string `json:"label,omitempty"`
	URL      string `json:"url"`
}

// GenerationListResponse is one page of a user's generation history.
// Completed generations list their image URLs.
type GenerationListResponse struct {
	Generations []GenerationResponse `json:"generations"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

// DailyBonusResponse reports the outcome of a daily bonus claim.
type DailyBonusResponse struct {
	Granted bool `json:"granted"`
	Amount  int  `json:"amount"`
	Balance int  `json:"balance"`
}

// CreditsResponse reports a user's balance.
type CreditsResponse struct {
	Balance int `json:"balance"`
}

// generationSummary renders a history entry. Image metadata is not loaded
// for lists, so completed generations carry index and URL only.
func generationSummary(g *domain.Generation) GenerationResponse {
	resp := generationToResponse(g, nil)
	if g.Status == domain.GenerationStatusCompleted {
		for i := range g.TotalImages() {
			resp.Artifacts = append(resp.Artifacts, ArtifactResponse{
				Index: i,
				URL:   artifactURL(resp.ID, i),
			})
		}
	}
	return resp
}

func generationToResponse(g *domain.Generation, artifacts []*domain.Artifact) GenerationResponse {
	resp := GenerationResponse{
		ID:             g.ID.String(),
		Mode:           string(g.Mode),
		Size:           string(g.Size),
		AspectRatio:    string(g.AspectRatio),
		Prompts:        g.Prompts,
		CountPerPrompt: g.CountPerPrompt,
		TotalImages:    g.TotalImages(),
		Cost:           g.Cost,
		Status:         string(g.Status),
		Progress:       g.Progress,
		Error:          g.ErrorMessage,
		Artifacts:      make([]ArtifactResponse, 0, len(artifacts)),
		CreatedAt:      g.CreatedAt,
		UpdatedAt:      g.UpdatedAt,
	}
	for _, a := range artifacts {
		resp.Artifacts = append(resp.Artifacts, ArtifactResponse{
			Index:    a.Index,
			MIMEType: a.MIMEType,
			Label:    a.Label,
			URL:      artifactURL(g.ID.String(), a.Index),
		})
	}
	return resp
}
