package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerationStatus represents the processing state of a generation
type GenerationStatus string

// Possible generation status values
const (
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusProcessing GenerationStatus = "processing"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

// Common validation errors for Generation
var (
	ErrEmptyGenerationID     = errors.New("generation ID cannot be empty")
	ErrEmptyGenerationUserID = errors.New("generation user ID cannot be empty")
	ErrEmptyPrompts          = errors.New("generation needs at least one prompt")
	ErrInvalidCount          = errors.New("count per prompt must be at least 1")
	ErrEmptyProductImages    = errors.New("at least one product image is required")
	ErrInvalidProgress       = errors.New("progress must be between 0 and 100")
)

// GenerationInputs are the uploaded images a generation is built from.
// They are kept with the generation so a restarted worker can resume it.
type GenerationInputs struct {
	ProductImages  [][]byte `json:"product_images"`
	ReferenceImage []byte   `json:"reference_image,omitempty"`

	// Strict keeps the reference scene and inserts the products into it.
	Strict bool `json:"strict"`

	// FreedomLevel (0-10) controls how far output may drift from the reference.
	FreedomLevel int `json:"freedom_level"`
}

// Generation is a paid request for a batch of images. Every prompt is
// rendered CountPerPrompt times and the batch succeeds or fails as a whole.
type Generation struct {
	ID             uuid.UUID        `json:"id"`
	UserID         uuid.UUID        `json:"user_id"`
	Mode           Mode             `json:"mode"`
	Size           ImageSize        `json:"size"`
	AspectRatio    AspectRatio      `json:"aspect_ratio"`
	Prompts        []string         `json:"prompts"`
	CountPerPrompt int              `json:"count_per_prompt"`
	Inputs         GenerationInputs `json:"-"`
	Cost           int              `json:"cost"`
	Status         GenerationStatus `json:"status"`
	Progress       int              `json:"progress"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Shot describes one output image of a generation.
type Shot struct {
	Index    int
	Prompt   string
	Variant  int
	Variants int
}

// NewGeneration creates a pending Generation and prices it.
// A custom_model generation always produces exactly one image.
func NewGeneration(
	userID uuid.UUID,
	mode Mode,
	size ImageSize,
	ratio AspectRatio,
	prompts []string,
	countPerPrompt int,
	inputs GenerationInputs,
) (*Generation, error) {
	if mode == ModeCustomModel {
		if len(prompts) > 1 {
			prompts = prompts[:1]
		}
		countPerPrompt = 1
	}

	now := time.Now().UTC()
	g := &Generation{
		ID:             uuid.New(),
		UserID:         userID,
		Mode:           mode,
		Size:           size,
		AspectRatio:    ratio,
		Prompts:        prompts,
		CountPerPrompt: countPerPrompt,
		Inputs:         inputs,
		Status:         GenerationStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	g.Cost = g.Size.Cost() * g.TotalImages()

	return g, nil
}

// TotalImages returns the number of images the generation produces.
func (g *Generation) TotalImages() int {
	return len(g.Prompts) * g.CountPerPrompt
}

// Shots expands the prompts into one Shot per output image, prompt-major:
// all variants of the first prompt come before those of the second.
func (g *Generation) Shots() []Shot {
	shots := make([]Shot, 0, g.TotalImages())
	for _, prompt := range g.Prompts {
		for v := 0; v < g.CountPerPrompt; v++ {
			shots = append(shots, Shot{
				Index:    len(shots),
				Prompt:   prompt,
				Variant:  v,
				Variants: g.CountPerPrompt,
			})
		}
	}
	return shots
}

// Validate checks if the Generation has valid data.
func (g *Generation) Validate() error {
	if g.ID == uuid.Nil {
		return ErrEmptyGenerationID
	}
	if g.UserID == uuid.Nil {
		return ErrEmptyGenerationUserID
	}
	if !g.Mode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, g.Mode)
	}
	if !g.Size.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidImageSize, g.Size)
	}
	if !g.AspectRatio.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAspectRatio, g.AspectRatio)
	}
	if len(g.Prompts) == 0 {
		return ErrEmptyPrompts
	}
	for i, p := range g.Prompts {
		if p == "" {
			return fmt.Errorf("%w: prompt %d", ErrEmptyContent, i)
		}
	}
	if g.CountPerPrompt < 1 {
		return ErrInvalidCount
	}
	if g.Mode != ModeCustomModel && len(g.Inputs.ProductImages) == 0 {
		return ErrEmptyProductImages
	}
	if g.Mode == ModeCustomModel && len(g.Inputs.ReferenceImage) == 0 {
		return fmt.Errorf("%w: custom_model needs a reference image", ErrValidation)
	}
	if !isValidGenerationStatus(g.Status) {
		return ErrInvalidGenerationStatus
	}
	if g.Progress < 0 || g.Progress > 100 {
		return ErrInvalidProgress
	}
	return nil
}

// UpdateStatus updates the generation's status and updates the UpdatedAt timestamp.
// Returns an error if the new status is invalid.
func (g *Generation) UpdateStatus(status GenerationStatus) error {
	if !isValidGenerationStatus(status) {
		return ErrInvalidGenerationStatus
	}

	g.Status = status
	if status == GenerationStatusCompleted {
		g.Progress = 100
	}
	g.UpdatedAt = time.Now().UTC()
	return nil
}

// IsTerminal reports whether the generation can no longer change.
func (g *Generation) IsTerminal() bool {
	return g.Status == GenerationStatusCompleted || g.Status == GenerationStatusFailed
}

// isValidGenerationStatus checks if the given status is a valid GenerationStatus.
func isValidGenerationStatus(status GenerationStatus) bool {
	switch status {
	case GenerationStatusPending, GenerationStatusProcessing,
		GenerationStatusCompleted, GenerationStatusFailed:
		return true
	default:
		return false
	}
}
