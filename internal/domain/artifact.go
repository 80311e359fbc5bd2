package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Validation errors for Artifact
var (
	ErrEmptyArtifactData    = errors.New("artifact data cannot be empty")
	ErrInvalidArtifactIndex = errors.New("artifact index cannot be negative")
)

// Artifact is one image produced by a generation. Index is the image's
// position in the generation's shot list.
type Artifact struct {
	GenerationID uuid.UUID `json:"generation_id"`
	Index        int       `json:"index"`
	MIMEType     string    `json:"mime_type"`
	Data         []byte    `json:"-"`
	Label        string    `json:"label"`
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks the artifact's fields.
func (a *Artifact) Validate() error {
	if a.GenerationID == uuid.Nil {
		return ErrEmptyGenerationID
	}
	if a.Index < 0 {
		return ErrInvalidArtifactIndex
	}
	if len(a.Data) == 0 {
		return ErrEmptyArtifactData
	}
	return nil
}
