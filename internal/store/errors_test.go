package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestEntityNotFoundErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some error"), false},
		{"ErrNotFound", ErrNotFound, true},
		{"ErrGenerationNotFound", ErrGenerationNotFound, true},
		{"wrapped ErrArtifactNotFound", fmt.Errorf("failed to load image: %w", ErrArtifactNotFound), true},
		{"ErrTaskNotFound", ErrTaskNotFound, true},
		{"ErrDuplicate", ErrDuplicate, false},
		{"ErrTransactionFailed", ErrTransactionFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, ErrNotFound); got != tt.notFound {
				t.Errorf("errors.Is(%v, ErrNotFound) = %v, want %v", tt.err, got, tt.notFound)
			}
		})
	}
}

func TestEntityNotFoundErrorsAreDistinct(t *testing.T) {
	if errors.Is(ErrGenerationNotFound, ErrArtifactNotFound) {
		t.Error("generation not found must not match artifact not found")
	}
	if got := ErrArtifactNotFound.Error(); got != "entity not found: artifact" {
		t.Errorf("ErrArtifactNotFound.Error() = %q", got)
	}
}
