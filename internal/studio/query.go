package studio

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/platform/logger"
)

// GenerationView is a generation together with its stored images (metadata only).
type GenerationView struct {
	Generation *domain.Generation
	Artifacts  []*domain.Artifact
}

// GetGeneration returns a generation owned by userID with its artifact list.
// Artifacts are only listed once the generation has completed.
func (s *Service) GetGeneration(ctx context.Context, userID, generationID uuid.UUID) (*GenerationView, error) {
	g, err := s.ownedGeneration(ctx, userID, generationID, "get_generation")
	if err != nil {
		return nil, err
	}

	view := &GenerationView{Generation: g, Artifacts: []*domain.Artifact{}}
	if g.Status != domain.GenerationStatusCompleted {
		return view, nil
	}

	artifacts, err := s.artifacts.List(ctx, g.ID)
	if err != nil {
		return nil, NewServiceError("get_generation", "failed to list artifacts", err)
	}
	view.Artifacts = artifacts
	return view, nil
}

// GetArtifact returns one image of a completed generation owned by userID.
func (s *Service) GetArtifact(ctx context.Context, userID, generationID uuid.UUID, index int) (*domain.Artifact, error) {
	g, err := s.ownedGeneration(ctx, userID, generationID, "get_artifact")
	if err != nil {
		return nil, err
	}
	if g.Status != domain.GenerationStatusCompleted {
		return nil, ErrGenerationNotReady
	}
	if index < 0 || index >= g.TotalImages() {
		return nil, ErrArtifactNotFound
	}

	a, err := s.artifacts.Get(ctx, g.ID, index)
	if err != nil {
		return nil, NewServiceError("get_artifact", "failed to load artifact", err)
	}
	return a, nil
}

func (s *Service) ownedGeneration(ctx context.Context, userID, generationID uuid.UUID, op string) (*domain.Generation, error) {
	g, err := s.generations.GetByID(ctx, generationID)
	if err != nil {
		return nil, NewServiceError(op, "failed to load generation", err)
	}
	if g.UserID != userID {
		logger.FromContextOrDefault(ctx, s.logger).Warn("generation requested by non-owner",
			"generation_id", generationID,
			"user_id", userID)
		return nil, ErrNotOwned
	}
	return g, nil
}

// Page sizes for ListGenerations.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListGenerations returns a page of the user's generations, newest first.
// A limit outside 1..MaxPageSize falls back to DefaultPageSize.
func (s *Service) ListGenerations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Generation, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	generations, err := s.generations.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, NewServiceError("list_generations", "failed to list generations", err)
	}
	return generations, nil
}

// DeleteGeneration removes a finished generation owned by userID and its
// images from the user's history. The credit ledger is not touched.
func (s *Service) DeleteGeneration(ctx context.Context, userID, generationID uuid.UUID) error {
	g, err := s.ownedGeneration(ctx, userID, generationID, "delete_generation")
	if err != nil {
		return err
	}
	if !g.IsTerminal() {
		return ErrGenerationInProgress
	}

	if err := s.generations.Delete(ctx, g.ID); err != nil {
		return NewServiceError("delete_generation", "failed to delete generation", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("generation deleted",
		"generation_id", g.ID,
		"user_id", userID)
	return nil
}
