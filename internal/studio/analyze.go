package studio

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/generation"
	"github.com/phrazzld/studio-api/internal/platform/logger"
	"github.com/phrazzld/studio-api/internal/retry"
)

// maxFreedomLevel is the upper bound of the 0-10 creative freedom scale.
const maxFreedomLevel = 10

// AnalyzeInput are the uploads and instructions of an analysis request.
type AnalyzeInput struct {
	Mode           domain.Mode
	ReferenceImage []byte
	ProductImages  [][]byte
	Instruction    string
	FreedomLevel   int
}

// Validate checks the input against the rules of its mode.
func (in AnalyzeInput) Validate() error {
	if !in.Mode.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidMode, in.Mode)
	}
	if len(in.ReferenceImage) == 0 {
		return fmt.Errorf("%w: reference image is required", domain.ErrValidation)
	}
	if (in.Mode == domain.ModeRemix || in.Mode == domain.ModeTryOn) && len(in.ProductImages) == 0 {
		return domain.ErrEmptyProductImages
	}
	if in.FreedomLevel < 0 || in.FreedomLevel > maxFreedomLevel {
		return fmt.Errorf("%w: freedom level must be between 0 and %d", domain.ErrValidation, maxFreedomLevel)
	}
	return nil
}

// Analyze turns uploaded images into a creative plan. Transient model
// failures are retried under the configured policy.
func (s *Service) Analyze(ctx context.Context, userID uuid.UUID, in AnalyzeInput) (*domain.Plan, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		"user_id", userID,
		"mode", in.Mode,
	)

	if err := in.Validate(); err != nil {
		log.Debug("rejected analysis input", "error", err)
		return nil, err
	}

	req := generation.AnalysisRequest{
		Mode:           in.Mode,
		ReferenceImage: in.ReferenceImage,
		ProductImages:  in.ProductImages,
		Instruction:    in.Instruction,
		FreedomLevel:   in.FreedomLevel,
	}

	plan, err := retry.Do(logger.WithLogger(ctx, log), s.analysisRetry,
		func(ctx context.Context) (*domain.Plan, error) {
			return withAttemptTimeout(ctx, s.cfg.RequestTimeout, func(ctx context.Context) (*domain.Plan, error) {
				return s.generator.Analyze(ctx, req)
			})
		})
	if err != nil {
		log.Error("analysis failed", "error", err)
		return nil, NewServiceError("analyze", "analysis request failed", err)
	}

	log.Info("analysis completed", "options", len(plan.Options))
	return plan, nil
}
