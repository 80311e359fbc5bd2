package studio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/studio-api/internal/batch"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/generation"
	"github.com/phrazzld/studio-api/internal/platform/logger"
	"github.com/phrazzld/studio-api/internal/redact"
	"github.com/phrazzld/studio-api/internal/retry"
	"github.com/phrazzld/studio-api/internal/store"
	"github.com/phrazzld/studio-api/internal/task"
)

// CreateInput describes a generation request.
type CreateInput struct {
	Mode           domain.Mode
	Size           domain.ImageSize
	AspectRatio    domain.AspectRatio
	Prompts        []string
	CountPerPrompt int
	ProductImages  [][]byte
	ReferenceImage []byte
	Strict         bool
	FreedomLevel   int
}

// CreateGeneration prices the request, reserves the credits and stores the
// pending generation in one transaction, then submits the background task
// that renders it. If the task cannot be submitted the generation is marked
// failed and the reservation refunded.
func (s *Service) CreateGeneration(ctx context.Context, userID uuid.UUID, in CreateInput) (*domain.Generation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With("user_id", userID)

	if in.FreedomLevel < 0 || in.FreedomLevel > maxFreedomLevel {
		return nil, fmt.Errorf("%w: freedom level must be between 0 and %d", domain.ErrValidation, maxFreedomLevel)
	}

	g, err := domain.NewGeneration(userID, in.Mode, in.Size, in.AspectRatio, in.Prompts, in.CountPerPrompt,
		domain.GenerationInputs{
			ProductImages:  in.ProductImages,
			ReferenceImage: in.ReferenceImage,
			Strict:         in.Strict,
			FreedomLevel:   in.FreedomLevel,
		})
	if err != nil {
		log.Debug("rejected generation input", "error", err)
		return nil, err
	}
	if s.cfg.MaxImagesPerRequest > 0 && g.TotalImages() > s.cfg.MaxImagesPerRequest {
		return nil, fmt.Errorf("%w: %d images requested, at most %d allowed",
			domain.ErrValidation, g.TotalImages(), s.cfg.MaxImagesPerRequest)
	}

	log = log.With("generation_id", g.ID)

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		credits := s.credits.WithTx(tx)

		balance, err := credits.LockBalance(ctx, userID)
		if err != nil {
			return NewServiceError("create_generation", "failed to read credit balance", err)
		}
		if balance < g.Cost {
			log.Info("insufficient credits", "balance", balance, "cost", g.Cost)
			return fmt.Errorf("%w: balance %d, cost %d", domain.ErrInsufficientCredits, balance, g.Cost)
		}

		if err := s.generations.WithTx(tx).Create(ctx, g); err != nil {
			return NewServiceError("create_generation", "failed to save generation", err)
		}

		reservation, err := domain.NewReservation(userID, g.ID, g.Cost)
		if err != nil {
			return NewServiceError("create_generation", "failed to build reservation", err)
		}
		if err := credits.Append(ctx, reservation); err != nil {
			return NewServiceError("create_generation", "failed to reserve credits", err)
		}
		return nil
	})
	if err != nil {
		log.Warn("generation not created", "error", err)
		return nil, err
	}

	log.Info("generation created with pending status",
		"cost", g.Cost,
		"images", g.TotalImages(),
		"mode", g.Mode)

	t, err := task.NewGenerationTask(g.ID, s, s.logger)
	if err == nil {
		err = s.runner.Submit(ctx, t)
	}
	if err != nil {
		log.Error("failed to submit generation task", "error", err)
		_ = s.fail(context.WithoutCancel(ctx), g, "could not schedule generation")
		return nil, NewServiceError("create_generation", "failed to schedule generation", err)
	}

	return g, nil
}

// ExecuteGeneration renders every image of a generation. It runs on a task
// worker. Terminal generations are left alone so a recovered task that
// already ran is harmless. When two runs of the same generation overlap,
// whichever finishes first decides the outcome and the other run's result
// is discarded.
//
// Images are produced by the bounded scheduler, one retried remote call per
// image. Either all of them are stored and the generation completes, or
// none are and the reservation is refunded. If ctx is cancelled the
// generation is left in processing for the next recovery to resume.
func (s *Service) ExecuteGeneration(ctx context.Context, generationID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With("generation_id", generationID)
	ctx = logger.WithLogger(ctx, log)

	g, err := s.generations.GetByID(ctx, generationID)
	if err != nil {
		return NewServiceError("execute_generation", "failed to load generation", err)
	}
	if g.IsTerminal() {
		log.Info("generation already finished, skipping", "status", g.Status)
		return nil
	}

	if err := s.generations.UpdateStatus(ctx, g.ID, domain.GenerationStatusProcessing, ""); err != nil {
		if errors.Is(err, store.ErrGenerationFinished) {
			log.Info("generation already finished, skipping")
			return nil
		}
		return NewServiceError("execute_generation", "failed to mark generation processing", err)
	}

	start := time.Now()
	shots := g.Shots()
	jobs := make([]batch.Job[*domain.Artifact], len(shots))
	for i, shot := range shots {
		jobs[i] = s.imageJob(g, shot)
	}

	results, err := batch.Run(ctx, jobs, s.cfg.MaxConcurrency, func(percent int) {
		if perr := s.generations.UpdateProgress(ctx, g.ID, percent); perr != nil {
			log.Warn("failed to record progress", "percent", percent, "error", perr)
		}
	})
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("generation interrupted", "error", err)
			return ctx.Err()
		}

		log.Error("generation batch failed",
			"error", redact.Error(err),
			"duration_ms", time.Since(start).Milliseconds())
		if ferr := s.fail(ctx, g, failureMessage(err)); errors.Is(ferr, store.ErrGenerationFinished) {
			return nil
		}
		return NewServiceError("execute_generation", "image batch failed", err)
	}

	now := time.Now().UTC()
	for i, a := range results {
		a.GenerationID = g.ID
		a.Index = shots[i].Index
		a.Label = shotLabel(shots[i])
		a.CreatedAt = now
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.artifacts.WithTx(tx).SaveAll(ctx, results); err != nil {
			return err
		}
		return s.generations.WithTx(tx).UpdateStatus(ctx, g.ID, domain.GenerationStatusCompleted, "")
	})
	if err != nil {
		if errors.Is(err, store.ErrGenerationFinished) {
			log.Info("generation finished by another run, images discarded")
			return nil
		}
		log.Error("failed to store generated images", "error", err)
		if ferr := s.fail(ctx, g, "could not store generated images"); errors.Is(ferr, store.ErrGenerationFinished) {
			return nil
		}
		return NewServiceError("execute_generation", "failed to store artifacts", err)
	}

	log.Info("generation completed",
		"images", len(results),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// imageJob builds the scheduler job for one shot: a single remote call
// wrapped in the retry policy and the per-attempt timeout.
func (s *Service) imageJob(g *domain.Generation, shot domain.Shot) batch.Job[*domain.Artifact] {
	req := generation.ImageRequest{
		Mode:           g.Mode,
		Prompt:         shot.Prompt,
		ProductImages:  g.Inputs.ProductImages,
		ReferenceImage: g.Inputs.ReferenceImage,
		Strict:         g.Inputs.Strict,
		FreedomLevel:   g.Inputs.FreedomLevel,
		Size:           g.Size,
		AspectRatio:    g.AspectRatio,
		Variant:        shot.Variant,
		Variants:       shot.Variants,
	}

	return func(ctx context.Context) (*domain.Artifact, error) {
		ctx = logger.WithLogger(ctx, logger.FromContext(ctx).With("image_index", shot.Index))
		return retry.Do(ctx, s.imageRetry, func(ctx context.Context) (*domain.Artifact, error) {
			return withAttemptTimeout(ctx, s.cfg.RequestTimeout, func(ctx context.Context) (*domain.Artifact, error) {
				a, err := s.generator.GenerateImage(ctx, req)
				if err == nil && a == nil {
					return nil, generation.ErrNoImage
				}
				return a, err
			})
		})
	}
}

// fail marks the generation failed and refunds its reservation. A generation
// that another run already finished keeps its outcome and is not refunded;
// fail then returns store.ErrGenerationFinished. Other errors are logged
// because the caller already has a failure to report.
func (s *Service) fail(ctx context.Context, g *domain.Generation, message string) error {
	log := logger.FromContextOrDefault(ctx, s.logger).With("generation_id", g.ID)

	if err := s.generations.UpdateStatus(ctx, g.ID, domain.GenerationStatusFailed, message); err != nil {
		if errors.Is(err, store.ErrGenerationFinished) {
			log.Info("generation finished by another run, not refunding")
			return err
		}
		log.Error("failed to mark generation failed", "error", err)
	}
	s.refund(ctx, log, g)
	return nil
}

func (s *Service) refund(ctx context.Context, log *slog.Logger, g *domain.Generation) {
	if g.Cost == 0 {
		return
	}

	entry, err := domain.NewRefund(g.UserID, g.ID, g.Cost)
	if err != nil {
		log.Error("failed to build refund", "error", err)
		return
	}
	if err := s.credits.Append(ctx, entry); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			log.Info("generation already refunded")
			return
		}
		log.Error("failed to refund credits", "error", err, "amount", g.Cost)
		return
	}
	log.Info("credits refunded", "amount", g.Cost)
}

// failureMessage is the error text stored on a failed generation.
func failureMessage(err error) string {
	var jobErr *batch.JobError
	index := -1
	if errors.As(err, &jobErr) {
		index = jobErr.Index
	}

	var reason string
	switch {
	case errors.Is(err, generation.ErrContentBlocked):
		reason = "blocked by safety filters"
	case errors.Is(err, generation.ErrPermissionDenied):
		reason = "image model access denied"
	case errors.Is(err, generation.ErrNoImage):
		reason = "model returned no image"
	case errors.Is(err, batch.ErrJobPanicked):
		reason = "internal error"
	default:
		reason = redact.Error(err)
	}

	if index >= 0 {
		return fmt.Sprintf("image %d failed: %s", index, reason)
	}
	return reason
}

func shotLabel(shot domain.Shot) string {
	const maxLabel = 120
	label := shot.Prompt
	if r := []rune(label); len(r) > maxLabel {
		label = string(r[:maxLabel])
	}
	if shot.Variants > 1 {
		label = fmt.Sprintf("%s (variant %d of %d)", label, shot.Variant+1, shot.Variants)
	}
	return label
}
