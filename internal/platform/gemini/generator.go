package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/phrazzld/studio-api/internal/config"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/generation"
)

const jpegMIMEType = "image/jpeg"

// ContentGenerator is the subset of the genai client used by GeminiGenerator.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator implements the generation.Generator interface using
// Google's Gemini API.
type GeminiGenerator struct {
	// logger is used for structured logging
	logger *slog.Logger

	// models performs the remote calls
	models ContentGenerator

	analysisModel string
	imageModel    string
}

var _ generation.Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates the Gemini client and wraps it in a GeminiGenerator.
// The client is created once; callers share the returned generator.
func NewGeminiGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiGenerator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return NewWithContentGenerator(logger, cfg, client.Models)
}

// NewWithContentGenerator builds a generator around an existing content
// generator, e.g. a fake in tests.
func NewWithContentGenerator(logger *slog.Logger, cfg config.LLMConfig, models ContentGenerator) (*GeminiGenerator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if models == nil {
		return nil, fmt.Errorf("%w: content generator cannot be nil", generation.ErrInvalidConfig)
	}
	if cfg.AnalysisModel == "" {
		return nil, fmt.Errorf("%w: analysis model name cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ImageModel == "" {
		return nil, fmt.Errorf("%w: image model name cannot be empty", generation.ErrInvalidConfig)
	}

	return &GeminiGenerator{
		logger:        logger,
		models:        models,
		analysisModel: cfg.AnalysisModel,
		imageModel:    cfg.ImageModel,
	}, nil
}

// Analyze asks the analysis model for a creative plan in the JSON shape of req.Mode.
func (g *GeminiGenerator) Analyze(ctx context.Context, req generation.AnalysisRequest) (*domain.Plan, error) {
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: %v", generation.ErrInvalidRequest, domain.ErrInvalidMode)
	}
	if len(req.ReferenceImage) == 0 {
		return nil, fmt.Errorf("%w: reference image is required", generation.ErrInvalidRequest)
	}

	parts := analysisParts(req)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt(req.Mode)}}},
		ResponseMIMEType:  "application/json",
	}

	g.logger.DebugContext(ctx, "Calling Gemini analysis",
		"mode", req.Mode,
		"model", g.analysisModel,
		"product_images", len(req.ProductImages))

	resp, err := g.models.GenerateContent(ctx, g.analysisModel, userContent(parts), cfg)
	if err != nil {
		return nil, wrapAPIError("analysis", err)
	}
	if err := checkBlocked(resp); err != nil {
		return nil, err
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("%w: empty analysis", generation.ErrInvalidResponse)
	}

	plan, err := parsePlan(req.Mode, text)
	if err != nil {
		g.logger.WarnContext(ctx, "Failed to parse analysis", "mode", req.Mode, "error", err)
		return nil, err
	}

	g.logger.InfoContext(ctx, "Gemini analysis completed",
		"mode", req.Mode,
		"options", len(plan.Options))
	return plan, nil
}

// GenerateImage renders one image with the image model.
func (g *GeminiGenerator) GenerateImage(ctx context.Context, req generation.ImageRequest) (*domain.Artifact, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("%w: prompt cannot be empty", generation.ErrInvalidRequest)
	}

	prompt, err := buildImagePrompt(req)
	if err != nil {
		return nil, err
	}

	var parts []*genai.Part
	if usesReference(req) {
		parts = append(parts, inlineJPEG(req.ReferenceImage))
		if req.Mode != domain.ModeCustomModel {
			parts = append(parts, &genai.Part{Text: "Background/Reference:"})
		}
	}
	if req.Mode != domain.ModeCustomModel {
		if req.Mode == domain.ModeTryOn && usesReference(req) {
			parts = append(parts, &genai.Part{Text: "Jewelry objects to wear:"})
		}
		for _, img := range req.ProductImages {
			parts = append(parts, inlineJPEG(img))
		}
	}
	parts = append(parts, &genai.Part{Text: prompt})

	resp, err := g.models.GenerateContent(ctx, g.imageModel, userContent(parts), nil)
	if err != nil {
		return nil, wrapAPIError("image generation", err)
	}
	if err := checkBlocked(resp); err != nil {
		return nil, err
	}

	blob := firstImage(resp)
	if blob == nil {
		return nil, generation.ErrNoImage
	}

	mimeType := blob.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}

	g.logger.DebugContext(ctx, "Gemini image generated",
		"mode", req.Mode,
		"variant", req.Variant+1,
		"bytes", len(blob.Data))

	return &domain.Artifact{
		MIMEType: mimeType,
		Data:     blob.Data,
	}, nil
}

// analysisParts lays out the labelled images and instructions for Analyze.
func analysisParts(req generation.AnalysisRequest) []*genai.Part {
	lead := "Reference image:"
	switch req.Mode {
	case domain.ModeTryOn:
		lead = "Model reference image:"
	case domain.ModeStudio:
		lead = "Product image to analyze:"
	}
	parts := []*genai.Part{{Text: lead}, inlineJPEG(req.ReferenceImage)}

	switch req.Mode {
	case domain.ModeCustomModel:
		parts = append(parts, &genai.Part{Text: "Task: extract the model DNA."})
	case domain.ModeStudio:
		parts = append(parts,
			&genai.Part{Text: fmt.Sprintf("User requirements: %q", req.Instruction)},
			&genai.Part{Text: "Task: identify the jewelry material and design 3 studio concepts."})
	default:
		label := "Product images (objects to insert):"
		if req.Mode == domain.ModeTryOn {
			label = "Product images (jewelry to wear):"
		}
		parts = append(parts, &genai.Part{Text: label})
		for _, img := range req.ProductImages {
			parts = append(parts, inlineJPEG(img))
		}
		parts = append(parts, &genai.Part{Text: "User instruction: " + req.Instruction})
		if req.Mode == domain.ModeTryOn {
			if req.FreedomLevel == 0 {
				parts = append(parts, &genai.Part{Text: "Try-on sub-mode: KEEP_LOOK. Strictly preserve the model's face."})
			} else {
				parts = append(parts, &genai.Part{Text: "Try-on sub-mode: DIGITAL_REMIX. Generate a new person with a similar vibe."})
			}
		} else {
			parts = append(parts, &genai.Part{Text: fmt.Sprintf("User freedom level (0-10): %d.", req.FreedomLevel)})
		}
	}
	return parts
}

// checkBlocked maps safety outcomes to generation.ErrContentBlocked.
func checkBlocked(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return fmt.Errorf("%w: nil response", generation.ErrInvalidResponse)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("%w: prompt blocked (%s)", generation.ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return fmt.Errorf("%w: response blocked by safety filters", generation.ErrContentBlocked)
	}
	return nil
}

func inlineJPEG(data []byte) *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{Data: data, MIMEType: jpegMIMEType}}
}

func userContent(parts []*genai.Part) []*genai.Content {
	return []*genai.Content{{Role: "user", Parts: parts}}
}
