package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/phrazzld/studio-api/internal/config"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/generation"
)

// fakeModels records requests and replays a canned response.
type fakeModels struct {
	mu       sync.Mutex
	resp     *genai.GenerateContentResponse
	err      error
	models   []string
	contents [][]*genai.Content
	configs  []*genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(
	_ context.Context,
	model string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.models = append(f.models, model)
	f.contents = append(f.contents, contents)
	f.configs = append(f.configs, cfg)
	return f.resp, f.err
}

func (f *fakeModels) lastParts() []*genai.Part {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.contents[len(f.contents)-1]
	return c[0].Parts
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func imageResponse(data []byte, mime string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "here you go"},
				{InlineData: &genai.Blob{Data: data, MIMEType: mime}},
			}},
		}},
	}
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		GeminiAPIKey:  "test-key",
		AnalysisModel: "analysis-model",
		ImageModel:    "image-model",
	}
}

func newTestGenerator(t *testing.T, f *fakeModels) *GeminiGenerator {
	t.Helper()
	g, err := NewWithContentGenerator(slog.New(slog.NewTextHandler(io.Discard, nil)), testConfig(), f)
	require.NoError(t, err)
	return g
}

func TestNewWithContentGenerator_Validation(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewWithContentGenerator(nil, testConfig(), &fakeModels{})
	assert.Error(t, err)

	_, err = NewWithContentGenerator(logger, testConfig(), nil)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	cfg := testConfig()
	cfg.ImageModel = ""
	_, err = NewWithContentGenerator(logger, cfg, &fakeModels{})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGeminiGenerator(context.Background(), logger, config.LLMConfig{})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestAnalyze_Studio(t *testing.T) {
	t.Parallel()

	f := &fakeModels{resp: textResponse("```json\n" + `{
		"product_material_analysis": "18k gold",
		"user_requirement_analysis": "warm and minimal",
		"concepts": [
			{"id": "c1", "style_name": "Marble", "design_rationale": "clean", "lighting_setup": "soft box", "full_prompt_for_nano_banana": "ring on marble"},
			{"id": "c2", "style_name": "Silk", "full_prompt_for_nano_banana": "ring on silk"},
			{"id": "c3", "style_name": "Empty", "full_prompt_for_nano_banana": ""}
		]}` + "\n```")}
	g := newTestGenerator(t, f)

	plan, err := g.Analyze(context.Background(), generation.AnalysisRequest{
		Mode:           domain.ModeStudio,
		ReferenceImage: []byte("product"),
		Instruction:    "warm tones",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.ModeStudio, plan.Mode)
	assert.Equal(t, "18k gold", plan.ProductAnalysis)
	require.Len(t, plan.Options, 2, "options without a prompt are dropped")
	assert.Equal(t, "c1", plan.Options[0].ID)
	assert.Equal(t, "ring on marble\nLighting: soft box.", plan.Options[0].Prompt)
	assert.Equal(t, "ring on silk", plan.Options[1].Prompt)
	assert.NotEmpty(t, plan.Raw)

	assert.Equal(t, []string{"analysis-model"}, f.models)
	cfg := f.configs[0]
	require.NotNil(t, cfg)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.Equal(t, studioSystemPrompt, cfg.SystemInstruction.Parts[0].Text)
}

func TestAnalyze_TryOnIncludesProducts(t *testing.T) {
	t.Parallel()

	f := &fakeModels{resp: textResponse(`{
		"creative_analysis": {"product_material": "silver", "lighting_strategy": "rim light"},
		"imagen_instructions": {"prompts": [{"ui_title": "Close up", "master_prompt": "close up of earrings"}]}}`)}
	g := newTestGenerator(t, f)

	plan, err := g.Analyze(context.Background(), generation.AnalysisRequest{
		Mode:           domain.ModeTryOn,
		ReferenceImage: []byte("model"),
		ProductImages:  [][]byte{[]byte("earring-1"), []byte("earring-2")},
		Instruction:    "evening look",
	})

	require.NoError(t, err)
	require.Len(t, plan.Options, 1)
	assert.Equal(t, "option_1", plan.Options[0].ID)

	var images int
	var texts []string
	for _, p := range f.lastParts() {
		if p.InlineData != nil {
			images++
			assert.Equal(t, jpegMIMEType, p.InlineData.MIMEType)
		}
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	assert.Equal(t, 3, images)
	assert.Contains(t, strings.Join(texts, "\n"), "KEEP_LOOK")
}

func TestAnalyze_Errors(t *testing.T) {
	t.Parallel()

	req := generation.AnalysisRequest{Mode: domain.ModeRemix, ReferenceImage: []byte("ref")}

	tests := []struct {
		name    string
		fake    *fakeModels
		req     generation.AnalysisRequest
		wantErr error
	}{
		{"invalid mode", &fakeModels{}, generation.AnalysisRequest{Mode: "x", ReferenceImage: []byte("r")}, generation.ErrInvalidRequest},
		{"missing reference", &fakeModels{}, generation.AnalysisRequest{Mode: domain.ModeRemix}, generation.ErrInvalidRequest},
		{"not json", &fakeModels{resp: textResponse("I cannot help")}, req, generation.ErrInvalidResponse},
		{"empty", &fakeModels{resp: &genai.GenerateContentResponse{}}, req, generation.ErrInvalidResponse},
		{"no prompt", &fakeModels{resp: textResponse(`{"remix_rationale": "x"}`)}, req, generation.ErrInvalidResponse},
		{"forbidden", &fakeModels{err: genai.APIError{Code: 403, Message: "no access", Status: "PERMISSION_DENIED"}}, req, generation.ErrPermissionDenied},
		{"safety", &fakeModels{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}}}, req, generation.ErrContentBlocked},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := newTestGenerator(t, tc.fake)
			_, err := g.Analyze(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestGenerateImage_ReturnsFirstInlineImage(t *testing.T) {
	t.Parallel()

	f := &fakeModels{resp: imageResponse([]byte{0x89, 'P', 'N', 'G'}, "image/png")}
	g := newTestGenerator(t, f)

	art, err := g.GenerateImage(context.Background(), generation.ImageRequest{
		Mode:          domain.ModeStudio,
		Prompt:        "ring on marble",
		ProductImages: [][]byte{[]byte("ring")},
		Size:          domain.ImageSize2K,
		AspectRatio:   domain.AspectRatioPortrait,
		Variant:       1,
		Variants:      3,
	})

	require.NoError(t, err)
	assert.Equal(t, "image/png", art.MIMEType)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, art.Data)
	assert.Equal(t, []string{"image-model"}, f.models)
	assert.Nil(t, f.configs[0])

	parts := f.lastParts()
	require.Len(t, parts, 2)
	assert.NotNil(t, parts[0].InlineData)
	prompt := parts[1].Text
	assert.Contains(t, prompt, "ring on marble")
	assert.Contains(t, prompt, "Variation 2 of 3")
	assert.Contains(t, prompt, "2K resolution, 3:4 aspect ratio")
	assert.Contains(t, prompt, "Negative prompt:")
}

func TestGenerateImage_StrictTryOnSendsReferenceFirst(t *testing.T) {
	t.Parallel()

	f := &fakeModels{resp: imageResponse([]byte("img"), "")}
	g := newTestGenerator(t, f)

	art, err := g.GenerateImage(context.Background(), generation.ImageRequest{
		Mode:           domain.ModeTryOn,
		Prompt:         "wear the necklace",
		ProductImages:  [][]byte{[]byte("necklace")},
		ReferenceImage: []byte("model"),
		Strict:         true,
		Size:           domain.ImageSize1K,
		AspectRatio:    domain.AspectRatioSquare,
		Variants:       1,
	})

	require.NoError(t, err)
	assert.Equal(t, "image/png", art.MIMEType, "missing MIME type defaults to PNG")

	parts := f.lastParts()
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, []byte("model"), parts[0].InlineData.Data)
	last := parts[len(parts)-1].Text
	assert.Contains(t, last, "remove any existing jewelry")
	assert.NotContains(t, last, "Variation")
}

func TestGenerateImage_Errors(t *testing.T) {
	t.Parallel()

	req := generation.ImageRequest{Mode: domain.ModeRemix, Prompt: "p", Size: domain.ImageSize1K, AspectRatio: domain.AspectRatioSquare}
	unavailable := genai.APIError{Code: 503, Message: "The model is overloaded", Status: "UNAVAILABLE"}

	tests := []struct {
		name      string
		fake      *fakeModels
		req       generation.ImageRequest
		wantErr   error
		transient bool
	}{
		{"empty prompt", &fakeModels{}, generation.ImageRequest{}, generation.ErrInvalidRequest, false},
		{"no image", &fakeModels{resp: textResponse("sorry")}, req, generation.ErrNoImage, false},
		{"blocked prompt", &fakeModels{resp: &genai.GenerateContentResponse{
			PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: "SAFETY"},
		}}, req, generation.ErrContentBlocked, false},
		{"forbidden", &fakeModels{err: &genai.APIError{Code: 403, Status: "PERMISSION_DENIED"}}, req, generation.ErrPermissionDenied, false},
		{"overloaded", &fakeModels{err: unavailable}, req, nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := newTestGenerator(t, tc.fake)
			_, err := g.GenerateImage(context.Background(), tc.req)
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.True(t, errors.Is(err, tc.wantErr), "got %v", err)
			} else {
				apiErr, ok := asAPIError(err)
				require.True(t, ok, "API error should stay in the chain")
				assert.Equal(t, unavailable.Code, apiErr.Code)
			}
			assert.Equal(t, tc.transient, IsTransient(err))
		})
	}
}

func TestCustomModelPrompt(t *testing.T) {
	t.Parallel()

	req := generation.ImageRequest{
		Mode:           domain.ModeCustomModel,
		Prompt:         "Subject DNA: ...",
		ReferenceImage: []byte("face"),
		FreedomLevel:   9,
		Size:           domain.ImageSize4K,
		AspectRatio:    domain.AspectRatioStory,
		Variants:       1,
	}
	assert.False(t, usesReference(req), "freedom above 8 drops the reference")

	req.FreedomLevel = 0
	assert.True(t, usesReference(req))

	prompt, err := buildImagePrompt(req)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Strictly preserve the exact identity")
	assert.Contains(t, prompt, "barefoot")
	assert.True(t, strings.HasSuffix(prompt, "Output: 4K resolution, 9:16 aspect ratio."))
}
