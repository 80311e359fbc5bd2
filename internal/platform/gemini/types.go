package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/generation"
)

// remixSchema is the analysis answer for remix mode.
type remixSchema struct {
	Rationale    string `json:"remix_rationale"`
	Instructions struct {
		VisualPrompt    string  `json:"visual_prompt"`
		NegativePrompt  string  `json:"negative_prompt"`
		StructureLock   float64 `json:"structure_lock"`
		CreativityLevel float64 `json:"creativity_level"`
		LightingGuide   string  `json:"lighting_guide"`
	} `json:"nano_banana_instructions"`
}

// tryOnSchema is the analysis answer for try-on mode.
type tryOnSchema struct {
	CreativeAnalysis struct {
		ProductMaterial  string `json:"product_material"`
		LightingStrategy string `json:"lighting_strategy"`
	} `json:"creative_analysis"`
	Instructions struct {
		Prompts []struct {
			ID          string `json:"id"`
			Title       string `json:"ui_title"`
			Description string `json:"ui_description"`
			Prompt      string `json:"master_prompt"`
		} `json:"prompts"`
	} `json:"imagen_instructions"`
}

// modelDNASchema is the analysis answer for custom_model mode.
type modelDNASchema struct {
	Demographics struct {
		Ethnicity string `json:"race_ethnicity"`
		Gender    string `json:"gender"`
		AgeVibe   string `json:"age_vibe"`
	} `json:"demographics"`
	Features struct {
		FaceShape   string `json:"face_shape"`
		Eyes        string `json:"eye_characteristics"`
		SkinTexture string `json:"skin_texture"`
		HairStyle   string `json:"hair_style"`
	} `json:"visual_features"`
	Vibe struct {
		Personality string `json:"personality_tag"`
		HairVibe    string `json:"hair_vibe_keywords"`
	} `json:"vibe_and_style"`
	Suggestions []string `json:"user_editable_suggestions"`
}

// studioSchema is the analysis answer for studio mode.
type studioSchema struct {
	MaterialAnalysis    string `json:"product_material_analysis"`
	RequirementAnalysis string `json:"user_requirement_analysis"`
	Concepts            []struct {
		ID            string   `json:"id"`
		StyleName     string   `json:"style_name"`
		Rationale     string   `json:"design_rationale"`
		SuggestedProp []string `json:"suggested_props"`
		Lighting      string   `json:"lighting_setup"`
		Scene         string   `json:"props_and_scene"`
		CameraAngle   string   `json:"camera_angle"`
		Prompt        string   `json:"full_prompt_for_nano_banana"`
	} `json:"concepts"`
}

// parsePlan decodes a mode-specific analysis answer into a domain.Plan.
// A plan without at least one usable prompt is an invalid response.
func parsePlan(mode domain.Mode, text string) (*domain.Plan, error) {
	raw := []byte(cleanJSON(text))
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: analysis is not valid JSON", generation.ErrInvalidResponse)
	}

	plan := &domain.Plan{Mode: mode, Raw: json.RawMessage(raw)}

	switch mode {
	case domain.ModeTryOn:
		var s tryOnSchema
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
		}
		plan.ProductAnalysis = s.CreativeAnalysis.ProductMaterial
		plan.Rationale = s.CreativeAnalysis.LightingStrategy
		for i, p := range s.Instructions.Prompts {
			plan.Options = appendOption(plan.Options, i, p.ID, p.Title, p.Description, p.Prompt)
		}

	case domain.ModeCustomModel:
		var s modelDNASchema
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
		}
		plan.Rationale = s.Vibe.Personality
		plan.Suggestions = s.Suggestions
		plan.Options = appendOption(plan.Options, 0, "model_dna", "Model DNA", s.Vibe.Personality, s.describe())

	case domain.ModeStudio:
		var s studioSchema
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
		}
		plan.ProductAnalysis = s.MaterialAnalysis
		plan.Rationale = s.RequirementAnalysis
		for i, c := range s.Concepts {
			prompt := c.Prompt
			if prompt != "" && c.Lighting != "" {
				prompt += "\nLighting: " + c.Lighting + "."
			}
			plan.Options = appendOption(plan.Options, i, c.ID, c.StyleName, c.Rationale, prompt)
		}

	default:
		var s remixSchema
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", generation.ErrInvalidResponse, err)
		}
		plan.Rationale = s.Rationale
		prompt := s.Instructions.VisualPrompt
		if prompt != "" && s.Instructions.NegativePrompt != "" {
			prompt += "\nNegative prompt: " + s.Instructions.NegativePrompt
		}
		plan.Options = appendOption(plan.Options, 0, "remix", "Remix", s.Instructions.LightingGuide, prompt)
	}

	if len(plan.Options) == 0 {
		return nil, fmt.Errorf("%w: analysis produced no prompts", generation.ErrInvalidResponse)
	}
	return plan, nil
}

// appendOption adds an option unless its prompt is blank. Missing IDs are
// derived from the position.
func appendOption(opts []domain.PromptOption, i int, id, title, desc, prompt string) []domain.PromptOption {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return opts
	}
	if id == "" {
		id = fmt.Sprintf("option_%d", i+1)
	}
	return append(opts, domain.PromptOption{
		ID:          id,
		Title:       title,
		Description: desc,
		Prompt:      prompt,
	})
}

// describe renders the extracted model DNA as a generation prompt.
func (s modelDNASchema) describe() string {
	d, f, v := s.Demographics, s.Features, s.Vibe
	if d.Gender == "" && f.FaceShape == "" && v.Personality == "" {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Subject DNA: %s %s, %s.\n", d.Ethnicity, d.Gender, d.AgeVibe)
	fmt.Fprintf(&b, "Facial features: %s, %s, %s.\n", f.FaceShape, f.Eyes, f.SkinTexture)
	fmt.Fprintf(&b, "Hair: %s", f.HairStyle)
	if v.HairVibe != "" {
		fmt.Fprintf(&b, ", %s", v.HairVibe)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Vibe and expression: %s.", v.Personality)
	return b.String()
}
