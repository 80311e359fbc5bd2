package gemini

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/generation"
)

const remixSystemPrompt = `You are the creative director of a jewelry photo studio.
Study the reference image and the product images. Plan a single photograph that
places the products into the reference scene, honoring the user's instruction and
freedom level (0 keeps the scene exactly, 10 allows a full reinterpretation).
Answer with JSON only:
{"remix_rationale": string,
 "nano_banana_instructions": {"visual_prompt": string, "negative_prompt": string,
   "structure_lock": number, "creativity_level": number, "lighting_guide": string}}`

const tryOnSchemaPrompt = `You are the creative director of a jewelry try-on studio.
The first image shows a model, the following images show jewelry to be worn.
Analyze the jewelry material and design three distinct try-on shots. Follow the
requested sub-mode: KEEP_LOOK preserves the model's facial identity, DIGITAL_REMIX
creates a new person with a similar vibe.
Answer with JSON only:
{"status": string,
 "creative_analysis": {"product_material": string, "lighting_strategy": string, "anti_plagiarism_note": string},
 "imagen_instructions": {"engine": string, "prompts": [
   {"id": string, "ui_title": string, "ui_description": string, "master_prompt": string}]}}`

const modelDNASystemPrompt = `You are a casting director. Extract the visual DNA of the
person in the reference image so a new, copyright-free model can be created from it.
Ignore clothing and jewelry.
Answer with JSON only:
{"demographics": {"race_ethnicity": string, "gender": string, "age_vibe": string},
 "visual_features": {"face_shape": string, "eye_characteristics": string, "skin_texture": string, "hair_style": string},
 "vibe_and_style": {"personality_tag": string, "hair_vibe_keywords": string},
 "user_editable_suggestions": [string]}`

const studioSystemPrompt = `You are a commercial jewelry photographer. Identify the
product's material and finish, then design three studio concepts that satisfy the
user's requirements.
Answer with JSON only:
{"product_material_analysis": string, "user_requirement_analysis": string,
 "concepts": [{"id": string, "style_name": string, "design_rationale": string,
   "suggested_props": [string], "lighting_setup": string, "props_and_scene": string,
   "camera_angle": string, "full_prompt_for_nano_banana": string}]}`

// systemPrompt returns the analysis instruction for mode.
func systemPrompt(mode domain.Mode) string {
	switch mode {
	case domain.ModeTryOn:
		return tryOnSchemaPrompt
	case domain.ModeCustomModel:
		return modelDNASystemPrompt
	case domain.ModeStudio:
		return studioSystemPrompt
	default:
		return remixSystemPrompt
	}
}

const studioNegativePrompt = "blurry, low quality, distorted, bad geometry, watermark, text"

const customModelNegativePrompt = "shoes, socks, jewelry, earrings, necklace, accessories, heavy makeup, " +
	"fancy dress, complex background, distorted face, low quality, bad anatomy, blur, merged bodies, " +
	"missing limbs, side view, looking away, profile, asymmetric, turned head"

// imagePromptTemplate composes the text part of an image request.
var imagePromptTemplate = template.Must(template.New("image").Parse(
	`{{if .Lead}}{{.Lead}}
{{end}}{{.Prompt}}
{{- if gt .Variants 1}}

Variation {{.Number}} of {{.Variants}}: make this shot clearly distinct from the other versions by changing the camera angle, lighting nuance or composition.
{{- end}}
{{- if .Fidelity}}

{{.Fidelity}}
{{- end}}
{{- if .Negative}}

Negative prompt: {{.Negative}}
{{- end}}

Output: {{.Size}} resolution, {{.AspectRatio}} aspect ratio.`))

type imagePromptData struct {
	Lead        string
	Prompt      string
	Number      int
	Variants    int
	Fidelity    string
	Negative    string
	Size        domain.ImageSize
	AspectRatio domain.AspectRatio
}

// buildImagePrompt renders the instruction text for req.
func buildImagePrompt(req generation.ImageRequest) (string, error) {
	data := imagePromptData{
		Prompt:      req.Prompt,
		Number:      req.Variant + 1,
		Variants:    req.Variants,
		Size:        req.Size,
		AspectRatio: req.AspectRatio,
	}

	switch req.Mode {
	case domain.ModeTryOn:
		if req.Strict && len(req.ReferenceImage) > 0 {
			data.Lead = "Task: remove any existing jewelry on the model and make the model wear ALL provided jewelry. " +
				"Keep the model's face and skin tone exactly as in the reference image."
		}
	case domain.ModeRemix:
		if req.Strict && len(req.ReferenceImage) > 0 {
			data.Lead = "Insert the provided objects into the reference scene, keeping its structure intact."
		}
	case domain.ModeStudio:
		data.Negative = studioNegativePrompt
	case domain.ModeCustomModel:
		data.Lead = "VIEW: full body front, facing the camera directly, symmetrical pose, eyes looking at camera. " +
			"Wearing a tight black sleeveless tank top and black fitted shorts, barefoot, on a pure white studio background."
		data.Fidelity = fidelityInstruction(req.FreedomLevel)
		data.Negative = customModelNegativePrompt
	}

	var buf bytes.Buffer
	if err := imagePromptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute image prompt template: %w", err)
	}
	return buf.String(), nil
}

// fidelityInstruction says how closely a custom model must follow the
// reference person for a freedom level between 0 and 10.
func fidelityInstruction(level int) string {
	switch {
	case level <= 0:
		return "Strictly preserve the exact identity and facial structure of the reference image. Do not change the person."
	case level <= 2:
		return "Maintain a strong resemblance to the reference image. Lighting and skin texture may be optimized."
	case level <= 4:
		return "Create a sibling look: keep the bone structure but noticeably change the eyes, nose and mouth."
	case level <= 7:
		return "Use the reference only for lighting and general vibe. Create a new face from the DNA description."
	default:
		return "Ignore the reference person entirely and create a new model from the DNA description only."
	}
}

// usesReference reports whether the reference image is sent with an image request.
func usesReference(req generation.ImageRequest) bool {
	if len(req.ReferenceImage) == 0 {
		return false
	}
	if req.Mode == domain.ModeCustomModel {
		return req.FreedomLevel <= 8
	}
	return req.Strict
}
