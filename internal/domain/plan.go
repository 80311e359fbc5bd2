package domain

import "encoding/json"

// PromptOption is one creative direction proposed by the analysis step.
// Its Prompt is what the caller sends back when requesting a generation.
type PromptOption struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Prompt      string `json:"prompt"`
}

// Plan is the structured result of analyzing uploaded images.
type Plan struct {
	Mode            Mode           `json:"mode"`
	Rationale       string         `json:"rationale,omitempty"`
	ProductAnalysis string         `json:"product_analysis,omitempty"`
	Options         []PromptOption `json:"options"`

	// Suggestions are free-form edits the user may apply to a prompt.
	Suggestions []string `json:"suggestions,omitempty"`

	// Raw holds the model's full JSON answer.
	Raw json.RawMessage `json:"raw,omitempty"`
}
