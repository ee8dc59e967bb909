package domain

import "time"

// EmbeddingDim is the fixed length of a style embedding vector. Analysis
// fails when the embedding provider returns any other length.
const EmbeddingDim = 1536

const (
	MaxPaletteColors   = 15
	MaxCharacteristics = 20
)

// ReferenceAnalysis holds the descriptors extracted from one reference image.
type ReferenceAnalysis struct {
	Colors              []string `json:"colors"`
	Composition         string   `json:"composition"`
	StyleDescriptors    []string `json:"style_descriptors"`
	TechnicalAttributes []string `json:"technical_attributes"`
}

// StyleReference is one reference image attached to a style profile.
type StyleReference struct {
	URL      string             `json:"url"`
	Analysis *ReferenceAnalysis `json:"analysis,omitempty"`
}

// GenerationSettings are the mutable knobs the learner adjusts over time.
type GenerationSettings struct {
	PreferredProvider string   `json:"preferred_provider,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	NegativePrompts   []string `json:"negative_prompts,omitempty"`
}

// StyleProfile is a named, user-owned bundle of style knowledge. MasterPrompt,
// ColorPalette and Characteristics are always derived together from the same
// analysis pass.
// The embedding is internal to similarity search and never serialized in
// API responses.
type StyleProfile struct {
	ID              string             `json:"id"`
	UserID          string             `json:"user_id"`
	Name            string             `json:"name"`
	References      []StyleReference   `json:"references,omitempty"`
	MasterPrompt    *string            `json:"master_prompt,omitempty"`
	Embedding       []float32          `json:"-"`
	ColorPalette    []string           `json:"color_palette,omitempty"`
	Characteristics []string           `json:"characteristics,omitempty"`
	Settings        GenerationSettings `json:"settings"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// StyleProfileUpdate carries only the fields to change; nil means "leave as
// is". Repositories must never overwrite omitted fields.
type StyleProfileUpdate struct {
	Name            *string
	References      []StyleReference
	MasterPrompt    *string
	Embedding       []float32
	ColorPalette    []string
	Characteristics []string
	Settings        *GenerationSettings
}
