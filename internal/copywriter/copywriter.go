// Package copywriter drafts marketing concepts (title, subtitle and image
// prompt) that a campaign turns into generation jobs.
package copywriter

import (
	"context"
	"errors"
)

const (
	providerStatic = "static"
	providerOpenAI = "openai"

	defaultCount = 4
	maxCount     = 12
)

// ErrMissingAPIKey is returned by NewOpenAIWriter without a key.
var ErrMissingAPIKey = errors.New("copywriter: openai api key is required")

// Brief describes the product a campaign is about.
type Brief struct {
	ProductName string `json:"product_name"`
	Notes       string `json:"notes,omitempty"`
	Style       string `json:"style,omitempty"`
	Count       int    `json:"count,omitempty"`
	Locale      string `json:"locale,omitempty"`
}

// Normalized fills defaults and clamps Count.
func (b Brief) Normalized() Brief {
	if b.Count <= 0 {
		b.Count = defaultCount
	}
	if b.Count > maxCount {
		b.Count = maxCount
	}
	if b.Locale == "" {
		b.Locale = "en"
	}
	return b
}

// Concept is one image in a campaign.
type Concept struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	ImagePrompt string `json:"image_prompt"`
}

// Draft is the writer output. Degraded is set when the model reply had to be
// repaired; Issues lists one entry per repaired line.
type Draft struct {
	Concepts []Concept         `json:"concepts"`
	Provider string            `json:"provider"`
	Degraded bool              `json:"degraded"`
	Issues   []string          `json:"issues,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Writer turns a brief into concepts.
type Writer interface {
	Draft(ctx context.Context, brief Brief) (*Draft, error)
}
