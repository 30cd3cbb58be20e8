package relay

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// SourceImage is the product photo used as conditioning input. Data is sent
// inline as a data URI; URL is used only when Data is empty.
type SourceImage struct {
	Data []byte
	MIME string
	URL  string
}

// DataURI renders the image for the image_url payload field.
func (s *SourceImage) DataURI() string {
	if s == nil {
		return ""
	}
	if len(s.Data) == 0 {
		return strings.TrimSpace(s.URL)
	}
	mime := strings.TrimSpace(s.MIME)
	if mime == "" {
		mime = http.DetectContentType(s.Data)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(s.Data)
}

// ImageSize is either explicit dimensions or a provider preset such as
// "1024x1024" or "landscape_4_3". Preset wins when both are set.
type ImageSize struct {
	Width  int
	Height int
	Preset string
}

func (s ImageSize) IsZero() bool {
	return s.Preset == "" && s.Width <= 0 && s.Height <= 0
}

func (s ImageSize) MarshalJSON() ([]byte, error) {
	if preset := strings.TrimSpace(s.Preset); preset != "" {
		return json.Marshal(preset)
	}
	return json.Marshal(struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}{s.Width, s.Height})
}

// GenerationRequest is constructed per call and not modified after Submit.
type GenerationRequest struct {
	Prompt        string
	SourceImage   *SourceImage
	Strength      float64
	Size          ImageSize
	Steps         int
	GuidanceScale float64
	SafetyCheck   bool
}

// Validate checks the request before it is rendered.
func (r GenerationRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return errors.New("relay: prompt is required")
	}
	if r.Strength < 0 || r.Strength > 1 {
		return fmt.Errorf("relay: strength must be within [0,1], got %g", r.Strength)
	}
	if r.Size.Preset == "" && (r.Size.Width < 0 || r.Size.Height < 0) {
		return errors.New("relay: image size must be positive")
	}
	if r.Steps < 0 {
		return errors.New("relay: steps must not be negative")
	}
	if r.GuidanceScale < 0 {
		return errors.New("relay: guidance scale must not be negative")
	}
	return nil
}

// Payload renders the upstream JSON body.
func (r GenerationRequest) Payload() (map[string]any, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	payload := map[string]any{
		"prompt":                strings.TrimSpace(r.Prompt),
		"enable_safety_checker": r.SafetyCheck,
	}
	if uri := r.SourceImage.DataURI(); uri != "" {
		payload["image_url"] = uri
		payload["strength"] = r.Strength
	}
	if !r.Size.IsZero() {
		payload["image_size"] = r.Size
	}
	if r.Steps > 0 {
		payload["num_inference_steps"] = r.Steps
	}
	if r.GuidanceScale > 0 {
		payload["guidance_scale"] = r.GuidanceScale
	}
	return payload, nil
}
