package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/shirley959/amazon-final/internal/jobstore"
	"github.com/shirley959/amazon-final/internal/middleware"
	"github.com/shirley959/amazon-final/internal/relay"
)

type sourceImagePayload struct {
	Base64 string `json:"base64,omitempty"`
	MIME   string `json:"mime,omitempty"`
	URL    string `json:"url,omitempty"`
}

func (p *sourceImagePayload) toSource() (*relay.SourceImage, error) {
	if p == nil || (p.Base64 == "" && p.URL == "") {
		return nil, nil
	}
	if p.Base64 == "" {
		return &relay.SourceImage{URL: p.URL}, nil
	}
	raw := p.Base64
	if _, after, ok := strings.Cut(raw, ";base64,"); ok {
		raw = after
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, errors.New("source_image.base64 is not valid base64")
	}
	return &relay.SourceImage{Data: data, MIME: p.MIME}, nil
}

type sizePayload struct {
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Preset string `json:"preset,omitempty"`
}

func (s *sizePayload) toSize() relay.ImageSize {
	if s == nil {
		return relay.ImageSize{}
	}
	return relay.ImageSize{Width: s.Width, Height: s.Height, Preset: s.Preset}
}

type generationRequest struct {
	Prompt        string              `json:"prompt"`
	ModelPath     string              `json:"model_path,omitempty"`
	SourceImage   *sourceImagePayload `json:"source_image,omitempty"`
	Strength      *float64            `json:"strength,omitempty"`
	Size          *sizePayload        `json:"size,omitempty"`
	Steps         int                 `json:"steps,omitempty"`
	GuidanceScale float64             `json:"guidance_scale,omitempty"`
	SafetyCheck   bool                `json:"safety_check,omitempty"`
}

const defaultStrength = 0.75

// CreateGeneration submits one job and blocks until it resolves.
func (a *App) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var req generationRequest
	if !a.decode(w, r, &req) {
		return
	}
	source, err := req.SourceImage.toSource()
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	strength := defaultStrength
	if req.Strength != nil {
		strength = *req.Strength
	}
	modelPath := strings.TrimSpace(req.ModelPath)
	if modelPath == "" {
		modelPath = a.Config.ModelPath
	}

	job, err := a.Relay.Generate(r.Context(), modelPath, relay.GenerationRequest{
		Prompt:        req.Prompt,
		SourceImage:   source,
		Strength:      strength,
		Size:          req.Size.toSize(),
		Steps:         req.Steps,
		GuidanceScale: req.GuidanceScale,
		SafetyCheck:   req.SafetyCheck,
	})
	if job != nil && job.Status != relay.JobStatusPending {
		if serr := a.Jobs.Save(r.Context(), &jobstore.Record{Job: *job}); serr != nil {
			a.Logger.Error().Err(serr).Str("job_id", job.ID).Msg("generation: save job")
		}
	}
	if err != nil {
		status, code := relayStatus(err)
		a.Logger.Warn().
			Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("model_path", modelPath).
			Msg("generation failed")
		body := errorBody(code, err.Error())
		if job != nil && job.Status != relay.JobStatusPending {
			body["job"] = job
		}
		a.json(w, status, body)
		return
	}
	a.json(w, http.StatusOK, job)
}

// GetGeneration returns a stored job.
func (a *App) GetGeneration(w http.ResponseWriter, r *http.Request) {
	rec, err := a.Jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, jobstore.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", "generation not found")
		return
	}
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load generation")
		return
	}
	a.json(w, http.StatusOK, rec)
}
