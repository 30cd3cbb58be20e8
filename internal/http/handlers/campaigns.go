package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shirley959/amazon-final/internal/campaign"
	"github.com/shirley959/amazon-final/internal/copywriter"
	"github.com/shirley959/amazon-final/internal/middleware"
)

type campaignRequest struct {
	ProductName string              `json:"product_name"`
	Notes       string              `json:"notes,omitempty"`
	Style       string              `json:"style,omitempty"`
	Count       int                 `json:"count,omitempty"`
	Locale      string              `json:"locale,omitempty"`
	ModelPath   string              `json:"model_path,omitempty"`
	SourceImage *sourceImagePayload `json:"source_image,omitempty"`
	Strength    *float64            `json:"strength,omitempty"`
	Size        *sizePayload        `json:"size,omitempty"`
	Download    bool                `json:"download,omitempty"`
}

// CreateCampaign drafts concepts and generates one image per concept. Partial
// failures still answer 200 and are reported per item.
func (a *App) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
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
	locale := req.Locale
	if locale == "" {
		locale = middleware.LocaleFromContext(r.Context())
	}

	report, err := a.Campaigns.Run(r.Context(), campaign.Request{
		Brief: copywriter.Brief{
			ProductName: req.ProductName,
			Notes:       req.Notes,
			Style:       req.Style,
			Count:       req.Count,
			Locale:      locale,
		},
		SourceImage: source,
		Strength:    strength,
		Size:        req.Size.toSize(),
		ModelPath:   req.ModelPath,
		Download:    req.Download,
	})
	switch {
	case errors.Is(err, campaign.ErrNoProduct):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case report != nil:
		if err != nil {
			a.Logger.Warn().Err(err).Str("campaign_id", report.ID).Msg("campaign interrupted")
		}
		a.json(w, http.StatusOK, report)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		a.error(w, http.StatusRequestTimeout, "canceled", err.Error())
	default:
		a.Logger.Error().Err(err).Msg("campaign failed")
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func (a *App) GetCampaign(w http.ResponseWriter, r *http.Request) {
	report, err := a.Campaigns.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, campaign.ErrNotFound) {
		a.error(w, http.StatusNotFound, "not_found", "campaign not found")
		return
	}
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to load campaign")
		return
	}
	a.json(w, http.StatusOK, report)
}

// CampaignArchive streams the stored campaign images as a zip file.
func (a *App) CampaignArchive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var buf bytes.Buffer
	err := a.Campaigns.Archive(r.Context(), id, &buf)
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "campaign not found")
		return
	case errors.Is(err, campaign.ErrNoAssets):
		a.error(w, http.StatusConflict, "no_assets", "campaign has no downloaded images")
		return
	case err != nil:
		a.Logger.Error().Err(err).Str("campaign_id", id).Msg("archive failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=campaign-%s.zip", id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
