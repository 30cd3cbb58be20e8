package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shirley959/amazon-final/internal/campaign"
	"github.com/shirley959/amazon-final/internal/infra"
	"github.com/shirley959/amazon-final/internal/jobstore"
	"github.com/shirley959/amazon-final/internal/relay"
	"github.com/shirley959/amazon-final/internal/session"
)

const maxBodyBytes = 16 << 20

// RelayClient is satisfied by *relay.Client.
type RelayClient interface {
	Generate(ctx context.Context, endpointPath string, req relay.GenerationRequest) (*relay.Job, error)
	Probe(ctx context.Context, endpointPath string) (*relay.ProbeReport, error)
	Relayed() bool
	BaseURL() string
}

// CampaignRunner is satisfied by *campaign.Service.
type CampaignRunner interface {
	Run(ctx context.Context, req campaign.Request) (*campaign.Report, error)
	Get(ctx context.Context, campaignID string) (*campaign.Report, error)
	Archive(ctx context.Context, campaignID string, w io.Writer) error
}

// App holds the dependencies shared by all handlers.
type App struct {
	Config    *infra.Config
	Logger    *infra.Logger
	Sessions  *session.Issuer
	Relay     RelayClient
	Campaigns CampaignRunner
	Jobs      jobstore.Store
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, msg string) {
	a.json(w, code, errorBody(errCode, msg))
}

func errorBody(code, msg string) map[string]any {
	return map[string]any{"error": map[string]string{"code": code, "message": msg}}
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return false
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload: "+err.Error())
		return false
	}
	return true
}

// relayStatus maps a relay failure onto the HTTP status returned to callers.
func relayStatus(err error) (int, string) {
	kind := relay.KindOf(err)
	switch kind {
	case relay.KindTransientUnavailable:
		return http.StatusServiceUnavailable, string(kind)
	case relay.KindUpstreamRejected, relay.KindMalformedResponse, relay.KindNetwork:
		return http.StatusBadGateway, string(kind)
	case relay.KindGenerationFailed:
		return http.StatusUnprocessableEntity, string(kind)
	case relay.KindPollTimeout:
		return http.StatusGatewayTimeout, string(kind)
	case relay.KindCanceled:
		return http.StatusRequestTimeout, string(kind)
	default:
		return http.StatusBadRequest, "bad_request"
	}
}
