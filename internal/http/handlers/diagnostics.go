package handlers

import (
	"net/http"
	"strings"
)

type diagnosticsRequest struct {
	ModelPath string `json:"model_path,omitempty"`
}

// RelayDiagnostics sends one probe with the configured credentials and reports
// what the upstream made of them.
func (a *App) RelayDiagnostics(w http.ResponseWriter, r *http.Request) {
	var req diagnosticsRequest
	if r.ContentLength != 0 && !a.decode(w, r, &req) {
		return
	}
	modelPath := strings.TrimSpace(req.ModelPath)
	if modelPath == "" {
		modelPath = a.Config.ModelPath
	}
	report, err := a.Relay.Probe(r.Context(), modelPath)
	if err != nil {
		status, code := relayStatus(err)
		body := errorBody(code, err.Error())
		body["report"] = report
		a.json(w, status, body)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"base_url": a.Relay.BaseURL(),
		"relayed":  a.Relay.Relayed(),
		"report":   report,
	})
}
