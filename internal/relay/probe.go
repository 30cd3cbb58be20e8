package relay

import (
	"context"
	"net/http"
	"strings"
)

// Verdict summarises what a probe revealed about the configured credentials.
type Verdict string

const (
	VerdictKeyAccepted  Verdict = "key_accepted"
	VerdictKeyRejected  Verdict = "key_rejected"
	VerdictUpstreamDown Verdict = "upstream_down"
	VerdictUnknown      Verdict = "unknown"
)

// ProbeReport describes a single credential probe.
type ProbeReport struct {
	Endpoint      string   `json:"endpoint"`
	AuthScheme    string   `json:"auth_scheme"`
	HeaderPreview string   `json:"header_preview"`
	StatusCode    int      `json:"status_code"`
	Body          string   `json:"body"`
	Verdict       Verdict  `json:"verdict"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Probe sends a deliberately incomplete payload once, without retries, and
// infers from the upstream's complaint whether the credentials were accepted.
// A validation error means auth passed; a missing-token error means it did not.
func (c *Client) Probe(ctx context.Context, endpointPath string) (*ProbeReport, error) {
	endpoint := c.endpoint(endpointPath)
	report := &ProbeReport{
		Endpoint:      endpoint,
		AuthScheme:    string(c.creds.Scheme()),
		HeaderPreview: previewHeader(c.creds.AuthorizationHeader()),
		Warnings:      c.creds.Lint(),
	}
	status, raw, err := c.do(ctx, http.MethodPost, endpoint, []byte(`{"test":"ping"}`))
	if err != nil {
		return report, err
	}
	report.StatusCode = status
	report.Body = string(raw)
	report.Verdict = classifyProbe(status, report.Body)
	c.logger.Info().
		Str("endpoint", endpoint).
		Int("status", status).
		Str("verdict", string(report.Verdict)).
		Msg("relay: probe finished")
	return report, nil
}

func classifyProbe(status int, body string) Verdict {
	lower := strings.ToLower(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden || strings.Contains(lower, "token not provided"):
		return VerdictKeyRejected
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || strings.Contains(lower, "validation error"):
		return VerdictKeyAccepted
	case status >= 500:
		return VerdictUpstreamDown
	case isSuccess(status):
		return VerdictKeyAccepted
	default:
		return VerdictUnknown
	}
}

func previewHeader(header string) string {
	if len(header) <= 15 {
		return header
	}
	return header[:15] + "..."
}
