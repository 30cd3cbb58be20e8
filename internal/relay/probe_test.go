package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyProbe(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   Verdict
	}{
		{status: 401, body: `{"detail":"Unauthorized"}`, want: VerdictKeyRejected},
		{status: 400, body: `{"detail":"Token not provided"}`, want: VerdictKeyRejected},
		{status: 422, body: `{"detail":[{"msg":"field required"}]}`, want: VerdictKeyAccepted},
		{status: 400, body: `Validation Error`, want: VerdictKeyAccepted},
		{status: 500, body: `crash`, want: VerdictUpstreamDown},
		{status: 200, body: `{}`, want: VerdictKeyAccepted},
		{status: 404, body: `not found`, want: VerdictUnknown},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, classifyProbe(tc.status, tc.body), "status %d body %q", tc.status, tc.body)
	}
}

func TestProbeSendsSinglePing(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"test":"ping"}`, string(body))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "upstream restarting")
	}))
	defer srv.Close()

	client := newTestClient(t, srv, func(o *Options) { o.Credentials = BearerToken("sk-0123456789abcdef") })
	report, err := client.Probe(context.Background(), "fal-ai/flux-1/dev")

	require.NoError(t, err)
	assert.Equal(t, 1, calls, "probe never retries")
	assert.Equal(t, VerdictUpstreamDown, report.Verdict)
	assert.Equal(t, "Bearer sk-01234...", report.HeaderPreview)
	assert.Equal(t, srv.URL+"/fal-ai/flux-1/dev", report.Endpoint)
}
