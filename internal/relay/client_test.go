package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   string
}

// upstream is a scripted fake: POST answers come from submit, GET answers from
// polls, in order. The last entry repeats once the script runs out.
type upstream struct {
	mu       sync.Mutex
	submit   []stubResponse
	polls    []stubResponse
	requests []recordedRequest
	posts    int
	gets     int
}

type stubResponse struct {
	status int
	body   string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	u.mu.Lock()
	u.requests = append(u.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: string(body)})
	var script []stubResponse
	var idx int
	if r.Method == http.MethodPost {
		script, idx = u.submit, u.posts
		u.posts++
	} else {
		script, idx = u.polls, u.gets
		u.gets++
	}
	u.mu.Unlock()
	if len(script) == 0 {
		http.Error(w, "no script", http.StatusNotImplemented)
		return
	}
	if idx >= len(script) {
		idx = len(script) - 1
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(script[idx].status)
	_, _ = io.WriteString(w, script[idx].body)
}

func (u *upstream) counts() (int, int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.posts, u.gets
}

func fastPolicy() *Policy {
	return &Policy{
		MaxSubmitRetries:     3,
		TransientStatusCodes: DefaultTransientStatusCodes,
		MaxPollAttempts:      10,
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, mutate func(*Options)) *Client {
	t.Helper()
	opts := Options{
		BaseURL:     srv.URL,
		Credentials: KeyToken("secret"),
		Policy:      fastPolicy(),
		HTTPClient:  srv.Client(),
	}
	if mutate != nil {
		mutate(&opts)
	}
	client, err := NewClient(opts)
	require.NoError(t, err)
	return client
}

func TestSubmitRetriesTransientStatusesThenGivesUp(t *testing.T) {
	for _, status := range []int{500, 502, 503, 504} {
		status := status
		t.Run(http.StatusText(status), func(t *testing.T) {
			up := &upstream{submit: []stubResponse{{status: status, body: `{"detail":"busy"}`}}}
			srv := httptest.NewServer(up)
			defer srv.Close()

			client := newTestClient(t, srv, nil)
			job, err := client.Submit(context.Background(), "fal-ai/flux-1/dev", map[string]any{"prompt": "x"})

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTransientUnavailable)
			posts, gets := up.counts()
			assert.Equal(t, 1+3, posts, "one attempt plus exactly MaxSubmitRetries retries")
			assert.Zero(t, gets)
			assert.Equal(t, JobStatusFailed, job.Status)
			assert.Equal(t, KindTransientUnavailable, job.ErrorKind)

			var relayErr *Error
			require.True(t, errors.As(err, &relayErr))
			assert.Equal(t, status, relayErr.StatusCode)
			assert.Equal(t, 4, relayErr.Attempts)
		})
	}
}

func TestSubmitRecoversAfterTransientStatus(t *testing.T) {
	up := &upstream{submit: []stubResponse{
		{status: http.StatusBadGateway, body: "bad gateway"},
		{status: http.StatusOK, body: `{"images":[{"url":"https://cdn.example/ok.png"}]}`},
	}}
	srv := httptest.NewServer(up)
	defer srv.Close()

	job, err := newTestClient(t, srv, nil).Submit(context.Background(), "fal-ai/flux-1/dev", map[string]any{"prompt": "x"})

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/ok.png", job.ResultURL)
	assert.Equal(t, 2, job.SubmitAttempts)
}

func TestSubmitNeverRetriesClientErrors(t *testing.T) {
	for _, status := range []int{400, 401, 403, 404, 422, 429} {
		status := status
		t.Run(http.StatusText(status), func(t *testing.T) {
			body := `{"detail":"Token not provided"}`
			up := &upstream{submit: []stubResponse{{status: status, body: body}}}
			srv := httptest.NewServer(up)
			defer srv.Close()

			_, err := newTestClient(t, srv, nil).Submit(context.Background(), "fal-ai/flux-1/dev", map[string]any{"prompt": "x"})

			require.ErrorIs(t, err, ErrUpstreamRejected)
			var relayErr *Error
			require.True(t, errors.As(err, &relayErr))
			assert.Equal(t, body, relayErr.Body)
			assert.Equal(t, 1, relayErr.Attempts)
			posts, _ := up.counts()
			assert.Equal(t, 1, posts)
		})
	}
}

func TestSubmitInlineImagesSkipsPolling(t *testing.T) {
	up := &upstream{submit: []stubResponse{{status: http.StatusOK, body: `{"images":[{"url":"X"},{"url":"Z"}]}`}}}
	srv := httptest.NewServer(up)
	defer srv.Close()

	job, err := newTestClient(t, srv, nil).Submit(context.Background(), "fal-ai/flux-1/dev", map[string]any{"prompt": "x"})

	require.NoError(t, err)
	assert.Equal(t, "X", job.ResultURL)
	assert.Equal(t, []string{"X", "Z"}, job.Images)
	assert.Equal(t, JobStatusCompleted, job.Status)
	_, gets := up.counts()
	assert.Zero(t, gets)
	assert.Zero(t, job.Polls)
}

func TestSubmitSendsCredentialsAndPayload(t *testing.T) {
	up := &upstream{submit: []stubResponse{{status: http.StatusOK, body: `{"images":["https://cdn.example/a.png"]}`}}}
	srv := httptest.NewServer(up)
	defer srv.Close()

	client := newTestClient(t, srv, func(o *Options) { o.Credentials = BearerToken("tok") })
	job, err := client.Generate(context.Background(), "/fal-ai/flux/dev/image-to-image", GenerationRequest{
		Prompt:        "a bottle on marble",
		SourceImage:   &SourceImage{Data: []byte{0x89, 'P', 'N', 'G'}, MIME: "image/png"},
		Strength:      0.6,
		Size:          ImageSize{Width: 1024, Height: 768},
		Steps:         28,
		GuidanceScale: 3.5,
		SafetyCheck:   true,
	})

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.png", job.ResultURL)
	require.Len(t, up.requests, 1)
	got := up.requests[0]
	assert.Equal(t, "/fal-ai/flux/dev/image-to-image", got.Path)
	assert.Equal(t, "Bearer tok", got.Auth)
	assert.Contains(t, got.Body, `"image_url":"data:image/png;base64,iVBORw=="`)
	assert.Contains(t, got.Body, `"image_size":{"width":1024,"height":768}`)
	assert.Contains(t, got.Body, `"strength":0.6`)
	assert.Contains(t, got.Body, `"num_inference_steps":28`)
	assert.Contains(t, got.Body, `"enable_safety_checker":true`)
}

func TestSubmitPollsUntilCompleted(t *testing.T) {
	up := &upstream{
		submit: []stubResponse{{status: http.StatusOK, body: `{"request_id":"req-1"}`}},
		polls: []stubResponse{
			{status: http.StatusOK, body: `{"status":"IN_QUEUE"}`},
			{status: http.StatusOK, body: `{"status":"IN_PROGRESS"}`},
			{status: http.StatusOK, body: `{"status":"COMPLETED","images":[{"url":"Y"}]}`},
		},
	}
	srv := httptest.NewServer(up)
	defer srv.Close()

	job, err := newTestClient(t, srv, nil).Submit(context.Background(), "fal-ai/flux-1/dev", map[string]any{"prompt": "x"})

	require.NoError(t, err)
	assert.Equal(t, "Y", job.ResultURL)
	assert.Equal(t, 3, job.Polls)
	_, gets := up.counts()
	assert.Equal(t, 3, gets)
	for _, req := range up.requests[1:] {
		assert.Equal(t, "/fal-ai/flux-1/dev/requests/req-1/status", req.Path)
		assert.Equal(t, "Key secret", req.Auth)
	}
}

func TestSubmitPollTimeoutStopsAtLimit(t *testing.T) {
	up := &upstream{
		submit: []stubResponse{{status: http.StatusOK, body: `{"request_id":"req-2"}`}},
		polls:  []stubResponse{{status: http.StatusOK, body: `{"status":"IN_PROGRESS"}`}},
	}
	srv := httptest.NewServer(up)
	defer srv.Close()

	client := newTestClient(t, srv, func(o *Options) {
		p := fastPolicy()
		p.MaxPollAttempts = 5
		o.Policy = p
	})
	job, err := client.Submit(context.Background(), "fal-ai/flux-1/dev", map[string]any{"prompt": "x"})

	require.ErrorIs(t, err, ErrPollTimeout)
	_, gets := up.counts()
	assert.Equal(t, 5, gets)
	assert.Equal(t, JobStatusTimedOut, job.Status)
	assert.Equal(t, KindPollTimeout, job.ErrorKind)
}

func TestSubmitGenerationFailedCarriesUpstreamMessage(t *testing.T) {
	up := &upstream{
		submit: []stubResponse{{status: http.StatusOK, body: `{"request_id":"req-3"}`}},
		polls: []stubResponse{
			{status: http.StatusOK, body: `{"status":"IN_PROGRESS"}`},
			{status: http.StatusOK, body: `{"status":"FAILED","error":"NSFW content detected"}`},
		},
	}
	srv := httptest.NewServer(up)
	defer srv.Close()

	job, err := newTestClient(t, srv, nil).Submit(context.Background(), "fal-ai/flux-1/dev", map[string]any{"prompt": "x"})

	require.ErrorIs(t, err, ErrGenerationFailed)
	var relayErr *Error
	require.True(t, errors.As(err, &relayErr))
	assert.Equal(t, "NSFW content detected", relayErr.Message)
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 2, job.Polls)
}

func TestSubmitMalformedResponse(t *testing.T) {
	for name, body := range map[string]string{
		"unknown shape": `{"hello":"world"}`,
		"not json":      `<html>oops</html>`,
	} {
		body := body
		t.Run(name, func(t *testing.T) {
			up := &upstream{submit: []stubResponse{{status: http.StatusOK, body: body}}}
			srv := httptest.NewServer(up)
			defer srv.Close()

			_, err := newTestClient(t, srv, nil).Submit(context.Background(), "m", map[string]any{"prompt": "x"})

			require.ErrorIs(t, err, ErrMalformedResponse)
			var relayErr *Error
			require.True(t, errors.As(err, &relayErr))
			assert.Equal(t, body, relayErr.Body)
		})
	}
}

func TestSubmitRoutesResponseURLThroughRelay(t *testing.T) {
	var relayBase string
	up := &upstream{
		polls: []stubResponse{{status: http.StatusOK, body: `{"images":[{"url":"R"}]}`}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"response_url":"https://queue.fal.run/fal-ai/flux-1/requests/abc"}`)
			return
		}
		up.ServeHTTP(w, r)
	}))
	defer srv.Close()
	relayBase = srv.URL

	client, err := NewClient(Options{
		RelayURL:    relayBase,
		Credentials: BearerToken("tok"),
		Policy:      fastPolicy(),
		HTTPClient:  srv.Client(),
	})
	require.NoError(t, err)
	job, err := client.Submit(context.Background(), "fal-ai/flux-1/dev", map[string]any{"prompt": "x"})

	require.NoError(t, err)
	assert.Equal(t, relayBase+"/fal-ai/flux-1/requests/abc", job.PollURL)
	assert.Equal(t, "R", job.ResultURL)
	require.Len(t, up.requests, 1)
	assert.Equal(t, "/fal-ai/flux-1/requests/abc", up.requests[0].Path)
	assert.Equal(t, "Bearer tok", up.requests[0].Auth)
}

func TestSubmitTransientPollStatusKeepsPolling(t *testing.T) {
	up := &upstream{
		submit: []stubResponse{{status: http.StatusOK, body: `{"request_id":"req-4"}`}},
		polls: []stubResponse{
			{status: http.StatusServiceUnavailable, body: "unavailable"},
			{status: http.StatusOK, body: `{"status":"COMPLETED","images":[{"url":"W"}]}`},
		},
	}
	srv := httptest.NewServer(up)
	defer srv.Close()

	job, err := newTestClient(t, srv, nil).Submit(context.Background(), "m", map[string]any{"prompt": "x"})

	require.NoError(t, err)
	assert.Equal(t, "W", job.ResultURL)
	posts, gets := up.counts()
	assert.Equal(t, 1, posts, "accepted jobs are never resubmitted")
	assert.Equal(t, 2, gets)
}

func TestSubmitNetworkErrorIsNotRetried(t *testing.T) {
	var calls int32
	client, err := NewClient(Options{
		BaseURL:     "https://relay.invalid",
		Credentials: KeyToken("k"),
		Policy:      fastPolicy(),
		HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			atomic.AddInt32(&calls, 1)
			return nil, errors.New("dial tcp: connection refused")
		})},
	})
	require.NoError(t, err)

	job, err := client.Submit(context.Background(), "m", map[string]any{"prompt": "x"})

	require.ErrorIs(t, err, ErrNetwork)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.Equal(t, JobStatusFailed, job.Status)
}

func TestSubmitHonoursCancellationDuringPolling(t *testing.T) {
	up := &upstream{
		submit: []stubResponse{{status: http.StatusOK, body: `{"request_id":"req-5"}`}},
		polls:  []stubResponse{{status: http.StatusOK, body: `{"status":"IN_PROGRESS"}`}},
	}
	srv := httptest.NewServer(up)
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	ctx, cancel := context.WithCancel(context.Background())
	var waits int
	client.wait = func(ctx context.Context, d time.Duration) error {
		waits++
		if waits == 3 {
			cancel()
		}
		return ctx.Err()
	}

	job, err := client.Submit(ctx, "m", map[string]any{"prompt": "x"})

	require.ErrorIs(t, err, ErrCanceled)
	assert.ErrorIs(t, err, context.Canceled)
	_, gets := up.counts()
	assert.Equal(t, 2, gets)
	assert.Equal(t, JobStatusFailed, job.Status)
}

func TestSubmitRetryDelaysFollowBackoff(t *testing.T) {
	up := &upstream{submit: []stubResponse{{status: http.StatusServiceUnavailable, body: "busy"}}}
	srv := httptest.NewServer(up)
	defer srv.Close()

	client := newTestClient(t, srv, func(o *Options) {
		o.Policy = &Policy{
			MaxSubmitRetries:    3,
			SubmitRetryDelay:    time.Second,
			BackoffFactor:       2,
			MaxSubmitRetryDelay: 3 * time.Second,
			MaxPollAttempts:     1,
		}
	})
	var delays []time.Duration
	client.wait = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_, err := client.Submit(context.Background(), "m", map[string]any{"prompt": "x"})

	require.ErrorIs(t, err, ErrTransientUnavailable)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, delays)
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "https://fal.run"})
	require.ErrorIs(t, err, ErrMissingCredentials)

	_, err = NewClient(Options{BaseURL: "::not a url", Credentials: KeyToken("k")})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid base url"))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
