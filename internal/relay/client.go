package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"github.com/shirley959/amazon-final/internal/infra"
)

const defaultBaseURL = "https://fal.run"

// ErrMissingCredentials indicates the client was built without a credential value.
var ErrMissingCredentials = errors.New("relay: credentials are required")

// Options configures a Client. When RelayURL is set every request is routed
// through it instead of BaseURL.
type Options struct {
	BaseURL        string
	RelayURL       string
	Credentials    Credentials
	Policy         *Policy
	QueueHosts     []string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client submits generation jobs and resolves them to a result URL.
type Client struct {
	base       *url.URL
	relayed    bool
	creds      Credentials
	policy     Policy
	queueHosts []string
	httpClient *http.Client
	logger     *infra.Logger
	wait       func(context.Context, time.Duration) error
}

// NewClient validates options and applies defaults.
func NewClient(opts Options) (*Client, error) {
	if opts.Credentials.IsZero() {
		return nil, ErrMissingCredentials
	}
	rawBase := strings.TrimSpace(opts.RelayURL)
	relayed := rawBase != ""
	if !relayed {
		rawBase = strings.TrimSpace(opts.BaseURL)
	}
	if rawBase == "" {
		rawBase = defaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(rawBase, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("relay: invalid base url %q", rawBase)
	}
	policy := DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	queueHosts := opts.QueueHosts
	if len(queueHosts) == 0 {
		queueHosts = DefaultQueueHosts
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.Discard()
	}
	return &Client{
		base:       base,
		relayed:    relayed,
		creds:      opts.Credentials,
		policy:     policy.normalized(),
		queueHosts: queueHosts,
		httpClient: httpClient,
		logger:     logger,
		wait:       sleepContext,
	}, nil
}

// Relayed reports whether requests go through a relay host.
func (c *Client) Relayed() bool {
	return c.relayed
}

// BaseURL returns the host requests are sent to.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Policy returns the effective retry and polling policy.
func (c *Client) Policy() Policy {
	return c.policy
}

// Generate renders req and submits it to endpointPath.
func (c *Client) Generate(ctx context.Context, endpointPath string, req GenerationRequest) (*Job, error) {
	payload, err := req.Payload()
	if err != nil {
		job := newJob(endpointPath)
		job.fail(err)
		return job, err
	}
	return c.Submit(ctx, endpointPath, payload)
}

// Submit posts payload to endpointPath and resolves the job. The returned job
// is never nil, so callers can record failures; err is a *Error for every
// failure past payload encoding.
func (c *Client) Submit(ctx context.Context, endpointPath string, payload any) (*Job, error) {
	job := newJob(endpointPath)
	body, err := json.Marshal(payload)
	if err != nil {
		err = fmt.Errorf("relay: encode payload: %w", err)
		job.fail(err)
		return job, err
	}
	log := c.logger.With().Str("job_id", job.ID).Str("endpoint", endpointPath).Logger()

	raw, err := c.submitWithRetry(ctx, job, c.endpoint(endpointPath), body, &log)
	if err != nil {
		job.fail(err)
		return job, err
	}
	job.SubmitResponse = append(json.RawMessage(nil), raw...)

	if urls := imageURLs(raw); len(urls) > 0 {
		_ = job.transition(JobStatusImmediate)
		job.complete(urls)
		log.Debug().Str("url", job.ResultURL).Msg("relay: inline result")
		return job, nil
	}

	handle, err := c.resolveHandle(raw, endpointPath)
	if err != nil {
		job.fail(err)
		return job, err
	}
	job.PollURL = handle
	_ = job.transition(JobStatusQueued)
	log.Debug().Str("poll_url", handle).Msg("relay: job queued")

	if err := c.poll(ctx, job, &log); err != nil {
		job.fail(err)
		return job, err
	}
	return job, nil
}

func (c *Client) submitWithRetry(ctx context.Context, job *Job, endpoint string, body []byte, log *zerolog.Logger) ([]byte, error) {
	for retry := 0; ; retry++ {
		job.SubmitAttempts = retry + 1
		status, raw, err := c.do(ctx, http.MethodPost, endpoint, body)
		if err != nil {
			return nil, err
		}
		switch {
		case isSuccess(status):
			return raw, nil
		case c.policy.IsTransient(status):
			if retry >= c.policy.MaxSubmitRetries {
				return nil, &Error{
					Kind:       KindTransientUnavailable,
					StatusCode: status,
					Body:       string(raw),
					Attempts:   job.SubmitAttempts,
					URL:        endpoint,
				}
			}
			delay := c.policy.RetryDelay(retry)
			log.Warn().
				Int("status", status).
				Int("attempt", job.SubmitAttempts).
				Dur("delay", delay).
				Msg("relay: transient upstream status, retrying")
			if err := c.wait(ctx, delay); err != nil {
				return nil, canceled(err)
			}
		default:
			return nil, &Error{
				Kind:       KindUpstreamRejected,
				StatusCode: status,
				Body:       string(raw),
				Attempts:   job.SubmitAttempts,
				URL:        endpoint,
			}
		}
	}
}

func (c *Client) resolveHandle(raw []byte, endpointPath string) (string, error) {
	if !gjson.ValidBytes(raw) {
		return "", &Error{Kind: KindMalformedResponse, Body: string(raw), Message: "response is not valid json"}
	}
	handle, kind := pollHandle(raw)
	switch kind {
	case handleURL:
		rewritten, err := c.rewrite(handle)
		if err != nil {
			return "", &Error{Kind: KindMalformedResponse, Body: string(raw), Err: err}
		}
		return rewritten, nil
	case handleRequestID:
		return c.endpoint(endpointPath) + "/requests/" + url.PathEscape(handle) + "/status", nil
	default:
		return "", &Error{Kind: KindMalformedResponse, Body: string(raw), Message: "response has neither images nor a polling handle"}
	}
}

func (c *Client) rewrite(handle string) (string, error) {
	if !c.relayed {
		return RewriteHandle(handle, nil, c.queueHosts)
	}
	return RewriteHandle(handle, c.base, c.queueHosts)
}

func (c *Client) poll(ctx context.Context, job *Job, log *zerolog.Logger) error {
	for attempt := 1; attempt <= c.policy.MaxPollAttempts; attempt++ {
		if err := c.wait(ctx, c.policy.PollInterval); err != nil {
			return canceled(err)
		}
		if err := job.transition(JobStatusPolling); err != nil {
			return err
		}
		job.Polls = attempt
		status, raw, err := c.do(ctx, http.MethodGet, job.PollURL, nil)
		if err != nil {
			return err
		}
		if !isSuccess(status) {
			if c.policy.IsTransient(status) {
				log.Warn().Int("status", status).Int("poll", attempt).Msg("relay: transient poll status")
				continue
			}
			return &Error{Kind: KindUpstreamRejected, StatusCode: status, Body: string(raw), Attempts: attempt, URL: job.PollURL}
		}
		if !gjson.ValidBytes(raw) {
			return &Error{Kind: KindMalformedResponse, Body: string(raw), Message: "poll response is not valid json", URL: job.PollURL}
		}
		if urls := imageURLs(raw); len(urls) > 0 {
			job.complete(urls)
			log.Debug().Int("polls", attempt).Str("url", job.ResultURL).Msg("relay: job completed")
			return nil
		}
		state, message := pollState(raw)
		switch {
		case isFailureStatus(state):
			if message == "" {
				message = "upstream reported " + state
			}
			return &Error{Kind: KindGenerationFailed, Body: string(raw), Message: message, Attempts: attempt, URL: job.PollURL}
		case state == QueueStatusCompleted:
			next, kind := pollHandle(raw)
			if kind != handleURL {
				return &Error{Kind: KindMalformedResponse, Body: string(raw), Message: "completed without images", URL: job.PollURL}
			}
			rewritten, err := c.rewrite(next)
			if err != nil {
				return &Error{Kind: KindMalformedResponse, Body: string(raw), Err: err}
			}
			if rewritten == job.PollURL {
				return &Error{Kind: KindMalformedResponse, Body: string(raw), Message: "completed without images", URL: job.PollURL}
			}
			job.PollURL = rewritten
		}
		log.Debug().Int("poll", attempt).Str("status", state).Msg("relay: job pending")
	}
	return &Error{Kind: KindPollTimeout, Attempts: c.policy.MaxPollAttempts, URL: job.PollURL}
}

func (c *Client) do(ctx context.Context, method, target string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, &Error{Kind: KindNetwork, URL: target, Err: err}
	}
	req.Header.Set("Authorization", c.creds.AuthorizationHeader())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, canceled(ctxErr)
		}
		return 0, nil, &Error{Kind: KindNetwork, URL: target, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &Error{Kind: KindNetwork, URL: target, Err: fmt.Errorf("read response: %w", err)}
	}
	return resp.StatusCode, raw, nil
}

func (c *Client) endpoint(endpointPath string) string {
	return c.base.String() + "/" + strings.TrimLeft(strings.TrimSpace(endpointPath), "/")
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
