package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shirley959/amazon-final/internal/infra"
)

func TestOptionsFromConfig(t *testing.T) {
	cfg := &infra.Config{
		RelayBaseURL:     "https://relay.example",
		UpstreamBaseURL:  "https://fal.run",
		QueueHosts:       []string{"queue.fal.run"},
		RelayAuthScheme:  "BasicBase64Pair",
		RelayKeyID:       "abc",
		RelayKeySecret:   "def",
		MaxSubmitRetries: 5,
		SubmitRetryDelay: time.Second,
		PollInterval:     3 * time.Second,
		MaxPollAttempts:  20,
	}

	opts, err := OptionsFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "Key YWJjOmRlZg==", opts.Credentials.AuthorizationHeader())
	assert.Equal(t, 5, opts.Policy.MaxSubmitRetries)
	assert.Equal(t, 20, opts.Policy.MaxPollAttempts)

	client, err := NewClient(opts)
	require.NoError(t, err)
	assert.True(t, client.Relayed())
	assert.Equal(t, "https://relay.example", client.BaseURL())
}

func TestOptionsFromConfigRejectsUnknownScheme(t *testing.T) {
	_, err := OptionsFromConfig(&infra.Config{RelayAuthScheme: "digest", RelayAPIKey: "k"}, nil)
	assert.Error(t, err)
}
