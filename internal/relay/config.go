package relay

import (
	"fmt"

	"github.com/shirley959/amazon-final/internal/infra"
)

// OptionsFromConfig builds client options from the process configuration.
func OptionsFromConfig(cfg *infra.Config, logger *infra.Logger) (Options, error) {
	scheme, err := ParseAuthScheme(cfg.RelayAuthScheme)
	if err != nil {
		return Options{}, err
	}
	creds, err := NewCredentials(scheme, cfg.RelayCredential())
	if err != nil {
		return Options{}, fmt.Errorf("relay: build credentials: %w", err)
	}
	return Options{
		BaseURL:     cfg.UpstreamBaseURL,
		RelayURL:    cfg.RelayBaseURL,
		Credentials: creds,
		QueueHosts:  cfg.QueueHosts,
		Logger:      logger,
		Policy: &Policy{
			MaxSubmitRetries:     cfg.MaxSubmitRetries,
			TransientStatusCodes: DefaultTransientStatusCodes,
			SubmitRetryDelay:     cfg.SubmitRetryDelay,
			BackoffFactor:        2,
			MaxSubmitRetryDelay:  DefaultMaxSubmitRetryDelay,
			PollInterval:         cfg.PollInterval,
			MaxPollAttempts:      cfg.MaxPollAttempts,
		},
	}, nil
}
