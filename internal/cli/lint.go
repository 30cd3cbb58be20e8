package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shirley959/amazon-final/internal/relay"
)

type lintResult struct {
	Scheme   relay.AuthScheme `json:"scheme"`
	Masked   string           `json:"masked"`
	BaseURL  string           `json:"base_url"`
	Relayed  bool             `json:"relayed"`
	Warnings []string         `json:"warnings"`
}

func newLintCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Inspect the configured credential without sending anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := relay.OptionsFromConfig(st.cfg, nil)
			if err != nil {
				return err
			}
			res := lintResult{
				Scheme:   opts.Credentials.Scheme(),
				Masked:   relay.MaskSecret(st.cfg.RelayCredential()),
				BaseURL:  st.client.BaseURL(),
				Relayed:  st.client.Relayed(),
				Warnings: opts.Credentials.Lint(),
			}
			if err := st.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				printf(w, "scheme:   %s\n", res.Scheme)
				printf(w, "key:      %s\n", res.Masked)
				printf(w, "target:   %s (relayed=%t)\n", res.BaseURL, res.Relayed)
				if len(res.Warnings) == 0 {
					printf(w, "no problems found\n")
				}
				for _, warning := range res.Warnings {
					printf(w, "warning:  %s\n", warning)
				}
			}); err != nil {
				return err
			}
			if len(res.Warnings) > 0 {
				return fmt.Errorf("credential has %d warning(s)", len(res.Warnings))
			}
			return nil
		},
	}
}
