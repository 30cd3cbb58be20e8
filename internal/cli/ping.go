package cli

import (
	"io"

	"github.com/spf13/cobra"
)

func newPingCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Send one probe request and report whether the key was accepted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := st.client.Probe(cmd.Context(), st.modelPath)
			if err != nil {
				return err
			}
			return st.print(cmd.OutOrStdout(), report, func(w io.Writer) {
				printf(w, "endpoint: %s\n", report.Endpoint)
				printf(w, "header:   %s\n", report.HeaderPreview)
				printf(w, "status:   %d\n", report.StatusCode)
				printf(w, "verdict:  %s\n", report.Verdict)
				printf(w, "body:     %s\n", report.Body)
				for _, warning := range report.Warnings {
					printf(w, "warning:  %s\n", warning)
				}
			})
		},
	}
}
