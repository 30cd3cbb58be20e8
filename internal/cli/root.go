// Package cli implements the relayprobe operator commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shirley959/amazon-final/internal/infra"
	"github.com/shirley959/amazon-final/internal/relay"
)

type state struct {
	cfg       *infra.Config
	logger    infra.Logger
	client    *relay.Client
	modelPath string
	asJSON    bool
}

// NewRootCommand builds the relayprobe command tree.
func NewRootCommand() *cobra.Command {
	st := &state{}
	root := &cobra.Command{
		Use:           "relayprobe",
		Short:         "Check relay credentials and run one-off generations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg, err := infra.LoadConfig()
			if err != nil {
				return err
			}
			st.cfg = cfg
			st.logger = infra.NewLogger(cfg.AppEnv)
			if st.modelPath == "" {
				st.modelPath = cfg.ModelPath
			}
			opts, err := relay.OptionsFromConfig(cfg, &st.logger)
			if err != nil {
				return err
			}
			st.client, err = relay.NewClient(opts)
			return err
		},
	}
	root.PersistentFlags().StringVar(&st.modelPath, "model", "", "Model endpoint path (default: RELAY_MODEL_PATH)")
	root.PersistentFlags().BoolVar(&st.asJSON, "json", false, "Print machine readable JSON")

	root.AddCommand(newLintCommand(st), newPingCommand(st), newGenerateCommand(st))
	return root
}

// Execute runs the command tree against ctx.
func Execute(ctx context.Context, args []string, out io.Writer) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	return root.ExecuteContext(ctx)
}

func (st *state) print(w io.Writer, v any, text func(io.Writer)) error {
	if st.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
