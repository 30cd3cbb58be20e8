package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shirley959/amazon-final/internal/relay"
)

func newGenerateCommand(st *state) *cobra.Command {
	var (
		prompt   string
		image    string
		imageURL string
		strength float64
		size     string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Submit one generation and print the result URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" {
				return errors.New("--prompt is required")
			}
			req := relay.GenerationRequest{Prompt: prompt, Strength: strength, Size: relay.ImageSize{Preset: size}}
			switch {
			case image != "":
				data, err := os.ReadFile(image)
				if err != nil {
					return fmt.Errorf("read image: %w", err)
				}
				req.SourceImage = &relay.SourceImage{Data: data}
			case imageURL != "":
				req.SourceImage = &relay.SourceImage{URL: imageURL}
			}
			job, err := st.client.Generate(cmd.Context(), st.modelPath, req)
			if err != nil {
				if job != nil && st.asJSON {
					_ = st.print(cmd.OutOrStdout(), job, nil)
				}
				return err
			}
			return st.print(cmd.OutOrStdout(), job, func(w io.Writer) {
				printf(w, "%s\n", job.ResultURL)
			})
		},
	}
	cmd.Flags().StringVar(&prompt, "prompt", "", "Image prompt")
	cmd.Flags().StringVar(&image, "image", "", "Path to a source product photo")
	cmd.Flags().StringVar(&imageURL, "image-url", "", "URL of a source product photo")
	cmd.Flags().Float64Var(&strength, "strength", 0.75, "How far the result may drift from the source image (0-1)")
	cmd.Flags().StringVar(&size, "size", "", "Image size preset, e.g. square_hd or landscape_4_3")
	return cmd
}
