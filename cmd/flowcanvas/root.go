package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/meikuraledutech/flowcanvas"
	"github.com/spf13/cobra"
)

// RootOptions holds flags shared by every subcommand.
type RootOptions struct {
	Format string
}

// NewRootCommand builds the flowcanvas command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "flowcanvas",
		Short:         "Work with flowcanvas workflow documents",
		Long:          `flowcanvas validates, lays out and renders workflow documents stored as YAML.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return fmt.Errorf("invalid --format %q (want text or json)", opts.Format)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "Output format: text or json")

	cmd.AddCommand(
		NewValidateCommand(opts),
		NewLayoutCommand(opts),
		NewRenderCommand(opts),
	)
	return cmd
}

// readWorkflow decodes the YAML document at path, or stdin for "-".
func readWorkflow(cmd *cobra.Command, path string) (*flowcanvas.Workflow, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return flowcanvas.DecodeWorkflowYAML(r)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
