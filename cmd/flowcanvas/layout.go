package main

import (
	"io"
	"os"

	"github.com/meikuraledutech/flowcanvas"
	"github.com/spf13/cobra"
)

// NewLayoutCommand rewrites node positions with the automatic layout.
func NewLayoutCommand(root *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "layout <file>",
		Short: "Arrange nodes in columns by dependency depth",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := readWorkflow(cmd, args[0])
			if err != nil {
				return err
			}
			st, err := flowcanvas.Reduce(flowcanvas.State{Workflow: *w}, flowcanvas.AutoLayout{})
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			if root.Format == "json" {
				return writeJSON(out, st.Workflow)
			}
			return flowcanvas.EncodeWorkflowYAML(out, &st.Workflow)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the result to a file instead of stdout")
	return cmd
}
