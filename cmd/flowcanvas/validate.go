package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewValidateCommand checks a workflow document.
func NewValidateCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a workflow document",
		Long: `Validate checks that node ids are unique, edges reference existing nodes,
no edge is a self-connection or a duplicate, conditions compile and the graph is acyclic.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := readWorkflow(cmd, args[0])
			if err != nil {
				if root.Format == "json" {
					_ = writeJSON(cmd.OutOrStdout(), map[string]any{"valid": false, "error": err.Error()})
				}
				return err
			}

			s := w.Summary()
			if root.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"valid": true, "workflow": s})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %q has %d nodes and %d edges\n", s.Name, s.NodeCount, s.EdgeCount)
			return nil
		},
	}
}
