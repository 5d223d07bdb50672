package main

import (
	"github.com/spf13/cobra"
)

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List the engines and optional capabilities available to this process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeJSON(cmd.OutOrStdout(), map[string]any{
			"engines":      rt.registry.Names(),
			"capabilities": rt.registry.Capabilities().List(),
		})
	},
}

func init() {
	rootCmd.AddCommand(capabilitiesCmd)
}
