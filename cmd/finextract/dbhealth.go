package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/finextract/internal/common"
)

var dbhealthCmd = &cobra.Command{
	Use:   "dbhealth",
	Short: "Check the score history store and apply its schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx := cmd.Context()
		db, err := rt.store(ctx)
		if err != nil {
			return common.StatusFromError(err)
		}
		if err := db.HealthCheck(ctx, timeout); err != nil {
			return fmt.Errorf("DB health: FAIL (%w)", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "DB health: OK (%s)\n", db.Driver())
		return nil
	},
}

func init() {
	dbhealthCmd.Flags().Duration("timeout", time.Second, "ping timeout")

	rootCmd.AddCommand(dbhealthCmd)
}
