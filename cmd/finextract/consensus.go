package main

import (
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/finextract/internal/common"
)

var consensusCmd = &cobra.Command{
	Use:   "consensus <file|s3://bucket/key>",
	Short: "Run several engines and measure how much their text agrees",
	Long: `Consensus runs the named engines (both baseline engines by default),
picks the best validated result and reports a 0..100 agreement score over
every pair of successful engines. Engines agree at 70 or above.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, _ := cmd.Flags().GetStringSlice("engines")
		ctx := cmd.Context()
		doc, err := rt.loader.Load(ctx, args[0])
		if err != nil {
			return common.StatusFromError(err)
		}
		out := rt.extractor.ExtractWithConsensus(ctx, doc, names, langFlag(cmd))
		if err := writeJSON(cmd.OutOrStdout(), out); err != nil {
			return err
		}
		return common.StatusFromOutcome(out.Success, out.Best.Engine, out.Error)
	},
}

func init() {
	consensusCmd.Flags().StringSlice("engines", nil, "engines to compare (default: pdftext,pdftable)")
	consensusCmd.Flags().String("lang", "", "OCR language code (default from extraction.lang)")

	rootCmd.AddCommand(consensusCmd)
}
