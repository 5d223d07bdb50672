package main

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/core"
	"github.com/joseph-ayodele/finextract/internal/export"
	"github.com/joseph-ayodele/finextract/internal/repository"
)

var scoreCmd = &cobra.Command{
	Use:   "score <file|s3://bucket/key>",
	Short: "Run every engine and score each one from 1 to 10",
	Long: `Score runs every registered engine on the document and scores each result
on text length, structure, readability, speed and completeness using the
scoring weights from config. Engines that fail stay in the table.

--xlsx writes the comparison as a workbook, --persist saves it to the score
history store, --struct prints it as a protobuf Struct in JSON form.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		xlsxPath, _ := cmd.Flags().GetString("xlsx")
		persist, _ := cmd.Flags().GetBool("persist")
		asStruct, _ := cmd.Flags().GetBool("struct")

		ctx := cmd.Context()
		doc, err := rt.loader.Load(ctx, args[0])
		if err != nil {
			return common.StatusFromError(err)
		}
		sum := sha256.Sum256(doc)
		sha := hex.EncodeToString(sum[:])

		cmp := rt.extractor.ExtractWithAllModelsScored(ctx, doc, langFlag(cmd))

		if persist {
			db, err := rt.store(ctx)
			if err != nil {
				return common.StatusFromError(err)
			}
			run := core.RunFromComparison(sha, args[0], cmp)
			if err := repository.NewScoreRunRepository(db, rt.logger).Save(ctx, run); err != nil {
				return common.StatusFromError(err)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "saved run", run.ID)
		}

		if xlsxPath != "" {
			b, err := export.NewService(nil, rt.logger).ComparisonXLSX(args[0], cmp)
			if err != nil {
				return err
			}
			if err := os.WriteFile(xlsxPath, b, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", xlsxPath, err)
			}
		}

		if asStruct {
			s, err := export.ToStruct(cmp)
			if err != nil {
				return err
			}
			b, err := s.MarshalJSON()
			if err != nil {
				return fmt.Errorf("encode struct: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return err
		}
		return writeJSON(cmd.OutOrStdout(), cmp)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <document-sha256>",
	Short: "List stored score runs of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		xlsxPath, _ := cmd.Flags().GetString("xlsx")

		ctx := cmd.Context()
		db, err := rt.store(ctx)
		if err != nil {
			return common.StatusFromError(err)
		}
		runs := repository.NewScoreRunRepository(db, rt.logger)

		if xlsxPath != "" {
			b, err := export.NewService(runs, rt.logger).HistoryXLSX(ctx, args[0], limit)
			if err != nil {
				return common.StatusFromError(err)
			}
			return os.WriteFile(xlsxPath, b, 0o644)
		}
		list, err := runs.ListByDocument(ctx, args[0], limit)
		if err != nil {
			return common.StatusFromError(err)
		}
		if len(list) == 0 {
			return common.NotFoundError(fmt.Sprintf("no score runs for document %s", args[0]))
		}
		return writeJSON(cmd.OutOrStdout(), list)
	},
}

func init() {
	scoreCmd.Flags().String("lang", "", "OCR language code (default from extraction.lang)")
	scoreCmd.Flags().String("xlsx", "", "write the comparison workbook to this path")
	scoreCmd.Flags().Bool("persist", false, "save the run to the score history store")
	scoreCmd.Flags().Bool("struct", false, "print the comparison as a protobuf Struct")

	historyCmd.Flags().Int("limit", 20, "maximum runs to return, newest first")
	historyCmd.Flags().String("xlsx", "", "write the history workbook to this path")

	scoreCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(scoreCmd)
}
