package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/finextract/constants"
	"github.com/joseph-ayodele/finextract/internal/common"
	"github.com/joseph-ayodele/finextract/internal/detect"
)

var detectCmd = &cobra.Command{
	Use:   "detect <file|s3://bucket/key>",
	Short: "Detect document type, property and reporting period",
	Long: `Detect reads the leading pages through the text layer and reports the
document type, the reporting period and, when --properties names a YAML list
of candidate properties, the primary and referenced properties.

  properties:
    - property_code: HPA
      property_name: Harbor Point Apartments
      city: Norfolk`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		only, _ := cmd.Flags().GetString("only")
		candidates, err := candidatesFlag(cmd)
		if err != nil {
			return common.StatusFromError(err)
		}
		var forced *detect.DocumentTypeDetection
		if label, _ := cmd.Flags().GetString("type"); label != "" {
			dt, err := detect.DocumentTypeFromLabel(label)
			if err != nil {
				return common.StatusFromError(err)
			}
			forced = &dt
		}

		ctx := cmd.Context()
		doc, err := rt.loader.Load(ctx, args[0])
		if err != nil {
			return common.StatusFromError(err)
		}
		switch only {
		case "":
			all := rt.extractor.DetectAll(ctx, doc, candidates)
			if forced != nil {
				all.DocumentType = *forced
			}
			return writeJSON(cmd.OutOrStdout(), all)
		case "type":
			if forced != nil {
				return writeJSON(cmd.OutOrStdout(), forced)
			}
			return writeJSON(cmd.OutOrStdout(), rt.extractor.DetectDocumentType(ctx, doc))
		case "property":
			return writeJSON(cmd.OutOrStdout(), rt.extractor.DetectProperty(ctx, doc, candidates))
		case "period":
			return writeJSON(cmd.OutOrStdout(), rt.extractor.DetectPeriod(ctx, doc))
		default:
			return common.InvalidArgumentErrorf("--only must be type, property or period, got %q", only)
		}
	},
}

func candidatesFlag(cmd *cobra.Command) ([]detect.PropertyCandidate, error) {
	path, _ := cmd.Flags().GetString("properties")
	if path == "" {
		return nil, nil
	}
	return detect.LoadCandidates(path)
}

func init() {
	detectCmd.Flags().String("properties", "", "YAML file of candidate properties")
	detectCmd.Flags().String("only", "", "run one detector: type, property or period")
	detectCmd.Flags().String("type", "", "known document type label (e.g. \"P&L\"), overrides detection; one of "+
		strings.Join(constants.DocumentTypesAsStrings(), ", "))

	rootCmd.AddCommand(detectCmd)
}
