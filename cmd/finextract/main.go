// Package main is the finextract command line: extraction, consensus,
// engine scoring, detection and a watch-folder worker over financial PDFs.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "finextract",
	Short: "Extract text, tables and metadata from financial PDFs",
	Long: `finextract runs a document through one or more extraction engines
(text layer, table layer, lattice tables, OCR, remote layout models), validates
and ranks the results, and detects the document type, property and reporting
period.

Optional engines are enabled by what is installed and configured when the
process starts; run "finextract capabilities" to see what is available.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return setup()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./finextract.yaml or ~/.config/finextract/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version of finextract",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("finextract %s\n", version)
		},
	})
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("finextract")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "finextract"))
		}
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	err := rootCmd.Execute()
	teardown()
	if err != nil {
		os.Exit(1)
	}
}
