// Package main provides the entry point for the health assessment CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "assessment_agent",
	Short:         "Health assessment scoring and progressive intake",
	Long:          "assessment_agent scores health assessments from answers, symptoms, biomarkers and goals, and drives multi-stage intake sessions through to a final score.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to JSON config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed output")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
