package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/health-assessment/internal/schemas"
	"github.com/jonathan/health-assessment/internal/types"
)

var scoreCmd = &cobra.Command{
	Use:   "score <request.json>...",
	Short: "Score one or more assessment requests",
	Long:  "Validates each ScoreRequest JSON file, runs the four-stage scoring pipeline and prints the ScoreResult. Several files are scored concurrently and printed in argument order.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScore,
}

var (
	scoreOutput      string
	scoreConcurrency int
)

func init() {
	scoreCmd.Flags().StringVarP(&scoreOutput, "out", "o", "", "Write results to this file instead of stdout")
	scoreCmd.Flags().IntVar(&scoreConcurrency, "concurrency", 4, "Maximum files scored in parallel")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	results := make([]types.ScoreResult, len(args))

	g, _ := errgroup.WithContext(cmd.Context())
	if scoreConcurrency > 0 {
		g.SetLimit(scoreConcurrency)
	}
	for i, path := range args {
		g.Go(func() error {
			result, err := scoreFile(rt, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if rt.verbose {
		for i := range results {
			rt.printer.PrintScoreResult(&results[i])
		}
	}

	var output any = results
	if len(results) == 1 {
		output = results[0]
	}
	if scoreOutput == "" {
		return rt.writeJSON(output)
	}
	return writeJSONFile(scoreOutput, output)
}

func scoreFile(rt *runtime, path string) (types.ScoreResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ScoreResult{}, fmt.Errorf("failed to read request: %w", err)
	}
	if err := schemas.ValidateBytes(schemas.ScoreRequest, data); err != nil {
		return types.ScoreResult{}, err
	}

	var req types.ScoreRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return types.ScoreResult{}, fmt.Errorf("failed to parse request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return types.ScoreResult{}, fmt.Errorf("invalid request: %w", err)
	}

	result, err := rt.pipeline.ScoreAssessment(rt.definitions, req.Input())
	if err != nil {
		return types.ScoreResult{}, err
	}

	if err := schemas.ValidateDocument(schemas.ScoreResult, result); err != nil {
		return types.ScoreResult{}, fmt.Errorf("score result failed schema check: %w", err)
	}
	rt.log.Debug("scored request", "file", path, "assessment_type", result.AssessmentType, "overall_score", result.OverallScore)
	return result, nil
}

func writeJSONFile(path string, v any) error {
	outputDir := filepath.Dir(path)
	if outputDir != "" && outputDir != "." {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
		}
	}

	data, err := marshalIndent(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", path, err)
	}
	return nil
}
