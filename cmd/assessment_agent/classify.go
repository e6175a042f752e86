package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/health-assessment/internal/biomarkers"
	"github.com/jonathan/health-assessment/internal/types"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a biomarker reading against its reference range",
	Long:  "Looks up the reference range for a biomarker, narrowed by age and gender when given, and reports low, normal, high or unknown.",
	RunE:  runClassify,
}

var (
	classifyName   string
	classifyValue  float64
	classifyUnit   string
	classifyAge    int
	classifyGender string
)

func init() {
	classifyCmd.Flags().StringVarP(&classifyName, "name", "n", "", "Biomarker name (required)")
	classifyCmd.Flags().Float64Var(&classifyValue, "value", 0, "Measured value (required)")
	classifyCmd.Flags().StringVar(&classifyUnit, "unit", "", "Unit of the measured value")
	classifyCmd.Flags().IntVar(&classifyAge, "age", 0, "Age in years")
	classifyCmd.Flags().StringVar(&classifyGender, "gender", "", "Gender used for range variants")

	if err := classifyCmd.MarkFlagRequired("name"); err != nil {
		panic(fmt.Sprintf("failed to mark name flag as required: %v", err))
	}
	if err := classifyCmd.MarkFlagRequired("value"); err != nil {
		panic(fmt.Sprintf("failed to mark value flag as required: %v", err))
	}

	rootCmd.AddCommand(classifyCmd)
}

type classifyOutput struct {
	Reading        types.BiomarkerReading    `json:"reading"`
	Classification biomarkers.Classification `json:"classification"`
}

func runClassify(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	reading := types.BiomarkerReading{Name: classifyName, Value: classifyValue, Unit: classifyUnit}
	if classifyAge > 0 || classifyGender != "" {
		reading.Demographics = &types.Demographics{Age: classifyAge, Gender: classifyGender}
	}

	c := rt.classifier.Classification(reading)
	if rt.verbose {
		rt.printer.PrintClassification(reading, c)
	}
	return rt.writeJSON(classifyOutput{Reading: reading, Classification: c})
}
