// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/health-assessment/internal/biomarkers"
	"github.com/jonathan/health-assessment/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintScoreResult outputs the per-stage pillar table and the overall score.
func (p *Printer) PrintScoreResult(result *types.ScoreResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Assessment: %s\n", result.AssessmentType))
	sb.WriteString(fmt.Sprintf("Overall:    %.1f / %.0f\n\n", result.OverallScore, types.MaxScore))
	sb.WriteString(fmt.Sprintf("%-11s %6s %6s %6s %6s\n", "pillar", "base", "qual", "obj", "final"))
	for _, pillar := range types.Pillars() {
		sb.WriteString(fmt.Sprintf("%-11s %6.2f %6.2f %6.2f %6.2f\n",
			pillar,
			result.Base[pillar],
			result.Qualitative[pillar],
			result.Objective[pillar],
			result.Intentionality[pillar],
		))
	}

	p.printBox("SCORE RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStageDescriptor outputs the stage a session should present next.
func (p *Printer) PrintStageDescriptor(desc *types.StageDescriptor) {
	if desc == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Session:  %s\n", desc.SessionID))
	title := desc.Stage.Title
	if title == "" {
		title = desc.Stage.Name
	}
	sb.WriteString(fmt.Sprintf("Stage:    %d/%d %s", desc.Index+1, desc.TotalStages, title))
	if desc.Stage.Required {
		sb.WriteString(" (required)")
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Progress: %d completed, %d needed\n\n", desc.CompletedStages, desc.MinStages))

	for _, q := range desc.Questions {
		sb.WriteString(fmt.Sprintf("• %s [%s]\n", q.Key, q.Kind))
		if detail := questionDetail(q); detail != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", detail))
		}
	}

	p.printBox("NEXT STAGE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDefinition outputs a summary of an assessment definition.
func (p *Printer) PrintDefinition(def *types.AssessmentDefinition) {
	if def == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Type:      %s\n", def.Type))
	if def.Title != "" {
		sb.WriteString(fmt.Sprintf("Title:     %s\n", def.Title))
	}
	sb.WriteString(fmt.Sprintf("Questions: %d\n", len(def.Questions)))
	sb.WriteString(fmt.Sprintf("Stages:    %d (complete after %d)\n\n", def.TotalStages(), def.MinStages))

	count := min(len(def.Stages), maxItemsToShow)
	for i := 0; i < count; i++ {
		stage := def.Stages[i]
		marker := " "
		if stage.Required {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("%s %d. %s: %s\n", marker, i+1, stage.Name, strings.Join(stage.Questions, ", ")))
	}
	if len(def.Stages) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(def.Stages)-maxItemsToShow))
	}

	p.printBox("ASSESSMENT DEFINITION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintClassification outputs one classified biomarker reading.
func (p *Printer) PrintClassification(reading types.BiomarkerReading, c biomarkers.Classification) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Biomarker: %s\n", reading.Name))
	sb.WriteString(fmt.Sprintf("Value:     %g %s\n", reading.Value, reading.Unit))
	status := string(c.Status)
	if c.Critical {
		status += " (critical)"
	} else if c.Optimal {
		status += " (optimal)"
	}
	sb.WriteString(fmt.Sprintf("Status:    %s", status))
	if c.Range != nil {
		sb.WriteString(fmt.Sprintf("\nRange:     %g-%g %s", c.Range.Min, c.Range.Max, c.Range.Unit))
	}

	p.printBox("BIOMARKER", sb.String())
}

func questionDetail(q types.Question) string {
	switch q.Kind {
	case types.KindRange:
		if q.Range == nil {
			return ""
		}
		return fmt.Sprintf("range %g-%g, optimal %g-%g", q.Range.Min, q.Range.Max, q.Range.OptimalMin, q.Range.OptimalMax)
	default:
		options := make([]string, 0, len(q.Options))
		for option := range q.Options {
			options = append(options, option)
		}
		sort.Strings(options)
		if len(options) == 0 {
			return ""
		}
		return "options: " + strings.Join(options, ", ")
	}
}
