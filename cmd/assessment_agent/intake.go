package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/health-assessment/internal/intake"
)

var intakeCmd = &cobra.Command{
	Use:   "intake",
	Short: "Drive progressive intake sessions",
	Long:  "Start sessions, submit stage payloads and run whole intakes. Sessions live in the configured store; with the memory store only 'intake run' is useful because state ends with the process.",
}

var intakeStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start an intake session, or return the user's active one of that type",
	RunE:  runIntakeStart,
}

var intakeSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit the current stage of a session",
	RunE:  runIntakeSubmit,
}

var intakeRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a session and submit stages from a file until it completes",
	RunE:  runIntakeRun,
}

var (
	intakeType     string
	intakeUser     string
	intakeSession  string
	intakePayload  string
	intakeStages   string
	intakeEvidence string
)

func init() {
	for _, c := range []*cobra.Command{intakeStartCmd, intakeRunCmd} {
		c.Flags().StringVarP(&intakeType, "type", "t", "", "Assessment type (required)")
		c.Flags().StringVarP(&intakeUser, "user", "u", "", "User identifier (required)")
		for _, name := range []string{"type", "user"} {
			if err := c.MarkFlagRequired(name); err != nil {
				panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
			}
		}
	}

	intakeSubmitCmd.Flags().StringVarP(&intakeSession, "session", "s", "", "Session ID (required)")
	intakeSubmitCmd.Flags().StringVarP(&intakePayload, "payload", "p", "", "Stage payload as JSON or @file (required)")
	intakeRunCmd.Flags().StringVar(&intakeStages, "stages", "", "JSON array of stage payloads as JSON or @file (required)")
	for _, c := range []*cobra.Command{intakeSubmitCmd, intakeRunCmd} {
		c.Flags().StringVar(&intakeEvidence, "evidence", "", "Symptoms, biomarkers and goals as JSON or @file")
	}

	if err := intakeSubmitCmd.MarkFlagRequired("session"); err != nil {
		panic(fmt.Sprintf("failed to mark session flag as required: %v", err))
	}
	if err := intakeSubmitCmd.MarkFlagRequired("payload"); err != nil {
		panic(fmt.Sprintf("failed to mark payload flag as required: %v", err))
	}
	if err := intakeRunCmd.MarkFlagRequired("stages"); err != nil {
		panic(fmt.Sprintf("failed to mark stages flag as required: %v", err))
	}

	intakeCmd.AddCommand(intakeStartCmd, intakeSubmitCmd, intakeRunCmd)
	rootCmd.AddCommand(intakeCmd)
}

func runIntakeStart(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	manager, closeStore, err := rt.newManager(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	session, err := manager.Start(cmd.Context(), intakeType, intakeUser)
	if err != nil {
		return err
	}
	if rt.verbose {
		desc, err := manager.Resume(cmd.Context(), session.ID)
		if err == nil {
			rt.printer.PrintStageDescriptor(desc)
		}
	}
	return rt.writeJSON(session)
}

func runIntakeSubmit(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	id, err := uuid.Parse(intakeSession)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", intakeSession, err)
	}
	var payload map[string]any
	if err := readJSONArg(intakePayload, &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	opts, err := evidenceOptions(intakeEvidence)
	if err != nil {
		return err
	}
	manager, closeStore, err := rt.newManager(cmd.Context(), opts...)
	if err != nil {
		return err
	}
	defer closeStore()

	outcome, err := manager.SubmitStage(cmd.Context(), id, payload)
	if err != nil {
		return describeStageError(cmd, err)
	}
	return writeOutcome(cmd, rt, manager, outcome)
}

func runIntakeRun(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	var stages []map[string]any
	if err := readJSONArg(intakeStages, &stages); err != nil {
		return fmt.Errorf("invalid stages: %w", err)
	}
	if len(stages) == 0 {
		return fmt.Errorf("invalid stages: at least one stage payload is required")
	}

	opts, err := evidenceOptions(intakeEvidence)
	if err != nil {
		return err
	}
	manager, closeStore, err := rt.newManager(cmd.Context(), opts...)
	if err != nil {
		return err
	}
	defer closeStore()

	session, err := manager.Start(cmd.Context(), intakeType, intakeUser)
	if err != nil {
		return err
	}

	var outcome *intake.StageOutcome
	for i, payload := range stages {
		outcome, err = manager.SubmitStage(cmd.Context(), session.ID, payload)
		if err != nil {
			return fmt.Errorf("stage %d: %w", i+1, describeStageError(cmd, err))
		}
		if outcome.Completed {
			break
		}
	}
	return writeOutcome(cmd, rt, manager, outcome)
}

func writeOutcome(cmd *cobra.Command, rt *runtime, manager *intake.Manager, outcome *intake.StageOutcome) error {
	if rt.verbose {
		if outcome.Completed {
			rt.printer.PrintScoreResult(outcome.Result)
		} else if desc, err := manager.Resume(cmd.Context(), outcome.Session.ID); err == nil {
			rt.printer.PrintStageDescriptor(desc)
		}
	}
	return rt.writeJSON(outcome)
}

func evidenceOptions(value string) ([]intake.Option, error) {
	if value == "" {
		return nil, nil
	}
	var ev intake.Evidence
	if err := readJSONArg(value, &ev); err != nil {
		return nil, fmt.Errorf("invalid evidence: %w", err)
	}
	return []intake.Option{intake.WithEvidence(fileEvidence{ev: ev})}, nil
}

// fileEvidence serves the same evidence to every user; the CLI reads it from
// a single file per invocation.
type fileEvidence struct {
	ev intake.Evidence
}

func (f fileEvidence) Evidence(_ context.Context, _, _ string) (intake.Evidence, error) {
	return f.ev, nil
}

// describeStageError prints field errors of a rejected stage to stderr.
func describeStageError(cmd *cobra.Command, err error) error {
	var validation *intake.StageValidationError
	if errors.As(err, &validation) {
		for _, fe := range validation.Errors {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", fe.Field, fe.Message)
		}
	}
	return err
}
