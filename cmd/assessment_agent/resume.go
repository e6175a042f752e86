package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Show the next stage of an active session",
	RunE:  runResume,
}

var resumeSession string

func init() {
	resumeCmd.Flags().StringVarP(&resumeSession, "session", "s", "", "Session ID (required)")
	if err := resumeCmd.MarkFlagRequired("session"); err != nil {
		panic(fmt.Sprintf("failed to mark session flag as required: %v", err))
	}
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, _ []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	id, err := uuid.Parse(resumeSession)
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", resumeSession, err)
	}

	manager, closeStore, err := rt.newManager(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	desc, err := manager.Resume(cmd.Context(), id)
	if err != nil {
		return err
	}
	if rt.verbose {
		rt.printer.PrintStageDescriptor(desc)
	}
	return rt.writeJSON(desc)
}
