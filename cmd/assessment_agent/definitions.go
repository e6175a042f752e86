package main

import (
	"github.com/spf13/cobra"
)

var definitionsCmd = &cobra.Command{
	Use:   "definitions [type]",
	Short: "List assessment types or show one definition",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDefinitions,
}

func init() {
	rootCmd.AddCommand(definitionsCmd)
}

func runDefinitions(cmd *cobra.Command, args []string) error {
	rt, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	defer rt.close()

	if len(args) == 0 {
		return rt.writeJSON(rt.definitions.Types())
	}

	def, err := rt.definitions.Definition(args[0])
	if err != nil {
		return err
	}
	if rt.verbose {
		rt.printer.PrintDefinition(def)
	}
	return rt.writeJSON(def)
}
