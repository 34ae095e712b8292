package main

import (
	"github.com/spf13/cobra"

	"github.com/marcelocantos/tinysh/internal/builtin"
	"github.com/marcelocantos/tinysh/internal/cli"
)

var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "List the builtin commands.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		reg := builtin.NewRegistry()
		builtin.RegisterAll(reg)
		exitCode = cli.RunList(reg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
