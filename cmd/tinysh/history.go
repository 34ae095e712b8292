package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/marcelocantos/tinysh/internal/cli"
)

var historyCount int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the log of executed lines.",
}

var historyVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the hash chain of the history log.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		exitCode = cli.RunHistoryVerify(afero.NewOsFs(), cmd.OutOrStdout(), cfg.History.Path)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the most recent history entries.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		exitCode = cli.RunHistoryShow(afero.NewOsFs(), cmd.OutOrStdout(), cfg.History.Path, historyCount)
		return nil
	},
}

func init() {
	historyShowCmd.Flags().IntVarP(&historyCount, "count", "n", 20, "number of entries (-1 for all)")
	historyCmd.AddCommand(historyVerifyCmd, historyShowCmd)
	rootCmd.AddCommand(historyCmd)
}
