package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/marcelocantos/tinysh/internal/cli"
	"github.com/marcelocantos/tinysh/internal/config"
)

var (
	cfgPath  string
	command  string
	noPrompt bool
	verbose  bool

	// exitCode is the status the process exits with once a command ran.
	exitCode int
)

var rootCmd = &cobra.Command{
	Use:           "tinysh [SCRIPT]",
	Short:         "A small interactive command interpreter.",
	Long:          longHelp(),
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		opts := cli.Options{
			Config:   cfg,
			Stdin:    cmd.InOrStdin(),
			Stdout:   cmd.OutOrStdout(),
			Stderr:   cmd.ErrOrStderr(),
			NoPrompt: noPrompt,
			Verbose:  verbose,
		}

		switch {
		case command != "" && len(args) > 0:
			return errors.New("--command and SCRIPT are mutually exclusive")
		case command != "":
			exitCode = cli.RunCommand(cmd.Context(), opts, command)
		case len(args) == 1:
			exitCode = cli.RunScript(cmd.Context(), opts, args[0])
		default:
			exitCode = cli.RunInteractive(cmd.Context(), opts)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "configuration file (default "+config.Path()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose diagnostics")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "execute LINE and exit")
	rootCmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "do not print a prompt")
}

// loadConfig reads --config when given, or the standard location. An
// explicitly named file must exist.
func loadConfig() (*config.Config, error) {
	if cfgPath == "" {
		return config.Load()
	}
	fsys := afero.NewOsFs()
	if _, err := fsys.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config %s: %w", cfgPath, err)
	}
	return config.LoadFrom(fsys, cfgPath)
}

func longHelp() string {
	var sb strings.Builder
	cli.PrintGeneralHelp(&sb)
	return sb.String()
}
