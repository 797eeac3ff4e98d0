// Package cli is the relax3d command tree.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"relax3d/internal/driver"
)

// NewRootCmd constructs the command tree around app.
func NewRootCmd(app *App) *cobra.Command {
	app.defaults()
	root := &cobra.Command{
		Use:           "relax3d",
		Short:         "Drive the Relax3D preprocessing tools and solver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)

	root.PersistentFlags().StringVar(&app.ConfigPath, "config", orEnv(app.ConfigPath, "RELAX3D_CONFIG"), "Config file (.yaml, .json, .toml, .hcl; defaults RELAX3D_CONFIG)")
	root.PersistentFlags().StringVar(&app.LogLevel, "log-level", orEnv(app.LogLevel, "RELAX3D_LOG_LEVEL"), "Log level: trace|debug|info|warn|error (defaults RELAX3D_LOG_LEVEL, then the config file)")
	root.PersistentFlags().StringVar(&app.LogFormat, "log-format", app.LogFormat, "Log format: console|json")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if app.ConfigPath != "" {
			if _, err := app.config(); err != nil {
				return err
			}
		}
		quiet := false
		if f := cmd.Flags().Lookup("tui"); f != nil && f.Value.String() == "true" {
			quiet = true
		}
		return app.setupLogger(quiet)
	}

	root.AddCommand(
		newPreCmd(app),
		newRelaxCmd(app),
		newRenameCmd(app),
		newCombineCmd(app),
		newLayersCmd(app),
		newToolsCmd(app),
		newGraphCmd(app),
		newRunsCmd(app),
		newServeCmd(app),
		newCompletionCmd(root),
	)
	return root
}

func newCompletionCmd(root *cobra.Command) *cobra.Command {
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error {
		return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
	}})
	return completionCmd
}

// Exit codes of MainWithArgs.
const (
	ExitOK        = 0
	ExitError     = 1
	ExitUsage     = 2
	ExitCancelled = 130
)

// MainWithArgs runs the command line args and returns the process exit code.
// Cancelling ctx (SIGINT in main) cancels the active run.
func MainWithArgs(ctx context.Context, app *App, args []string) int {
	root := NewRootCmd(app)
	defer app.close()
	if len(args) == 0 {
		_ = root.Usage()
		return ExitUsage
	}
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(app.Err, "error:", err)
		if errors.Is(err, driver.ErrCancelled) {
			return ExitCancelled
		}
		return ExitError
	}
	return ExitOK
}
