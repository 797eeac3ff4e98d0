package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"relax3d/internal/pipeline"
	"relax3d/internal/registry"
)

func newToolsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Check that every preprocessing tool and the solver are in the tool directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return err
			}
			required := append(append([]string(nil), cfg.PreprocessTools...), cfg.Solver.Executable)
			present, missing, err := registry.Check(cfg.ToolsDir, required)
			if err != nil {
				return err
			}
			for _, t := range present {
				fmt.Fprintf(app.Out, "ok       %s\t%s\n", t.Name, t.Path)
			}
			for _, m := range missing {
				fmt.Fprintf(app.Out, "missing  %s\n", m)
			}
			if len(missing) > 0 {
				return &registry.MissingToolsError{Missing: missing}
			}
			return nil
		},
	}
}

func newGraphCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "graph", Short: "Print the stage graph of a run as DOT", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("graph requires a subcommand: pre|relax")
	}}

	var preOption, preMode string
	pre := &cobra.Command{
		Use:     "pre <file.dxf>",
		Short:   "Preprocessing stage graph",
		Example: "  relax3d graph pre L12.dxf --option L --mode R | dot -Tsvg > pre.svg",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return err
			}
			opt, err := pipeline.ParseOption(preOption)
			if err != nil {
				return err
			}
			mode, err := pipeline.ParseMode(preMode)
			if err != nil {
				return err
			}
			plan, err := pipeline.PlanPreprocess(pipeline.Request{File: args[0], Option: opt, Mode: mode}, cfg)
			if err != nil {
				return err
			}
			return pipeline.WriteDOT(app.Out, plan)
		},
	}
	pre.Flags().StringVar(&preOption, "option", "L", "Field option: L or S")
	pre.Flags().StringVar(&preMode, "mode", string(pipeline.ModeRun), "P or R")

	var relaxOption string
	relax := &cobra.Command{Use: "relax", Short: "Relaxation stage graph", Args: cobra.NoArgs, RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.config()
		if err != nil {
			return err
		}
		opt, err := pipeline.ParseOption(relaxOption)
		if err != nil {
			return err
		}
		plan, err := pipeline.PlanRelax(opt, cfg)
		if err != nil {
			return err
		}
		return pipeline.WriteDOT(app.Out, plan)
	}}
	relax.Flags().StringVar(&relaxOption, "option", "L", "Field option: L or S")

	cmd.AddCommand(pre, relax)
	return cmd
}

func newRunsCmd(app *App) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List finished runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return err
			}
			store, err := app.store(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			recs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(app.Out)
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}
			tw := tabwriter.NewWriter(app.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPIPELINE\tOPTION\tFILE\tSTATUS\tSTAGE\tFINISHED")
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Pipeline, r.Option, r.File, r.Status, r.Stage, r.API().FinishedAt)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
