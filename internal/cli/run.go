package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"relax3d/internal/driver"
	"relax3d/internal/pipeline"
	"relax3d/internal/tui"
)

func newPreCmd(app *App) *cobra.Command {
	var option, mode string
	var useTUI bool
	cmd := &cobra.Command{
		Use:     "pre <file.dxf>",
		Short:   "Run the preprocessing tools for one layer file",
		Example: "  relax3d pre L12.dxf --option L --mode R\n  relax3d pre S7.dxf --option S --mode P --tui",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := pipeline.ParseOption(option)
			if err != nil {
				return err
			}
			m, err := pipeline.ParseMode(mode)
			if err != nil {
				return err
			}
			req := pipeline.Request{File: args[0], Option: opt, Mode: m}
			if err := req.Validate(); err != nil {
				return err
			}
			ctl, err := app.controller(cmd.Context())
			if err != nil {
				return err
			}
			defer ctl.Close()
			title := fmt.Sprintf("preprocess %s (%s, %s)", req.File, opt, m)
			return app.execute(cmd.Context(), ctl, title, useTUI, func() (*pipeline.RunState, pipeline.Plan, error) {
				return ctl.StartPreprocess(req)
			})
		},
	}
	cmd.Flags().StringVar(&option, "option", "", "Field option: L or S")
	cmd.Flags().StringVar(&mode, "mode", string(pipeline.ModeRun), "P (preview: geometry and field setup) or R (all six tools)")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Show the terminal view")
	_ = cmd.MarkFlagRequired("option")
	return cmd
}

func newRelaxCmd(app *App) *cobra.Command {
	var option string
	var useTUI bool
	cmd := &cobra.Command{
		Use:     "relax",
		Short:   "Run the relaxation solver",
		Example: "  relax3d relax --option L",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := pipeline.ParseOption(option)
			if err != nil {
				return err
			}
			ctl, err := app.controller(cmd.Context())
			if err != nil {
				return err
			}
			defer ctl.Close()
			return app.execute(cmd.Context(), ctl, "relax "+string(opt), useTUI, func() (*pipeline.RunState, pipeline.Plan, error) {
				return ctl.StartRelax(opt)
			})
		},
	}
	cmd.Flags().StringVar(&option, "option", "", "Field option: L or S")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Show the terminal view")
	_ = cmd.MarkFlagRequired("option")
	return cmd
}

// execute starts one run, follows it in the terminal view or the log until
// it finishes and turns its result into the command's error.
func (a *App) execute(ctx context.Context, ctl *pipeline.Controller, title string, useTUI bool, start func() (*pipeline.RunState, pipeline.Plan, error)) error {
	var (
		events      <-chan pipeline.Event
		unsubscribe = func() {}
	)
	if useTUI {
		events, unsubscribe = ctl.Subscribe()
	}
	defer unsubscribe()

	run, plan, err := start()
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { ctl.Cancel() })
	defer stop()

	if useTUI {
		if _, err := tui.Run(ctx, tui.New(title, plan.StageNames(), events, ctl.Cancel)); err != nil && ctx.Err() == nil {
			log := a.logger()
			log.Warn().Err(err).Msg("terminal view ended")
		}
		// the view may quit before the run ends; leaving it cancels the run
		ctl.Cancel()
	}

	res, err := ctl.Wait(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	return a.report(run.ID, res)
}

func (a *App) report(runID string, res pipeline.Result) error {
	fmt.Fprintf(a.Out, "%s %s: %s\n", res.Kind, runID, res.Status)
	if len(res.Completed) > 0 {
		fmt.Fprintf(a.Out, "  stages: %v\n", res.Completed)
	}
	if res.OutputFile != "" && res.OK() {
		fmt.Fprintf(a.Out, "  output: %s\n", res.OutputFile)
	}
	switch res.Status {
	case pipeline.StatusDone:
		return nil
	case pipeline.StatusCancelled:
		return fmt.Errorf("%s run %s in %s: %w", res.Kind, runID, res.Stage, driver.ErrCancelled)
	default:
		return fmt.Errorf("%s run failed in %s (%s): %s", res.Kind, res.Stage, res.Failure, res.Cause)
	}
}
