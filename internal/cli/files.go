package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"relax3d/internal/bookkeeping"
	"relax3d/internal/combine"
	"relax3d/internal/pipeline"
	"relax3d/internal/tui"
)

func newRenameCmd(app *App) *cobra.Command {
	var option, label, date string
	cmd := &cobra.Command{
		Use:     "rename",
		Short:   "Rename the solver output with the run date and move it to the target directory",
		Example: "  relax3d rename --option L --label a\n  relax3d rename --option S --label final --date 0305",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opt, err := pipeline.ParseOption(option)
			if err != nil {
				return err
			}
			cfg, err := app.config()
			if err != nil {
				return err
			}
			when, err := parseMMDD(date, app.Now())
			if err != nil {
				return err
			}
			rep, err := bookkeeping.NewArchiver(cfg.Output, app.logger()).Archive(bookkeeping.Request{Model: string(opt), Label: label, Date: when})
			if err != nil {
				return err
			}
			for _, m := range rep.Moved {
				fmt.Fprintf(app.Out, "%s -> %s\n", m.Source, m.Target)
			}
			if !rep.Complete() {
				return fmt.Errorf("not found in %s: %s", cfg.Output.WorkDir, strings.Join(rep.Missing, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&option, "option", "", "Field option: L or S")
	cmd.Flags().StringVar(&label, "label", "", "Free-form suffix of the archived names")
	cmd.Flags().StringVar(&date, "date", "", "Date as MMDD (defaults to today)")
	_ = cmd.MarkFlagRequired("option")
	return cmd
}

// parseMMDD reads a month-day date in the year of now; empty means now.
func parseMMDD(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	t, err := time.ParseInLocation("0102", s, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want MMDD)", s)
	}
	return t.AddDate(now.Year(), 0, 0), nil
}

func newCombineCmd(app *App) *cobra.Command {
	var job combine.Job
	var useTUI bool
	cmd := &cobra.Command{
		Use:     "combine",
		Short:   "Feed divided slice files to combine.exe and strip the header of its output",
		Example: "  relax3d combine --type L --min 1 --max 12 --dir C:\\Relax3D\\work",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job.Type = strings.ToUpper(strings.TrimSpace(job.Type))
			if err := job.Validate(); err != nil {
				return err
			}
			cfg, err := app.config()
			if err != nil {
				return err
			}
			desk, err := app.NewDesktop()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var reporter pipeline.Reporter = pipeline.LogReporter{Log: app.logger()}
			var events <-chan pipeline.Event
			bc := pipeline.NewBroadcaster()
			if useTUI {
				var unsubscribe func()
				events, unsubscribe = bc.Subscribe()
				defer unsubscribe()
				reporter = pipeline.MultiReporter{reporter, bc}
			}
			auto := combine.New(combine.Config{
				Config:   cfg,
				Desktop:  desk,
				Starter:  app.starter(cfg),
				Clock:    app.Clock,
				Reporter: reporter,
				Logger:   app.logger(),
			})

			var res combine.Result
			if useTUI {
				done := make(chan error, 1)
				go func() {
					var err error
					res, err = auto.Run(ctx, job)
					bc.Close()
					done <- err
				}()
				view := tui.New("combine "+job.Type, nil, events, func() bool { cancel(); return true })
				if _, err := tui.Run(ctx, view); err != nil && ctx.Err() == nil {
					log := app.logger()
					log.Warn().Err(err).Msg("terminal view ended")
				}
				cancel()
				err = <-done
			} else {
				res, err = auto.Run(ctx, job)
			}
			fmt.Fprintf(app.Out, "combine %s: %s (%d/%d files)\n", res.RunID, res.Status, len(res.Processed), len(res.Files))
			if len(res.Removed) > 0 {
				fmt.Fprintf(app.Out, "  removed from %s:\n", res.DatFile)
				for _, l := range res.Removed {
					fmt.Fprintf(app.Out, "    %s\n", l)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&job.Type, "type", "", "Slice file type letter, e.g. L or S")
	cmd.Flags().Float64Var(&job.Min, "min", 0, "Lowest slice value")
	cmd.Flags().Float64Var(&job.Max, "max", 0, "Highest slice value")
	cmd.Flags().StringVar(&job.Dir, "dir", "", "Folder holding the slice files")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "Show the terminal view")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}
