package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"relax3d/internal/httpapi"
)

const shutdownGrace = 5 * time.Second

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var origins []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run control API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.config()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.HTTP.Addr
			}
			if len(origins) == 0 {
				origins = cfg.HTTP.CORSOrigins
			}
			ctx := cmd.Context()
			ctl, err := app.controller(ctx)
			if err != nil {
				return err
			}
			log := app.logger()
			httpapi.SetLogger(log)
			httpapi.SetBaseContext(ctx)
			httpapi.SetCORSOptions(len(origins) > 0, origins, nil, nil)

			srv := &http.Server{Addr: addr, Handler: httpapi.NewMux(ctl), ReadHeaderTimeout: 10 * time.Second}
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info().Str("addr", addr).Str("tools_dir", cfg.ToolsDir).Msg("relax3d listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
				defer cancel()
				if err := srv.Shutdown(sctx); err != nil {
					log.Warn().Err(err).Msg("graceful shutdown error")
				}
				return ctl.Close()
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envStr("RELAX3D_ADDR", ""), "HTTP listen address (defaults RELAX3D_ADDR, then http.addr)")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "Allowed CORS origin; repeat for more (defaults http.cors_origins)")
	return cmd
}
