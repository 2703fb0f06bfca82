package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexanderramin/tempo/internal/config"
	"github.com/alexanderramin/tempo/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultSweepInterval = time.Hour

func newSweepCmd(app *App, v *viper.Viper) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Recompute projects whose projections are due",
		Long: `Picks up projects whose next recompute time has passed and refreshes
their projections and rollup, so delays keep growing while nobody edits
the project. Runs until interrupted unless --once is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if once {
				res, err := app.Sweep.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				printSweepResult(cmd, res)
				return nil
			}

			// Without a loaded config the flags are read directly.
			interval, _ := cmd.Flags().GetDuration("interval")
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
			if app.Config != nil {
				interval, metricsAddr = app.Config.Sweep.Interval, app.Config.MetricsAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if metricsAddr != "" {
				srv := newMetricsServer(metricsAddr)
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						app.logger().Error("metrics server failed", "addr", metricsAddr, "error", err)
					}
				}()
				defer shutdown(srv)
				app.logger().Info("serving metrics", "addr", metricsAddr)
			}

			app.logger().Info("sweep started", "interval", interval)
			return app.Sweep.Run(ctx, interval)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single sweep and exit")
	cmd.Flags().Duration("interval", defaultSweepInterval, "Time between sweeps")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	_ = v.BindPFlag(config.KeySweepInterval, cmd.Flags().Lookup("interval"))
	_ = v.BindPFlag(config.KeyMetricsAddr, cmd.Flags().Lookup("metrics-addr"))

	return cmd
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

func printSweepResult(cmd *cobra.Command, res *service.SweepResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Recomputed %d projects", len(res.Recomputed))
	if len(res.Failed) > 0 {
		fmt.Fprintf(out, ", %d failed", len(res.Failed))
	}
	fmt.Fprintln(out)
	for _, f := range res.Failed {
		fmt.Fprintf(out, "  %s: %v\n", f.ProjectID, f.Err)
	}
}
