package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/relimport/internal/config"
	"github.com/Sumatoshi-tech/relimport/internal/observability"
	"github.com/Sumatoshi-tech/relimport/pkg/relindex"
	"github.com/Sumatoshi-tech/relimport/pkg/report"
	"github.com/Sumatoshi-tech/relimport/pkg/watch"
)

type watchCommand struct {
	globals     *GlobalFlags
	output      outputFlags
	root        string
	explain     bool
	metricsAddr string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(globals *GlobalFlags) *cobra.Command {
	wc := &watchCommand{globals: globals}

	cmd := &cobra.Command{
		Use:   "watch <package-dir>...",
		Short: "Re-render the related files whenever sources change",
		Long: `Index --root, render the related files of each package, then watch the
tree and render again after every burst of changes. With --metrics-addr,
/metrics, /healthz and /readyz are served on that address.`,
		Args: cobra.MinimumNArgs(1),
		RunE: wc.run,
	}

	cmd.Flags().StringVarP(&wc.root, "root", "r", ".", "Project root to index")
	cmd.Flags().BoolVar(&wc.explain, "explain", false, "Show the import statements and rule behind each match")
	cmd.Flags().StringVar(&wc.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics and health probes on this address")
	wc.output.register(cmd)

	return cmd
}

func (wc *watchCommand) run(cmd *cobra.Command, args []string) error {
	sess, err := newSession(cmd, wc.globals, observability.ModeWatch, func(cfg *config.Config) {
		if wc.metricsAddr != "" {
			cfg.Watch.MetricsAddr = wc.metricsAddr
		}
	})
	if err != nil {
		return err
	}
	defer sess.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := sess.providers.Logger
	opts := wc.output.options(sess.cfg)
	out := cmd.OutOrStdout()

	w, err := watch.New(wc.root, sess.builder(wc.root),
		watch.WithFilter(sess.cfg.Filter()),
		watch.WithDebounce(sess.cfg.Watch.Debounce),
		watch.WithLogger(logger),
		// Rebuilds are serialized, so renders never interleave.
		watch.OnRebuild(func(ctx context.Context, idx *relindex.Index) {
			renderErr := report.Render(out, report.Related(ctx, idx, args, wc.explain), opts)
			if renderErr != nil {
				logger.ErrorContext(ctx, "render failed", "error", renderErr)
			}
		}),
	)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := w.Close()
		if closeErr != nil {
			logger.Warn("close watcher", "error", closeErr)
		}
	}()

	if addr := sess.cfg.Watch.MetricsAddr; addr != "" {
		diag, diagErr := observability.NewDiagnosticsServer(addr, sess.providers.MetricsHandler, w.Ready)
		if diagErr != nil {
			return diagErr
		}

		defer func() {
			closeErr := diag.Close(context.Background())
			if closeErr != nil {
				logger.Warn("close diagnostics server", "error", closeErr)
			}
		}()

		logger.InfoContext(ctx, "diagnostics listening", "addr", diag.Addr())
	}

	logger.InfoContext(ctx, "watching", "root", wc.root)

	return w.Run(ctx)
}
