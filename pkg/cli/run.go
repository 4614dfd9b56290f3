package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvlzerz/loan-reminder/pkg/api"
	"github.com/mvlzerz/loan-reminder/pkg/scheduler"
	"github.com/mvlzerz/loan-reminder/pkg/version"
)

func newRunCommand(rt *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Check for overdue loans now and again after every check interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.runLoop(cmd)
		},
	}
}

// runLoop backs both `run` and the bare root command.
func (rt *runtimeState) runLoop(cmd *cobra.Command) error {
	// credentials are checked before the data file is touched
	if err := rt.cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.log.With("version", version.Version).Info("Starting loan reminder")
	rt.cfg.Print(rt.log)

	var serverDone chan struct{}
	if addr := rt.cfg.Server.MetricsBindAddress; addr != "" {
		server := api.NewServer(rt.log.Desugar(), addr, rt.debug)
		serverDone = make(chan struct{})
		go func() {
			defer close(serverDone)
			if err := server.Listen(ctx); err != nil {
				rt.log.Errorw("HTTP server failed", "address", addr, "error", err)
			}
		}()
	}

	scheduler.Scheduler{
		Log:      rt.log.Named("scheduler"),
		Cycle:    rt.newCycle(),
		Interval: rt.cfg.CheckInterval(),
	}.Run(ctx)

	if serverDone != nil {
		stop()
		<-serverDone
	}
	rt.log.Info("Loan reminder stopped")
	return nil
}

func newOnceCommand(rt *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single reminder cycle and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := rt.newCycle().RunOnce(ctx)
			if result != nil {
				w := rt.Writer()
				_, _ = fmt.Fprintf(w, "Cycle %s (%s): %d accounts, %d overdue\n",
					result.ID, result.Today, result.Loaded, result.Defaulters)
				if result.Report != nil {
					_, _ = fmt.Fprintf(w, "Reminders: %d sent, %d failed\n", result.Report.Sent, result.Report.Failed)
					for _, f := range result.Report.Failures {
						_, _ = fmt.Fprintf(w, "  %s <%s>: %v\n", f.Account.ID, f.Account.Email, f.Err)
					}
				}
			}
			return err
		},
	}
}
