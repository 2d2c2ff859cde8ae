package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"wardan/internal/app"
	"wardan/internal/logging"
	"wardan/internal/metrics"
)

func newChatCommand(w commandWiring) *cobra.Command {
	var (
		metricsAddr string
		connect     bool
		noMarkdown  bool
		inline      bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the agent panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, closeLog := w.panelLogger()
			defer closeLog()

			rt, err := w.openRuntime(logger)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			recorder := metrics.New()
			addr := metricsAddr
			if addr == "" {
				addr = rt.cfg.MetricsAddress()
			}
			if addr != "" {
				bound, _, err := recorder.Serve(ctx, addr, logger)
				if err != nil {
					return fmt.Errorf("metrics: %w", err)
				}
				fmt.Fprintf(w.stderr, "metrics on http://%s/metrics\n", bound)
			}

			panel := rt.newPanel(recorder)
			defer panel.Close()
			logger.Info("panel started", logging.F("session", panel.SessionID()), logging.F("version", w.version))

			return w.runUI(panel, app.Options{
				Markdown:    rt.cfg.UI.Markdown && !noMarkdown,
				AltScreen:   rt.cfg.UI.AltScreen && !inline,
				AutoConnect: rt.cfg.Agent.AutoConnect || connect,
				Logger:      logger,
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&connect, "connect", false, "open the persistent channel on start")
	cmd.Flags().BoolVar(&noMarkdown, "no-markdown", false, "render agent summaries as plain text")
	cmd.Flags().BoolVar(&inline, "inline", false, "draw in the main screen instead of the alternate screen")
	return cmd
}

// panelLogger opens the log file the panel writes to. The UI owns the
// terminal, so a log file that cannot be opened means no logging at all.
func (w commandWiring) panelLogger() (logging.Logger, func()) {
	if w.logPath == nil {
		return logging.Nop(), func() {}
	}
	path, err := w.logPath()
	if err != nil {
		return logging.Nop(), func() {}
	}
	level := logging.Info
	if cfg, err := w.loadConfig(); err == nil {
		level = logging.ParseLevel(cfg.LogLevel())
	}
	logger, closer, err := logging.OpenFile(path, level)
	if err != nil {
		fmt.Fprintf(w.stderr, "logging disabled: %v\n", err)
		return logging.Nop(), func() {}
	}
	return logger, func() { _ = closer.Close() }
}
