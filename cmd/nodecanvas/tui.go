package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"nodecanvas/internal/config"
	"nodecanvas/internal/errors"
	"nodecanvas/internal/logging"
	"nodecanvas/internal/tui"
)

func newTUICmd(opts *globalOptions) *cobra.Command {
	var (
		memory bool
		reset  bool
		seed   string
	)

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Drag, pan and zoom the surface in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if memory {
				cfg.Database.Path = ""
			}
			if cmd.Flags().Changed("seed") {
				cfg.Graph.Seed = seed
			}

			closeLog, err := terminalLogging(cfg.Logging)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			svc, closeStore, err := openService(ctx, cfg, nil, reset)
			if err != nil {
				return err
			}
			defer closeStore()

			return tui.Run(ctx, svc, tui.Options{
				Cells:         cfg.CellSize(),
				DragThreshold: cfg.Terminal.DragThreshold,
				ZoomStep:      cfg.Surface.ZoomStep,
				PanStep:       cfg.Surface.PanStep,
			})
		},
	}

	cmd.Flags().BoolVar(&memory, "memory", false, "keep changes in memory only")
	cmd.Flags().BoolVar(&reset, "reset", false, "discard the stored graph and load the seed again")
	cmd.Flags().StringVar(&seed, "seed", "", "graph document loaded when the database is empty (overrides graph.seed)")
	return cmd
}

// terminalLogging moves the logger off stderr, which the terminal host draws
// on. Logs go to logging.file, or nowhere when it is unset.
func terminalLogging(cfg config.LoggingConfig) (func(), error) {
	if cfg.File == "" {
		return func() {}, logging.InitializeTo(zapcore.AddSync(io.Discard), cfg.JSON, cfg.Level)
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %s", cfg.File)
	}
	if err := logging.InitializeTo(zapcore.Lock(f), cfg.JSON, cfg.Level); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		logging.Sync()
		f.Close()
	}, nil
}
