package main

import (
	"github.com/spf13/cobra"

	"nodecanvas/internal/config"
	"nodecanvas/internal/logging"
)

// globalOptions holds the persistent flags and the config they resolve to.
type globalOptions struct {
	configPath string
	jsonLogs   bool

	cfg    *config.Config
	source string // file the config came from, empty for defaults
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:          "nodecanvas",
		Short:        "Interactive node-graph surface",
		Long:         "nodecanvas keeps a graph of labeled nodes and edges that can be dragged,\npanned and zoomed from a browser, a websocket client or the terminal.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: search $"+config.EnvConfigPath+", ./"+config.ConfigFileName+", XDG and /etc)")
	cmd.PersistentFlags().BoolVar(&opts.jsonLogs, "json-logs", false, "write logs as JSON")

	cmd.AddCommand(
		newServeCmd(opts),
		newTUICmd(opts),
		newExportCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// load resolves the config and initializes logging to stderr.
func (o *globalOptions) load(cmd *cobra.Command) error {
	var (
		cfg    *config.Config
		source string
		err    error
	)
	if o.configPath != "" {
		cfg, source, err = config.LoadFromPath(o.configPath)
	} else {
		cfg, source, err = config.Load()
	}
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("json-logs") {
		cfg.Logging.JSON = o.jsonLogs
	}
	if err := logging.Initialize(cfg.Logging.JSON, cfg.Logging.Level); err != nil {
		return err
	}

	o.cfg, o.source = cfg, source
	if source != "" {
		logging.Logger.Debugw("loaded config", "path", source)
	}
	return nil
}
