package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"nodecanvas/internal/codec"
	"nodecanvas/internal/errors"
)

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		format string
		out    string
		from   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the graph as JSON, YAML or a PNG snapshot",
		Example: "  nodecanvas export --format yaml\n" +
			"  nodecanvas export --from graph.json --out graph.png",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if from != "" {
				cfg.Database.Path = ""
				cfg.Graph.Seed = from
			}
			if format == "" {
				format = codec.FormatForPath(out)
			}
			if format == "" {
				format = "json"
			}

			svc, closeStore, err := openService(cmd.Context(), cfg, nil, false)
			if err != nil {
				return err
			}
			defer closeStore()

			if out == "" || out == "-" {
				return svc.Export(format, cmd.OutOrStdout())
			}
			return writeFile(out, func(w io.Writer) error {
				return svc.Export(format, w)
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "json, yaml or png (default: from --out extension, else json)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, - or empty for stdout")
	cmd.Flags().StringVar(&from, "from", "", "export a graph document instead of the database")
	return cmd
}

// writeFile creates path and removes it again if write fails.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
