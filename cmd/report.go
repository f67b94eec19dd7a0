package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/signalnine/fomstat/internal/config"
	"github.com/signalnine/fomstat/internal/multirun"
	"github.com/signalnine/fomstat/internal/report"
	"github.com/spf13/cobra"
)

// loadStudy reads the study config and loads every run it names.
func loadStudy(cmd *cobra.Command) (*config.Study, *multirun.Aggregator, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	agg, err := multirun.New(cmd.Context(), cfg.Dirs(), cfg.Params(), &multirun.Opts{
		Load:     cfg.LoadOpts(logger(cmd.ErrOrStderr())),
		Parallel: cfg.Parallel,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, agg, nil
}

func requests(cfg *config.Study) []report.Request {
	reqs := make([]report.Request, len(cfg.Quantities))
	for i, q := range cfg.Quantities {
		reqs[i] = report.Request{Quantity: q.Name, Entry: q.Entry, Stat: cfg.Stat(q)}
	}
	return reqs
}

func newReportCmd() *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarise a parametric study across its runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, agg, err := loadStudy(cmd)
			if err != nil {
				return err
			}
			if len(cfg.Quantities) == 0 {
				return fmt.Errorf("no quantities defined in %s", cfgFile)
			}
			summary, err := report.Summarize(agg, requests(cfg))
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating report: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := report.Generate(summary, format, w); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "output format (table, markdown, json, csv, xlsx)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	return cmd
}
