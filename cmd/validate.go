package cmd

import (
	"fmt"

	"github.com/signalnine/fomstat/internal/multirun"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the study config and load every run",
		Long:  "Load the study config, parse every run directory it names and check that each configured quantity has the same shape in all runs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, agg, err := loadStudy(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config OK: %d runs, %d quantities\n", len(cfg.Runs), len(cfg.Quantities))
			for _, r := range agg.Runs() {
				cycles := r.CycleSeries()
				fmt.Fprintf(out, "  - %s: %d files, cycles %d-%d [%s]\n", r.Source(), r.Len(), cycles[0], cycles[len(cycles)-1], r.Params())
			}
			for _, q := range cfg.Quantities {
				if _, err := agg.Mean(q.Name, multirun.Stat{}); err != nil {
					return fmt.Errorf("quantity %s: %w", q.Name, err)
				}
				if q.Entry != nil {
					if _, err := agg.Table(q.Name, *q.Entry, cfg.Stat(q)); err != nil {
						return fmt.Errorf("quantity %s: %w", q.Name, err)
					}
				}
				fmt.Fprintf(out, "  - %s: ok\n", q.Name)
			}
			return nil
		},
	}
}
