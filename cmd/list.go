package cmd

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/signalnine/fomstat/internal/run"
	"github.com/spf13/cobra"
)

// runFlags selects and parses the result files of one run directory.
type runFlags struct {
	pattern string
	workers int
}

func (r *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.pattern, "pattern", "", "result file glob (default *.m)")
	cmd.Flags().IntVar(&r.workers, "workers", 4, "files parsed concurrently")
}

func (r *runFlags) load(cmd *cobra.Command, dir string) (*run.Collection, error) {
	return run.Load(dir, &run.LoadOpts{
		Pattern: r.pattern,
		Workers: r.workers,
		Logger:  logger(cmd.ErrOrStderr()),
	})
}

func newListCmd() *cobra.Command {
	var rf runFlags
	cmd := &cobra.Command{
		Use:   "list [run-dir]",
		Short: "List the result files and quantities of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rf.load(cmd, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run: %s (%d files)\n\n", c.Source(), c.Len())
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CYCLE\tCPU TIME\tFILE")
			for _, r := range c.Records() {
				fmt.Fprintf(tw, "%d\t%g\t%s\n", r.Cycle, r.CPUTime, filepath.Base(r.Filename))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out, "\nQuantities:")
			for _, name := range c.Quantities() {
				q, err := c.Quantity(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  - %s (%s)\n", name, q.Shape())
			}
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}
