package cmd

import (
	"fmt"

	"github.com/signalnine/fomstat/internal/fom"
	"github.com/signalnine/fomstat/internal/report"
	"github.com/signalnine/fomstat/internal/result"
	"github.com/signalnine/fomstat/internal/run"
	"github.com/spf13/cobra"
)

// fomFlags are shared by the single-run analysis commands.
type fomFlags struct {
	runFlags
	quantity string
	entry    string
	basis    string
	cap      float64
	format   string
}

func (f *fomFlags) register(cmd *cobra.Command, defaultEntry string) {
	f.runFlags.register(cmd)
	cmd.Flags().StringVarP(&f.quantity, "quantity", "q", "", "quantity name (required)")
	cmd.Flags().StringVarP(&f.entry, "entry", "e", defaultEntry, `groups ("1,2") or matrix cells ("1:1,2:2")`)
	cmd.Flags().StringVar(&f.basis, "basis", "cpu", "cost basis (cpu, cycle)")
	cmd.Flags().Float64Var(&f.cap, "cap", 0, "drop records whose cost exceeds this (0 keeps all)")
	cmd.Flags().StringVar(&f.format, "format", "table", "output format (table, markdown, json, csv, xlsx)")
	_ = cmd.MarkFlagRequired("quantity")
}

func (f *fomFlags) options() (fom.Options, error) {
	basis, err := fom.ParseBasis(f.basis)
	if err != nil {
		return fom.Options{}, err
	}
	return fom.Options{Basis: basis, Cap: f.cap}, nil
}

func (f *fomFlags) parse(cmd *cobra.Command, dir string) (*run.Collection, result.Entry, fom.Options, error) {
	opts, err := f.options()
	if err != nil {
		return nil, result.Entry{}, opts, err
	}
	entry, err := result.ParseEntry(f.entry)
	if err != nil {
		return nil, result.Entry{}, opts, err
	}
	c, err := f.load(cmd, dir)
	if err != nil {
		return nil, result.Entry{}, opts, err
	}
	return c, entry, opts, nil
}

func parseAxis(s string) (fom.Axis, error) {
	switch s {
	case "", "cycle", "cycles":
		return fom.AxisCycle, nil
	case "cpu", "cpu_time":
		return fom.AxisCPU, nil
	}
	return fom.AxisCycle, fmt.Errorf("unknown axis %q (want cycle or cpu)", s)
}

// correctionFactor returns factor, or the run's mean cycles per cpu second
// when factor is zero.
func correctionFactor(c *run.Collection, factor float64) (float64, error) {
	if factor != 0 {
		return factor, nil
	}
	f, err := c.MeanCycVCPU()
	if err != nil {
		return 0, fmt.Errorf("deriving correction factor: %w", err)
	}
	return f, nil
}

func newFOMCmd() *cobra.Command {
	var (
		f         fomFlags
		axis      string
		errs      bool
		corrected bool
		factor    float64
	)
	cmd := &cobra.Command{
		Use:   "fom [run-dir]",
		Short: "Tabulate the FOM history of quantity entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, entry, opts, err := f.parse(cmd, args[0])
			if err != nil {
				return err
			}
			ax, err := parseAxis(axis)
			if err != nil {
				return err
			}
			eng := fom.New(c)
			var tbl *fom.Table
			if corrected {
				if errs {
					return fmt.Errorf("--errors cannot be combined with --corrected")
				}
				if cmd.Flags().Changed("basis") && opts.Basis != fom.Cycles {
					return fmt.Errorf("--corrected uses the cycle basis, got --basis %s", f.basis)
				}
				k, err := correctionFactor(c, factor)
				if err != nil {
					return err
				}
				tbl, err = eng.DataCorrected(f.quantity, entry, ax, k, opts.Cap)
				if err != nil {
					return err
				}
			} else {
				tbl, err = eng.Data(f.quantity, entry, ax, !errs, opts)
				if err != nil {
					return err
				}
			}
			return report.WriteTable(tbl, f.format, cmd.OutOrStdout())
		},
	}
	f.register(cmd, "1")
	cmd.Flags().StringVar(&axis, "axis", "cycle", "first column (cycle, cpu)")
	cmd.Flags().BoolVar(&errs, "errors", false, "print relative errors instead of FOM")
	cmd.Flags().BoolVar(&corrected, "corrected", false, "print the cycle-based FOM scaled by --factor; --cap then bounds the cycle")
	cmd.Flags().Float64Var(&factor, "factor", 0, "correction factor (0 uses the mean cycles per cpu second)")
	return cmd
}

func newCollapseCmd() *cobra.Command {
	var (
		f       fomFlags
		errs    bool
		average bool
		lastN   int
	)
	cmd := &cobra.Command{
		Use:   "collapse [run-dir]",
		Short: "Combine several entries into one FOM history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, entry, opts, err := f.parse(cmd, args[0])
			if err != nil {
				return err
			}
			eng := fom.New(c)
			if average {
				v, err := eng.CollapseAverage(f.quantity, entry, lastN, opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s[%s]\t%g\n", f.quantity, entry, v)
				return nil
			}
			tbl, err := eng.Collapse(f.quantity, entry, !errs, opts)
			if err != nil {
				return err
			}
			return report.WriteTable(tbl, f.format, cmd.OutOrStdout())
		},
	}
	f.register(cmd, "")
	_ = cmd.MarkFlagRequired("entry")
	cmd.Flags().BoolVar(&errs, "errors", false, "sum relative errors instead of computing FOM")
	cmd.Flags().BoolVar(&average, "average", false, "print the mean collapsed FOM")
	cmd.Flags().IntVar(&lastN, "last-n", 0, "average over the last N records (0 for all)")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var (
		f      fomFlags
		lastN  int
		skip   int
		factor float64
	)
	cmd := &cobra.Command{
		Use:   "stats [run-dir]",
		Short: "Summarise FOM convergence of quantity entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, entry, opts, err := f.parse(cmd, args[0])
			if err != nil {
				return err
			}
			rows, err := statRows(c, f.quantity, entry, opts, lastN, skip, factor)
			if err != nil {
				return err
			}
			return report.WriteStats(rows, f.format, cmd.OutOrStdout())
		},
	}
	f.register(cmd, "1")
	cmd.Flags().IntVar(&lastN, "last-n", 0, "average over the last N records (0 for all)")
	cmd.Flags().IntVar(&skip, "skip", 1, "leading records dropped from the variance")
	cmd.Flags().Float64Var(&factor, "factor", 0, "correction factor (0 uses the mean cycles per cpu second)")
	return cmd
}

// statRows computes the convergence statistics of each coordinate of entry.
// The corrected std is left unset when no correction factor can be derived.
func statRows(c *run.Collection, quantity string, entry result.Entry, opts fom.Options, lastN, skip int, factor float64) ([]report.StatRow, error) {
	eng := fom.New(c)
	k, kerr := correctionFactor(c, factor)
	labels := entry.Labels(quantity)
	var rows []report.StatRow
	for i, e := range entry.Split() {
		series, err := eng.FOM(quantity, e, opts)
		if err != nil {
			return nil, err
		}
		if len(series) == 0 {
			return nil, fmt.Errorf("%w: cap %g excludes every record", fom.ErrInvalidWindow, opts.Cap)
		}
		row := report.StatRow{Label: labels[i], Final: series[len(series)-1]}
		if row.Average, err = eng.Average(quantity, e, lastN, opts); err != nil {
			return nil, err
		}
		if row.Std, err = eng.Std(quantity, e, opts); err != nil {
			return nil, err
		}
		if row.Variance, err = eng.Variance(quantity, e, opts, skip); err != nil {
			return nil, err
		}
		if kerr == nil {
			sc, err := eng.StdCorrected(quantity, e, k)
			if err != nil {
				return nil, err
			}
			row.StdCorrected = &sc
		}
		rows = append(rows, row)
	}
	return rows, nil
}
