package cmd

import (
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	flagVerbose bool
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "fomstat",
		Short:        "Figure-of-merit analysis for Monte Carlo transport runs",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env in the working directory is optional
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "fomstat.yaml", "study config file path")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log each parsed result file")
	root.AddCommand(newListCmd())
	root.AddCommand(newFOMCmd())
	root.AddCommand(newCollapseCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newValidateCmd())
	return root
}

// logger returns the progress logger, or nil when --verbose is off.
func logger(w io.Writer) *log.Logger {
	if !flagVerbose {
		return nil
	}
	if w == nil {
		w = os.Stderr
	}
	return log.New(w, "", 0)
}
