// Command bucketsort sorts a large "<id>. <text>" file with bounded memory.
//
// Usage:
//
//	bucketsort [flags] <input> <output>
//
// Settings may also come from a YAML file given with --config; flags set on
// the command line take precedence over the file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tamirms/bucketsort"
)

// sortFlags holds the command line flags of the root command.
type sortFlags struct {
	configPath string
	workers    int
	batchLines int
	memoryMB   int64
	tempDir    string
	noVerify   bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	var (
		f      sortFlags
		logger *zap.Logger
	)
	cmd := &cobra.Command{
		Use:   "bucketsort <input> <output>",
		Short: "Sort a large \"<id>. <text>\" file by text, then id",
		Long: `bucketsort sorts files larger than memory in three stages:
  1. Partition: route every record to one of 26 letter buckets
  2. Sort: sort buckets in memory, in waves, merging each wave
  3. Merge: k-way merge the wave results into the output

Records whose text does not start with a letter A-Z (either case) are
dropped. A malformed line aborts the sort and leaves the output untouched.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = newLogger(f.verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			opts := append(cfg.options(), bucketsort.WithLogger(logger))

			stats, err := bucketsort.Sort(cmd.Context(), args[0], args[1], opts...)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), stats)
			return nil
		},
	}

	f.register(cmd)
	return cmd
}

// register defines the sort flags on cmd, bound to f.
func (f *sortFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "YAML file with default settings")
	flags.IntVarP(&f.workers, "workers", "w", 0, "parallelism degree (default GOMAXPROCS)")
	flags.IntVar(&f.batchLines, "batch-lines", 0, "input lines per partition batch (default 2000)")
	flags.Int64VarP(&f.memoryMB, "memory", "m", 0, "memory budget for bucket sorts in MiB (default 1024)")
	flags.StringVar(&f.tempDir, "temp-dir", "", "directory for intermediate files (default system temp)")
	flags.BoolVar(&f.noVerify, "no-verify", false, "skip output order and completeness checks")
	cmd.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")
}

// newLogger builds a production zap logger, at debug level when verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
