// Command gensort writes a random "<id>. <text>" input file for bucketsort.
//
// Usage:
//
//	gensort --size 1024 input.txt
//	gensort --lines 1000000 --words words.txt --seed 7 input.txt
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tamirms/bucketsort/internal/gen"
)

type genFlags struct {
	sizeMB    int64
	lines     int64
	seed      uint32
	wordsPath string
}

func newRootCmd() *cobra.Command {
	var f genFlags
	cmd := &cobra.Command{
		Use:   "gensort <output>",
		Short: "Generate a random input file for bucketsort",
		Long: `gensort writes "<id>. <text>" lines with random non-negative ids and
texts drawn from a word list. The same seed and word list always produce
the same file.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return f.run(cmd, args[0])
		},
	}
	flags := cmd.Flags()
	flags.Int64VarP(&f.sizeMB, "size", "s", 0, "target file size in MiB")
	flags.Int64VarP(&f.lines, "lines", "n", 0, "exact number of lines (instead of --size)")
	flags.Uint32Var(&f.seed, "seed", 1, "generator seed")
	flags.StringVar(&f.wordsPath, "words", "", "word list file, one entry per line (default built-in list)")
	cmd.MarkFlagsMutuallyExclusive("size", "lines")
	return cmd
}

func (f *genFlags) run(cmd *cobra.Command, outputPath string) (err error) {
	if f.sizeMB <= 0 && f.lines <= 0 {
		return errors.New("one of --size or --lines must be positive")
	}

	words := gen.DefaultWords
	if f.wordsPath != "" {
		wf, err := os.Open(f.wordsPath)
		if err != nil {
			return fmt.Errorf("open word list: %w", err)
		}
		words, err = gen.LoadWords(wf)
		_ = wf.Close()
		if err != nil {
			return fmt.Errorf("load word list: %w", err)
		}
	}
	g, err := gen.New(words, f.seed)
	if err != nil {
		return err
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		err = errors.Join(err, out.Close())
	}()

	var lines, written int64
	if f.lines > 0 {
		lines = f.lines
		written, err = g.WriteLines(out, f.lines)
	} else {
		lines, written, err = g.WriteSize(out, f.sizeMB<<20)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d lines (%d bytes) to %s\n", lines, written, outputPath)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
