package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tamirms/bucketsort"
)

// fileConfig is the layout of the --config YAML file. Zero values keep the
// library defaults.
type fileConfig struct {
	Workers    int    `yaml:"workers"`
	BatchLines int    `yaml:"batch_lines"`
	MemoryMB   int64  `yaml:"memory_mb"`
	TempDir    string `yaml:"temp_dir"`
	Verify     *bool  `yaml:"verify"`
}

// loadConfig reads path. An empty path yields an empty configuration.
// Unknown keys are rejected so that typos do not silently fall back to
// defaults.
func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// resolve merges the config file with the flags set on the command line,
// flags winning.
func (f *sortFlags) resolve(cmd *cobra.Command) (*fileConfig, error) {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}
	if flags.Changed("batch-lines") {
		cfg.BatchLines = f.batchLines
	}
	if flags.Changed("memory") {
		cfg.MemoryMB = f.memoryMB
	}
	if flags.Changed("temp-dir") {
		cfg.TempDir = f.tempDir
	}
	if flags.Changed("no-verify") {
		verify := !f.noVerify
		cfg.Verify = &verify
	}
	return cfg, nil
}

// options converts cfg to sort options.
func (cfg *fileConfig) options() []bucketsort.Option {
	var opts []bucketsort.Option
	if cfg.Workers != 0 {
		opts = append(opts, bucketsort.WithWorkers(cfg.Workers))
	}
	if cfg.BatchLines != 0 {
		opts = append(opts, bucketsort.WithBatchLines(cfg.BatchLines))
	}
	if cfg.MemoryMB != 0 {
		opts = append(opts, bucketsort.WithMemoryBudget(cfg.MemoryMB<<20))
	}
	if cfg.TempDir != "" {
		opts = append(opts, bucketsort.WithTempDir(cfg.TempDir))
	}
	if cfg.Verify != nil {
		opts = append(opts, bucketsort.WithVerify(*cfg.Verify))
	}
	return opts
}
