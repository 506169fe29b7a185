package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	sorterrors "github.com/tamirms/bucketsort/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmdSorts(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.txt", "5. Banana\n2. Apple\n9. apple\n1. cherry\n3. 42\n")
	output := filepath.Join(dir, "out.txt")

	stdout, err := runRoot(t, "--workers", "2", "--temp-dir", t.TempDir(), input, output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, "2. Apple\n5. Banana\n9. apple\n1. cherry\n", string(data))
	require.Contains(t, stdout, "Read 5 lines, dropped 1, wrote 4 records")
	require.Contains(t, stdout, "Total time")
}

func TestRootCmdMalformed(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.txt", "1. Apple\nabc. text\n")
	output := filepath.Join(dir, "out.txt")

	_, err := runRoot(t, input, output)
	require.ErrorIs(t, err, sorterrors.ErrMalformedRecord)
	require.NoFileExists(t, output)
}

func TestRootCmdArgs(t *testing.T) {
	_, err := runRoot(t, "only-one-arg")
	require.Error(t, err)
}

func TestRootCmdBadConfig(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "in.txt", "1. Apple\n")
	config := writeFile(t, dir, "cfg.yaml", "wokers: 3\n")

	_, err := runRoot(t, "--config", config, input, filepath.Join(dir, "out.txt"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "wokers")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadConfig("")
	require.NoError(t, err)
	require.Equal(t, &fileConfig{}, cfg)

	path := writeFile(t, dir, "cfg.yaml", strings.Join([]string{
		"workers: 6",
		"batch_lines: 500",
		"memory_mb: 256",
		"temp_dir: /scratch",
		"verify: false",
	}, "\n"))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 6, cfg.Workers)
	require.Equal(t, 500, cfg.BatchLines)
	require.Equal(t, int64(256), cfg.MemoryMB)
	require.Equal(t, "/scratch", cfg.TempDir)
	require.NotNil(t, cfg.Verify)
	require.False(t, *cfg.Verify)
	require.Len(t, cfg.options(), 5)

	empty := writeFile(t, dir, "empty.yaml", "")
	cfg, err = loadConfig(empty)
	require.NoError(t, err)
	require.Empty(t, cfg.options())

	_, err = loadConfig(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", "workers: 6\nbatch_lines: 500\nverify: true\n")

	var f sortFlags
	cmd := &cobra.Command{}
	f.register(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "-w", "2", "--no-verify", "-m", "64"}))

	cfg, err := f.resolve(cmd)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Workers)
	require.Equal(t, 500, cfg.BatchLines)
	require.Equal(t, int64(64), cfg.MemoryMB)
	require.NotNil(t, cfg.Verify)
	require.False(t, *cfg.Verify)
}
