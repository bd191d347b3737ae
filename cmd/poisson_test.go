package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/fdmpoisson/solver"
)

func TestParseLevelMax(t *testing.T) {
	for arg, want := range map[string]int{"0": 0, "3": 3, " 2 ": 2} {
		l, err := parseLevelMax(arg)
		require.NoError(t, err, arg)
		assert.Equal(t, want, l)
	}
	for _, arg := range []string{"-1", "x", "", "1.5"} {
		_, err := parseLevelMax(arg)
		assert.Error(t, err, arg)
	}
}

func TestRootArgs(t *testing.T) {
	assert.Error(t, rootCmd.Args(rootCmd, nil))
	assert.Error(t, rootCmd.Args(rootCmd, []string{"1", "2"}))
	assert.Error(t, rootCmd.Args(rootCmd, []string{"-2"}))
	assert.NoError(t, rootCmd.Args(rootCmd, []string{"2"}))
}

func TestRootFlags(t *testing.T) {
	for _, name := range []string{"inputConditionsFile", "device", "executor", "workers", "csv", "profile", "perf", "verbose"} {
		assert.NotNil(t, rootCmd.Flags().Lookup(name), name)
	}
	opts := optionsFromViper()
	assert.Equal(t, defaultOptions.Device, opts.Device)
	assert.Equal(t, "pargo", opts.Executor)
	assert.Equal(t, 0, opts.Workers)
}

func TestProcessInput(t *testing.T) {
	{ // No file gives the defaults
		ip, err := processInput("")
		require.NoError(t, err)
		p, err := ip.Params()
		require.NoError(t, err)
		assert.Equal(t, solver.DefaultConfig(), p.Solver)
	}
	dir := t.TempDir()
	{
		fileName := filepath.Join(dir, "input.yaml")
		require.NoError(t, os.WriteFile(fileName, []byte(`
Title: "Test Case"
BaseGridSize: 16
Preconditioner: none
`), 0o644))
		ip, err := processInput(fileName)
		require.NoError(t, err)
		assert.Equal(t, 16, ip.BaseGridSize)
		assert.Equal(t, "none", ip.Preconditioner)
	}
	{
		fileName := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(fileName, []byte("MaxIterations: -4\n"), 0o644))
		_, err := processInput(fileName)
		assert.Error(t, err)
	}
	_, err := processInput(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestRunPoissonRejectsBadOptions(t *testing.T) {
	{
		opts := defaultOptions
		opts.Profile = "heap"
		assert.Error(t, RunPoisson(opts, 0, os.Stdout))
	}
	{
		opts := defaultOptions
		opts.Executor = "threads"
		assert.Error(t, RunPoisson(opts, 0, os.Stdout))
	}
	{
		opts := defaultOptions
		opts.ICFile = filepath.Join(t.TempDir(), "missing.yaml")
		assert.Error(t, RunPoisson(opts, 0, os.Stdout))
	}
}
