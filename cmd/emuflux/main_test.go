package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const toy = "../../model/testdata/toy.yaml"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestNetworks(t *testing.T) {
	out, err := execute(t, "networks", "--model", toy)
	require.NoError(t, err)
	require.Contains(t, out, "network 0: size 1")
	require.Contains(t, out, "inputs: A:")
}

func TestSimulate(t *testing.T) {
	out, err := execute(t, "simulate", "--model", toy, "--flux", "v2b=50", "--flux", "v4=20")
	require.NoError(t, err)
	require.Contains(t, out, "F:111")
	require.Contains(t, out, "D:011")
	require.Contains(t, out, "SSR ")

	_, err = execute(t, "simulate", "--model", toy, "--flux", "nope=1")
	require.ErrorContains(t, err, "not a free flux")
	_, err = execute(t, "simulate", "--model", toy, "--flux", "v4")
	require.ErrorContains(t, err, "name=value")
}

func TestFitAndRuns(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")
	out, err := execute(t, "fit", "--model", toy, "--restarts", "2", "--iterations", "20",
		"--workers", "2", "--db", db, "--log-level", "warn")
	require.NoError(t, err)
	require.Contains(t, out, "restart 0")
	require.Contains(t, out, "stored run")

	out, err = execute(t, "runs", "--db", db)
	require.NoError(t, err)
	require.Contains(t, out, "toy")
}

func TestGlobalsValidation(t *testing.T) {
	t.Setenv(envModel, "")
	_, err := execute(t, "networks")
	require.ErrorContains(t, err, envModel)

	_, err = execute(t, "networks", "--model", toy, "--log-format", "xml")
	require.ErrorContains(t, err, "--log-format")
}
