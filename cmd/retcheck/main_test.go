package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// runApp runs the CLI and returns its output and the exit code it asked for
func runApp(t *testing.T, args ...string) (string, int) {
	t.Helper()

	code := 0
	exiter := cli.OsExiter
	cli.OsExiter = func(c int) { code = c }
	t.Cleanup(func() { cli.OsExiter = exiter })

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	if err := app.Run(append([]string{"retcheck"}, args...)); err != nil {
		_, ok := err.(cli.ExitCoder)
		require.True(t, ok, "unexpected error: %v", err)
	}
	return out.String(), code
}

func writeListing(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.lst")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestJSONOutputAndExitCode(t *testing.T) {
	out, code := runApp(t, "--format", "json", filepath.Join("..", "..", "examples", "mixed_paths.lst"))

	assert.Equal(t, 1, code)

	var files []struct {
		Path      string `json:"path"`
		Functions []struct {
			Function string `json:"function"`
			Findings []struct {
				CallSite     string `json:"call_site"`
				MutationSite string `json:"mutation_site"`
				Severity     string `json:"severity"`
			} `json:"findings"`
		} `json:"functions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &files))
	require.Len(t, files, 1)
	require.Len(t, files[0].Functions, 1)
	assert.Equal(t, "settle", files[0].Functions[0].Function)
	require.Len(t, files[0].Functions[0].Findings, 1)
	assert.Equal(t, "high", files[0].Functions[0].Findings[0].Severity)
}

func TestCleanListingSucceeds(t *testing.T) {
	path := writeListing(t, `function ok {
  block 0:
    %ok = CALL(%to, %amt)
    require(%ok)
    SSTORE(%slot, %v)
    return
}
`)
	out, code := runApp(t, path)

	assert.Equal(t, 0, code)
	assert.Contains(t, out, "0 finding(s) in 1 function(s) across 1 file(s), 0 failure(s)")
}

func TestFlagsOverrideConfig(t *testing.T) {
	path := writeListing(t, `function exits {
  block 0:
    %ok = CALL(%to, %amt)
    return
}
`)
	_, code := runApp(t, path)
	assert.Equal(t, 0, code)

	out, code := runApp(t, "--exit-is-effect", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "W0104")

	_, code = runApp(t, "--exit-is-effect", "--severity", "high", path)
	assert.Equal(t, 0, code, "medium findings are below the threshold")
}

func TestInvalidSettingsAreRejected(t *testing.T) {
	path := writeListing(t, "function f {\n  block 0:\n    return\n}\n")

	_, code := runApp(t, "--severity", "critical", path)
	assert.Equal(t, 2, code)

	_, code = runApp(t, "--format", "xml", path)
	assert.Equal(t, 2, code)
}

func TestDumpPrintsGraphs(t *testing.T) {
	out, code := runApp(t, "--dump", filepath.Join("..", "..", "examples", "mixed_paths.lst"))

	assert.Equal(t, 0, code)
	assert.Contains(t, out, "FUNCTION settle (entry b0, 4 blocks")
}

func TestPrintListingIsCanonical(t *testing.T) {
	out, code := runApp(t, "--print-listing", filepath.Join("..", "..", "examples", "mixed_paths.lst"))

	assert.Equal(t, 0, code)
	assert.Contains(t, out, "function settle {\n")
	assert.Contains(t, out, `SSTORE(%slot, %v) @"Escrow.sol:56:13"`)
	assert.NotContains(t, out, "FUNCTION settle")

	path := writeListing(t, "function f {\n  block 0\n}\n")
	_, code = runApp(t, "--print-listing", path)
	assert.Equal(t, 1, code)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{500 * time.Nanosecond, "500ns"},
		{1500 * time.Nanosecond, "1.5μs"},
		{2500 * time.Microsecond, "2.5ms"},
		{1500 * time.Millisecond, "1.50s"},
		{90 * time.Second, "1.50min"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
}
