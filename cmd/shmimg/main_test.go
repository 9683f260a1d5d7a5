package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hupe1980/shmimg"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default; cobra keeps parsed values
// between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(cmdMain)
	var out bytes.Buffer
	cmdMain.SetOut(&out)
	cmdMain.SetErr(&out)
	cmdMain.SetArgs(append(args, "--log-level", "error"))
	err := cmdMain.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI(t *testing.T) {
	dir := t.TempDir()
	blobs := t.TempDir()
	layout := []string{"--dir", dir, "--shape", "4,6,3", "--group-size", "2", "--group-count", "3"}

	out, err := execute(t, append([]string{"create", "cam"}, layout...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "created cam")

	out, err = execute(t, append([]string{"inspect", "cam"}, layout...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "status:     ok")

	_, err = execute(t, append([]string{"write", "cam", "1", "--value", "7"}, layout...)...)
	require.NoError(t, err)

	dump := filepath.Join(t.TempDir(), "slot.bin")
	_, err = execute(t, append([]string{"read", "cam", "1", "--out", dump}, layout...)...)
	require.NoError(t, err)
	data, err := os.ReadFile(dump)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{7}, 4*6*3*2), data)

	out, err = execute(t, append([]string{"read", "cam", "1"}, layout...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "min=7 max=7")

	out, err = execute(t, append([]string{"snapshot", "save", "cam", "cam.shmimg",
		"--store-path", blobs, "--compression", "lz4"}, layout...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "saved 3 slots")

	out, err = execute(t, "snapshot", "inspect", "cam.shmimg", "--store-path", blobs)
	require.NoError(t, err)
	assert.Contains(t, out, "compression: lz4")

	out, err = execute(t, "snapshot", "list", "--store-path", blobs)
	require.NoError(t, err)
	assert.Contains(t, out, "cam.shmimg")

	_, err = execute(t, append([]string{"create", "copy"}, layout...)...)
	require.NoError(t, err)
	out, err = execute(t, append([]string{"snapshot", "restore", "copy", "cam.shmimg", "--store-path", blobs}, layout...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "restored 3 slots")

	out, err = execute(t, append([]string{"read", "copy", "1"}, layout...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "min=7 max=7")

	for _, name := range []string{"cam", "copy"} {
		_, err = execute(t, "unlink", name, "--dir", dir)
		require.NoError(t, err)
	}
	_, err = execute(t, append([]string{"inspect", "cam"}, layout...)...)
	require.Error(t, err)
}

func TestParseShape(t *testing.T) {
	shape, err := parseShape("480, 640,3")
	require.NoError(t, err)
	assert.Equal(t, []int{480, 640, 3}, shape)

	_, err = parseShape("480x640")
	require.Error(t, err)
}

func TestCLI_InspectSizeMismatch(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "create", "seg", "--dir", dir, "--shape", "4,4", "--group-count", "2")
	require.NoError(t, err)

	out, err := execute(t, "inspect", "seg", "--dir", dir, "--shape", "4,4", "--group-count", "3")
	require.Error(t, err)
	assert.Contains(t, out, "size mismatch")
}

func TestCLI_Demo(t *testing.T) {
	out, err := execute(t, "demo", "--dir", t.TempDir(),
		"--frames", "24", "--producers", "3", "--height", "8", "--width", "8", "--slots", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "24 frames")
	assert.Contains(t, out, "write=24")
}

func TestCLI_Version(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "shmimg dev")
}

func TestFinalizeLogsError(t *testing.T) {
	saved := app.logger
	t.Cleanup(func() { app.logger = saved })

	var buf bytes.Buffer
	app.logger = shmimg.NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	finalize(context.Background(), "frames", func() error { return nil })
	assert.Empty(t, buf.String())

	finalize(context.Background(), "frames", func() error { return errors.New("munmap: invalid argument") })
	line := buf.String()
	assert.Contains(t, line, `"msg":"finalize failed"`)
	assert.Contains(t, line, "munmap: invalid argument")
	assert.Equal(t, 1, strings.Count(line, `"segment":"frames"`))
}

func TestIBytes(t *testing.T) {
	assert.Equal(t, "1.0 KiB", ibytes(1024))
	assert.Equal(t, "0 B", ibytes(0))
	assert.Equal(t, "-1", ibytes(-1))
}
