package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDeviceConfig(t *testing.T, role string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "device.yaml")
	body := fmt.Sprintf("role: %s\ndatabase: %s\n", role, filepath.Join(dir, "device.db"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunMissingConfig(t *testing.T) {
	_, err := executeCommand(t, "run", "--config", "/does/not/exist.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunRejectsBadRole(t *testing.T) {
	_, err := executeCommand(t, "run", "--config", writeDeviceConfig(t, "referee"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid role")
}

func TestRunStopsOnContextCancel(t *testing.T) {
	cmd := NewRootCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"run", "--config", writeDeviceConfig(t, "primary")})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := cmd.ExecuteContext(ctx)
	require.NoError(t, err, "cancellation is a clean shutdown")
	assert.Contains(t, buf.String(), "primary device running")
}
