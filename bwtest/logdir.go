package bwtest

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	// testLogsRootDir collects the logs of every run. It is relative to the
	// itest package, which is the working directory of `go test ./itest`.
	testLogsRootDir = "test-logs"

	// logDirPerm is the permission for harness-managed log directories.
	logDirPerm = 0o750
)

// createTestLogDir creates a fresh directory for this run's logs, named after
// the start time. The directory is kept after the run for inspection.
func createTestLogDir(t *testing.T) string {
	t.Helper()

	require.NoError(
		t, os.MkdirAll(testLogsRootDir, logDirPerm),
		"unable to create test log root",
	)

	pattern := "log-" + time.Now().Format("20060102-150405") + "-*"
	dir, err := os.MkdirTemp(testLogsRootDir, pattern)
	require.NoError(t, err, "unable to create test log dir")

	t.Logf("itest logs dir: %s", dir)

	return dir
}
