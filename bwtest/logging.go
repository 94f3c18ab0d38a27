package bwtest

import (
	"os"
	"testing"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btclog"
	"github.com/btcsuite/btcwatch/chain"
	"github.com/btcsuite/btcwatch/storedb"
	"github.com/btcsuite/btcwatch/wallet"
	"github.com/stretchr/testify/require"
)

// syncLogFilePerm is tighter than logDirPerm since the log holds xpubs and
// addresses.
const syncLogFilePerm = 0o600

// setUpSyncLogging points the package loggers of the sync engine at the given
// file and returns a func closing it.
//
// NOTE: This is package-global logger configuration. It should only be used in
// serial integration tests.
func setUpSyncLogging(t *testing.T, logPath string) func() {
	t.Helper()

	// #nosec G304 -- logPath is created by the test harness.
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC,
		syncLogFilePerm)
	require.NoError(t, err, "unable to create sync log file")

	backend := btclog.NewBackend(f)

	loggers := map[string]func(btclog.Logger){
		"BTWL": wallet.UseLogger,
		"STDB": storedb.UseLogger,
		"CHIO": chain.UseLogger,
		"RPCC": rpcclient.UseLogger,
	}
	for subsystem, use := range loggers {
		logger := backend.Logger(subsystem)
		logger.SetLevel(btclog.LevelDebug)
		use(logger)
	}

	return func() {
		_ = f.Sync()
		_ = f.Close()
	}
}
