package bwtest

import (
	"path/filepath"
	"runtime/debug"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcwatch/chain"
	"github.com/btcsuite/btcwatch/storedb"
	"github.com/btcsuite/btcwatch/wallet"
	"github.com/stretchr/testify/require"
)

// HarnessTest is the integration test harness. It owns one regtest bitcoind
// shared by every test case.
type HarnessTest struct {
	*testing.T

	// Node is the bitcoind process the stores are synced against.
	Node *Node

	// StoreDB is a store database created for the current subtest.
	StoreDB *storedb.DB
}

// SetupHarness starts the shared node and routes the engine's logs into a
// per-run log directory.
func SetupHarness(t *testing.T) *HarnessTest {
	t.Helper()

	logDir := createTestLogDir(t)

	closeLog := setUpSyncLogging(t, filepath.Join(logDir, "btcwatch.log"))
	t.Cleanup(closeLog)

	node, err := NewNode(filepath.Join(logDir, "bitcoind"))
	require.NoError(t, err, "unable to create bitcoind node")
	require.NoError(t, node.Start(), "failed to start bitcoind")
	t.Cleanup(node.Stop)

	return &HarnessTest{
		T:    t,
		Node: node,
	}
}

// Subtest creates a child harness that shares the node and has its own
// store database.
func (h *HarnessTest) Subtest(t *testing.T) *HarnessTest {
	h.Helper()

	db, err := storedb.Open(
		filepath.Join(t.TempDir(), "stores.db"), storedb.DefaultTimeout,
	)
	require.NoError(t, err, "unable to open store db")
	t.Cleanup(func() {
		require.NoError(t, db.Close(), "failed to close store db")
	})

	return &HarnessTest{
		T:       t,
		Node:    h.Node,
		StoreDB: db,
	}
}

// RunTestCase executes a harness test case. Any panic from the test function
// is converted into a fatal test failure with a stack trace.
func (h *HarnessTest) RunTestCase(name string,
	testFunc func(t *HarnessTest)) {

	h.Helper()

	defer func() {
		r := recover()
		if r == nil {
			return
		}

		h.Fatalf("failed (%s): panic=%v\n%s", name, r, debug.Stack())
	}()

	if testFunc == nil {
		h.Fatalf("nil test func for %s", name)
	}

	testFunc(h)
}

// NetParams returns the chain parameters used by the harness.
func (h *HarnessTest) NetParams() *chaincfg.Params {
	return harnessNetParams
}

// Connect returns a client bound to the named wallet on the shared node.
func (h *HarnessTest) Connect(walletName string) *chain.BitcoindClient {
	h.Helper()

	client, err := chain.NewBitcoindClient(h.Node.ChainConfig(walletName))
	require.NoError(h, err, "unable to connect to bitcoind")
	h.Cleanup(client.Stop)

	return client
}

// NewSyncer connects to the store's wallet and returns a syncer for it. The
// chain of cfg is filled in unless the caller already set one.
func (h *HarnessTest) NewSyncer(store *wallet.Store,
	cfg wallet.Config) *wallet.Syncer {

	h.Helper()

	if cfg.Chain == nil {
		cfg.Chain = h.Connect(store.FileName)
	}

	syncer, err := wallet.NewSyncer(cfg, store)
	require.NoError(h, err, "unable to create syncer")

	return syncer
}

// MineBlocks mines num blocks to the descriptor and returns the new tip.
func (h *HarnessTest) MineBlocks(num uint32, descriptor string) uint32 {
	h.Helper()

	hashes, err := h.Node.Generate(num, descriptor)
	require.NoError(h, err, "unable to mine blocks")
	require.Len(h, hashes, int(num))

	height, err := h.Node.Height()
	require.NoError(h, err, "unable to fetch height")

	//nolint:gosec // regtest heights fit in uint32.
	return uint32(height)
}
