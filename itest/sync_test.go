//go:build itest

package itest

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwatch/bwtest"
	"github.com/btcsuite/btcwatch/chain"
	"github.com/btcsuite/btcwatch/wallet"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

const (
	// burnDescriptor collects the coinbase of blocks mined only to mature
	// earlier outputs.
	burnDescriptor = "raw(51)"

	// coinbaseMaturity is the number of blocks a coinbase output needs on
	// top before listunspent reports it.
	coinbaseMaturity = 100

	// testImportCount keeps ranged imports small.
	testImportCount = 20
)

// countingLedger counts the import and rescan calls a sync makes.
type countingLedger struct {
	*chain.BitcoindClient

	imports int
	rescans int
}

func (c *countingLedger) ImportDescriptors(reqs []chain.ImportRequest) (
	[]chain.ImportResult, error) {

	c.imports += len(reqs)
	return c.BitcoindClient.ImportDescriptors(reqs)
}

func (c *countingLedger) RescanBlockchain(start, end int64) (
	*chain.RescanResult, error) {

	c.rescans++
	return c.BitcoindClient.RescanBlockchain(start, end)
}

// newAccountXPub returns a fresh regtest account xpub.
func newAccountXPub(h *bwtest.HarnessTest) string {
	h.Helper()

	seed, err := hdkeychain.GenerateSeed(hdkeychain.RecommendedSeedLen)
	require.NoError(h, err)

	master, err := hdkeychain.NewMaster(seed, h.NetParams())
	require.NoError(h, err)

	xpub, err := master.Neuter()
	require.NoError(h, err)

	return xpub.String()
}

// newPubKey returns a fresh public key.
func newPubKey(h *bwtest.HarnessTest) *btcec.PublicKey {
	h.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(h, err)

	return priv.PubKey()
}

// newSwapCoin returns a swap coin whose contract pays to a fresh key.
func newSwapCoin(h *bwtest.HarnessTest) *wallet.SwapCoin {
	h.Helper()

	contractKey := newPubKey(h)
	contract, err := txscript.NewScriptBuilder().
		AddData(contractKey.SerializeCompressed()).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	require.NoError(h, err)

	return &wallet.SwapCoin{
		OtherPubKey:          newPubKey(h),
		MyPubKey:             newPubKey(h),
		ContractRedeemScript: contract,
		Funding:              wire.OutPoint{Index: 0},
		Amount:               btcutil.Amount(50 * btcutil.SatoshiPerBitcoin),
	}
}

// swapMultisigDescriptor returns the funding descriptor of a swap coin.
func swapMultisigDescriptor(coin *wallet.SwapCoin) string {
	return fmt.Sprintf("wsh(sortedmulti(2,%x,%x))",
		coin.OtherPubKey.SerializeCompressed(),
		coin.MyPubKey.SerializeCompressed())
}

// requireUnspentScript asserts the wallet lists an output locked to the
// script.
func requireUnspentScript(h *bwtest.HarnessTest, client *chain.BitcoindClient,
	script string) {

	h.Helper()

	unspent, err := client.ListUnspent()
	require.NoError(h, err)

	for _, u := range unspent {
		if u.ScriptPubKey == script {
			return
		}
	}

	h.Fatalf("no unspent output with script %s in %d outputs", script,
		len(unspent))
}

// scriptOf returns the hex script-pub-key the descriptor expands to.
func scriptOf(h *bwtest.HarnessTest, client *chain.BitcoindClient,
	descriptor string) string {

	h.Helper()

	addrs, err := client.DeriveAddresses(descriptor, nil)
	require.NoError(h, err)
	require.Len(h, addrs, 1)

	addr, err := btcutil.DecodeAddress(addrs[0], h.NetParams())
	require.NoError(h, err)

	script, err := txscript.PayToAddrScript(addr)
	require.NoError(h, err)

	return hex.EncodeToString(script)
}

// testNetworkMismatch verifies a client configured for another network never
// connects.
func testNetworkMismatch(h *bwtest.HarnessTest) {
	h.Helper()

	cfg := h.Node.ChainConfig(walletName(h))
	cfg.Params = &chaincfg.MainNetParams

	_, err := chain.NewBitcoindClient(cfg)
	require.ErrorIs(h, err, chain.ErrNetworkMismatch)
}

// testSyncReceiveIndex verifies a fresh store creates its wallet, finds a
// payment to its receive branch and advances the receive index past it.
func testSyncReceiveIndex(h *bwtest.HarnessTest) {
	h.Helper()

	store := wallet.NewStore(walletName(h))
	store.AccountXPub = newAccountXPub(h)

	h.MineBlocks(1, fmt.Sprintf("wpkh(%s/0/7)", store.AccountXPub))
	tip := h.MineBlocks(coinbaseMaturity, burnDescriptor)

	syncer := h.NewSyncer(store, wallet.Config{
		ImportCount: testImportCount,
	})

	err := syncer.Sync(h.Context())
	require.NoError(h, err, "sync failed")

	client := h.Connect(store.FileName)
	wallets, err := client.ListWallets()
	require.NoError(h, err)
	require.Contains(h, wallets, store.FileName)

	require.Equal(h, uint32(8), store.ExternalIndex)
	require.Equal(h, fn.Some(tip), store.LastSyncedHeight)
}

// testSyncSwapCoinsAndBonds verifies swap multisigs, contracts and bonds are
// watched and their funding outputs found by the rescan.
func testSyncSwapCoinsAndBonds(h *bwtest.HarnessTest) {
	h.Helper()

	store := wallet.NewStore(walletName(h))
	coin := newSwapCoin(h)
	store.IncomingSwapCoins["swap-in"] = coin
	store.OutgoingSwapCoins["swap-out"] = newSwapCoin(h)

	entry, err := store.AddFidelityBond(&wallet.FidelityBond{
		Amount:   btcutil.Amount(btcutil.SatoshiPerBitcoin),
		LockTime: 500,
		PubKey:   newPubKey(h),
	})
	require.NoError(h, err)

	bondScript := hex.EncodeToString(entry.ScriptPubKey)
	multisigDesc := swapMultisigDescriptor(coin)

	h.MineBlocks(1, multisigDesc)
	h.MineBlocks(1, "raw("+bondScript+")")
	tip := h.MineBlocks(coinbaseMaturity, burnDescriptor)

	syncer := h.NewSyncer(store, wallet.Config{})
	err = syncer.Sync(h.Context())
	require.NoError(h, err, "sync failed")

	client := h.Connect(store.FileName)
	requireUnspentScript(h, client, scriptOf(h, client, multisigDesc))
	requireUnspentScript(h, client, bondScript)

	require.Equal(h, fn.Some(tip), store.LastSyncedHeight)
}

// testSyncIdle verifies a second sync of an unchanged store neither imports
// nor rescans.
func testSyncIdle(h *bwtest.HarnessTest) {
	h.Helper()

	store := wallet.NewStore(walletName(h))
	store.AccountXPub = newAccountXPub(h)
	store.IncomingSwapCoins["swap-in"] = newSwapCoin(h)

	_, err := store.AddFidelityBond(&wallet.FidelityBond{
		Amount:   btcutil.Amount(btcutil.SatoshiPerBitcoin),
		LockTime: 700,
		PubKey:   newPubKey(h),
	})
	require.NoError(h, err)

	ledger := &countingLedger{BitcoindClient: h.Connect(store.FileName)}
	syncer := h.NewSyncer(store, wallet.Config{
		Chain:       ledger,
		ImportCount: testImportCount,
	})

	require.NoError(h, syncer.Sync(h.Context()), "first sync failed")
	require.Equal(h, 5, ledger.imports)
	require.Equal(h, 1, ledger.rescans)

	synced := store.LastSyncedHeight
	h.MineBlocks(3, burnDescriptor)

	require.NoError(h, syncer.Sync(h.Context()), "second sync failed")
	require.Equal(h, 5, ledger.imports)
	require.Equal(h, 1, ledger.rescans)
	require.Equal(h, synced, store.LastSyncedHeight)
}

// testStoreResume verifies a store saved to disk and loaded back resumes the
// rescan at its last synced height.
func testStoreResume(h *bwtest.HarnessTest) {
	h.Helper()

	store := wallet.NewStore(walletName(h))
	store.IncomingSwapCoins["swap-a"] = newSwapCoin(h)

	syncer := h.NewSyncer(store, wallet.Config{})
	require.NoError(h, syncer.Sync(h.Context()), "first sync failed")
	require.NoError(h, h.StoreDB.Put(store))

	// A new swap coin gets funded after the first sync.
	coin := newSwapCoin(h)
	multisigDesc := swapMultisigDescriptor(coin)
	h.MineBlocks(1, multisigDesc)
	tip := h.MineBlocks(coinbaseMaturity, burnDescriptor)

	loaded, err := h.StoreDB.Load(store.FileName)
	require.NoError(h, err)
	require.Equal(h, store.LastSyncedHeight, loaded.LastSyncedHeight)

	loaded.IncomingSwapCoins["swap-b"] = coin

	ledger := &countingLedger{BitcoindClient: h.Connect(loaded.FileName)}
	syncer = h.NewSyncer(loaded, wallet.Config{Chain: ledger})
	require.NoError(h, syncer.Sync(h.Context()), "resumed sync failed")

	require.Equal(h, 2, ledger.imports)
	require.Equal(h, 1, ledger.rescans)
	require.Equal(h, fn.Some(tip), loaded.LastSyncedHeight)

	requireUnspentScript(
		h, ledger.BitcoindClient, scriptOf(h, ledger.BitcoindClient,
			multisigDesc),
	)
	require.NoError(h, h.StoreDB.Put(loaded))
}
