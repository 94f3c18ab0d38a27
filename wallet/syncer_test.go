package wallet

import (
	"testing"

	"github.com/btcsuite/btcwatch/chain"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// TestNewSyncer verifies the required dependencies and the defaults.
func TestNewSyncer(t *testing.T) {
	t.Parallel()

	_, err := NewSyncer(Config{}, NewStore(testWalletName))
	require.ErrorIs(t, err, ErrMissingChain)
	require.True(t, IsErrorKind(err, ErrKindConfiguration))

	_, err = NewSyncer(Config{Chain: &mockLedger{}}, nil)
	require.ErrorIs(t, err, ErrMissingStore)

	store := NewStore(testWalletName)
	s, err := NewSyncer(Config{Chain: &mockLedger{}}, store)
	require.NoError(t, err)
	require.Same(t, store, s.Store())
	require.Equal(t, DefaultRescanBackoff, s.cfg.RescanBackoff)
	require.Equal(t, uint32(DefaultImportCount), s.cfg.ImportCount)
	require.Equal(t, testWalletName, s.cfg.Label)
	require.NotNil(t, s.cfg.Clock)
	require.IsType(t, &XPubDescriptorSource{}, s.cfg.Descriptors)
}

// TestSyncUpToDate verifies a store with nothing to import neither imports
// nor rescans.
func TestSyncUpToDate(t *testing.T) {
	t.Parallel()

	// Arrange: A loaded wallet, a watched swap coin and no bonds.
	store := NewStore(testWalletName)
	store.IncomingSwapCoins["a"] = testSwapCoin(t, 50)
	s, ledger, source, _ := newTestSyncer(t, store)

	ledger.On("ListWallets").Return([]string{testWalletName}, nil).Once()
	source.On("UnimportedDescriptors", store).Return(nil, nil).Once()

	ms, err := multisigDescriptor(store.IncomingSwapCoins["a"])
	require.NoError(t, err)
	expectWatched(ledger, expectResolve(ledger, ms), true)

	contract, err := contractDescriptor(store.IncomingSwapCoins["a"])
	require.NoError(t, err)
	expectWatched(ledger, expectResolve(ledger, contract), true)

	// Act: Sync.
	err = s.Sync(t.Context())

	// Assert: The mock would fail on any import or rescan call, and the
	// heights are untouched.
	require.NoError(t, err)
	require.True(t, store.LastSyncedHeight.IsNone())
	require.Zero(t, store.ExternalIndex)
}

// TestSyncImportsAndRescans runs a full sync of a new wallet and then a
// second sync against the now populated node.
func TestSyncImportsAndRescans(t *testing.T) {
	t.Parallel()

	// Arrange: A store with one outgoing swap and one bond, born at
	// height 100. The node has neither the wallet nor any descriptor.
	store := NewStore(testWalletName)
	store.WalletBirthday = fn.Some[uint32](100)
	store.OutgoingSwapCoins["x"] = testSwapCoin(t, 60)
	bondDescs := addTestBonds(t, store, 1)

	s, ledger, source, clk := newTestSyncer(t, store)

	ledger.On("ListWallets").Return([]string{}, nil).Once()
	ledger.On("ListWalletDir").Return([]string{}, nil).Once()
	ledger.On("CreateWatchOnlyWallet", testWalletName).Return(nil).Once()

	walletDesc := "wpkh(tpub/0/*)#w"
	source.On("UnimportedDescriptors", store).
		Return([]string{walletDesc}, nil).Once()

	ms, err := multisigDescriptor(store.OutgoingSwapCoins["x"])
	require.NoError(t, err)
	resolvedMs := expectResolve(ledger, ms)
	expectWatched(ledger, resolvedMs, false)

	contract, err := contractDescriptor(store.OutgoingSwapCoins["x"])
	require.NoError(t, err)
	resolvedContract := expectResolve(ledger, contract)
	expectWatched(ledger, resolvedContract, false)

	resolvedBond := expectResolve(ledger, bondDescs[0])
	expectWatched(ledger, resolvedBond, false)

	batch := []string{
		walletDesc, resolvedMs, resolvedContract, resolvedBond,
	}
	ledger.On("ImportDescriptors", s.importRequests(batch)).
		Return([]chain.ImportResult{
			{Success: true}, {Success: true},
			{Success: true}, {Success: true},
		}, nil).Once()

	ledger.On("GetBlockCount").Return(int64(150), nil).Once()
	ledger.On("RescanBlockchain", int64(100), int64(150)).
		Return(&chain.RescanResult{}, nil).Once()

	ledger.On("ListUnspent").Return([]chain.Unspent{
		{Descriptor: "wpkh([d34db33f/0/4]02aa)#a"},
		{Descriptor: "wpkh([d34db33f/1/9]02bb)#b"},
	}, nil).Once()

	// Act: Sync.
	err = s.Sync(t.Context())

	// Assert: The store moved to the node's tip and past the used
	// receive address.
	require.NoError(t, err)
	require.Equal(t, fn.Some[uint32](150), store.LastSyncedHeight)
	require.Equal(t, uint32(5), store.ExternalIndex)
	require.Empty(t, clk.recordedWaits())
	ledger.AssertExpectations(t)
	source.AssertExpectations(t)

	// Arrange: The node now watches everything.
	source.On("UnimportedDescriptors", store).Return(nil, nil).Once()
	expectWatched(ledger, expectResolve(ledger, ms), true)
	expectWatched(ledger, expectResolve(ledger, contract), true)
	expectWatched(ledger, expectResolve(ledger, bondDescs[0]), true)

	// Act: Sync again.
	err = s.Sync(t.Context())

	// Assert: Nothing is imported twice, the wallet lookup is cached
	// and the store is unchanged.
	require.NoError(t, err)
	ledger.AssertNumberOfCalls(t, "ImportDescriptors", 1)
	ledger.AssertNumberOfCalls(t, "ListWallets", 1)
	ledger.AssertNumberOfCalls(t, "RescanBlockchain", 1)
	require.Equal(t, fn.Some[uint32](150), store.LastSyncedHeight)
	require.Equal(t, uint32(5), store.ExternalIndex)
}

// TestSyncResumesFromLastHeight verifies a later sync with new data starts
// its rescan at the recorded height.
func TestSyncResumesFromLastHeight(t *testing.T) {
	t.Parallel()

	// Arrange: A store synced to 150 with a new incoming coin.
	store := NewStore(testWalletName)
	store.WalletBirthday = fn.Some[uint32](100)
	store.LastSyncedHeight = fn.Some[uint32](150)
	store.ExternalIndex = 5
	store.IncomingSwapCoins["n"] = testSwapCoin(t, 70)

	s, ledger, source, _ := newTestSyncer(t, store)
	s.walletReady = true

	source.On("UnimportedDescriptors", store).Return(nil, nil).Once()

	ms, err := multisigDescriptor(store.IncomingSwapCoins["n"])
	require.NoError(t, err)
	resolvedMs := expectResolve(ledger, ms)
	expectWatched(ledger, resolvedMs, false)

	contract, err := contractDescriptor(store.IncomingSwapCoins["n"])
	require.NoError(t, err)
	resolvedContract := expectResolve(ledger, contract)
	expectWatched(ledger, resolvedContract, false)

	ledger.On("ImportDescriptors", s.importRequests([]string{
		resolvedMs, resolvedContract,
	})).Return([]chain.ImportResult{
		{Success: true}, {Success: true},
	}, nil).Once()

	ledger.On("GetBlockCount").Return(int64(160), nil).Once()
	ledger.On("RescanBlockchain", int64(150), int64(160)).
		Return(&chain.RescanResult{}, nil).Once()

	// Only older receive addresses are funded.
	ledger.On("ListUnspent").Return([]chain.Unspent{
		{Descriptor: "wpkh([d34db33f/0/1]02aa)#a"},
	}, nil).Once()

	// Act: Sync.
	require.NoError(t, s.Sync(t.Context()))

	// Assert: Both watermarks only moved forward.
	require.Equal(t, fn.Some[uint32](160), store.LastSyncedHeight)
	require.Equal(t, uint32(5), store.ExternalIndex)
}

// TestSyncImportFailureStops verifies a rejected import ends the sync
// before the rescan.
func TestSyncImportFailureStops(t *testing.T) {
	t.Parallel()

	store := NewStore(testWalletName)
	s, ledger, source, _ := newTestSyncer(t, store)
	s.walletReady = true

	source.On("UnimportedDescriptors", store).
		Return([]string{"wpkh(tpub/0/*)#w"}, nil).Once()
	ledger.On("ImportDescriptors", s.importRequests([]string{
		"wpkh(tpub/0/*)#w",
	})).Return([]chain.ImportResult{{
		Error: &chain.ImportError{Code: -4, Message: "boom"},
	}}, nil).Once()

	err := s.Sync(t.Context())
	require.ErrorIs(t, err, ErrImportFailed)
	require.True(t, store.LastSyncedHeight.IsNone())
}
