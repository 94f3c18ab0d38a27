package wallet

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcwatch/chain"
	"github.com/stretchr/testify/require"
)

const testWalletName = "swap-wallet"

// testPubKey returns a deterministic public key for the given seed byte.
func testPubKey(t *testing.T, seed byte) *btcec.PublicKey {
	t.Helper()

	var scalar [32]byte
	scalar[31] = seed
	_, pub := btcec.PrivKeyFromBytes(scalar[:])

	return pub
}

// testSwapCoin returns a swap coin with deterministic keys and contract.
func testSwapCoin(t *testing.T, seed byte) *SwapCoin {
	t.Helper()

	return &SwapCoin{
		OtherPubKey:          testPubKey(t, seed),
		MyPubKey:             testPubKey(t, seed+1),
		ContractRedeemScript: []byte{0x51, seed},
	}
}

// newTestSyncer creates a Syncer over mocks. The mocks' expectations are
// asserted on cleanup.
func newTestSyncer(t *testing.T, store *Store) (*Syncer, *mockLedger,
	*mockDescriptorSource, *instantClock) {

	t.Helper()

	ledger := &mockLedger{}
	source := &mockDescriptorSource{}
	clk := &instantClock{}

	s, err := NewSyncer(Config{
		Chain:       ledger,
		Descriptors: source,
		Clock:       clk,
	}, store)
	require.NoError(t, err)

	t.Cleanup(func() {
		ledger.AssertExpectations(t)
		source.AssertExpectations(t)
	})

	return s, ledger, source, clk
}

// expectResolve registers the checksum lookup of a descriptor and returns
// the resolved form.
func expectResolve(ledger *mockLedger, desc string) string {
	resolved := desc + "#chksum00"
	ledger.On("GetDescriptorInfo", desc).Return(resolved, nil).Once()

	return resolved
}

// expectWatched registers the watch-only lookup of a resolved descriptor.
func expectWatched(ledger *mockLedger, desc string, watched bool) {
	var r *chain.DescriptorRange
	if isRangedDescriptor(desc) {
		r = &chain.DescriptorRange{}
	}

	addr := "bcrt1q-" + desc
	ledger.On("DeriveAddresses", desc, r).Return([]string{addr}, nil).Once()
	ledger.On("GetAddressInfo", addr).Return(&chain.AddressInfo{
		Address:     addr,
		IsWatchOnly: watched,
	}, nil).Once()
}
