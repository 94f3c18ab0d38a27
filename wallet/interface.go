package wallet

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcwatch/chain"
)

// A compile-time check to ensure the bitcoind client can back a Syncer.
var _ LedgerClient = (*chain.BitcoindClient)(nil)

// LedgerClient is the set of wallet RPCs the sync engine needs from the node.
// Every call is bound to the wallet named after the store.
type LedgerClient interface {
	// ChainParams returns the params of the network the node runs on.
	ChainParams() *chaincfg.Params

	// ListWallets returns the names of the wallets the node has loaded.
	ListWallets() ([]string, error)

	// ListWalletDir returns the names of the wallets on the node's disk.
	ListWalletDir() ([]string, error)

	// LoadWallet loads a wallet from the node's wallet directory.
	LoadWallet(name string) error

	// CreateWatchOnlyWallet creates a wallet with private keys disabled.
	CreateWatchOnlyWallet(name string) error

	// GetDescriptorInfo returns the checksummed form of a descriptor.
	GetDescriptorInfo(descriptor string) (string, error)

	// DeriveAddresses derives the addresses of a descriptor.
	DeriveAddresses(descriptor string,
		r *chain.DescriptorRange) ([]string, error)

	// GetAddressInfo returns what the wallet knows about an address.
	GetAddressInfo(address string) (*chain.AddressInfo, error)

	// ImportDescriptors imports a batch of descriptors without a rescan.
	ImportDescriptors(reqs []chain.ImportRequest) ([]chain.ImportResult,
		error)

	// GetBlockCount returns the height of the node's best chain.
	GetBlockCount() (int64, error)

	// RescanBlockchain rescans the blocks in [start, end].
	RescanBlockchain(start, end int64) (*chain.RescanResult, error)

	// ListUnspent returns the wallet's unspent outputs, confirmed or not.
	ListUnspent() ([]chain.Unspent, error)
}

// WalletDescriptorSource yields the checksummed descriptors of the wallet's
// own keys that the node does not watch yet.
type WalletDescriptorSource interface {
	// UnimportedDescriptors returns the descriptors derived from the store
	// that still need to be imported.
	UnimportedDescriptors(store *Store) ([]string, error)
}
