package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcwatch/chain"
)

// XPubDescriptorSource derives the wallet's receive and change descriptors
// from the store's account xpub.
type XPubDescriptorSource struct {
	chain LedgerClient
}

// A compile-time check to ensure XPubDescriptorSource satisfies the
// WalletDescriptorSource interface.
var _ WalletDescriptorSource = (*XPubDescriptorSource)(nil)

// NewXPubDescriptorSource creates a descriptor source that resolves and
// checks descriptors through the given node.
func NewXPubDescriptorSource(client LedgerClient) *XPubDescriptorSource {
	return &XPubDescriptorSource{chain: client}
}

// UnimportedDescriptors returns the receive and change descriptors of the
// store's account xpub that the node does not watch yet. A store without an
// xpub yields none.
func (x *XPubDescriptorSource) UnimportedDescriptors(store *Store) ([]string,
	error) {

	if store.AccountXPub == "" {
		return nil, nil
	}

	key, err := hdkeychain.NewKeyFromString(store.AccountXPub)
	if err != nil {
		return nil, syncError(ErrKindConfiguration, "parse account xpub",
			err)
	}

	if key.IsPrivate() {
		return nil, syncError(ErrKindConfiguration, "parse account xpub",
			ErrPrivateKeyMaterial)
	}

	params := x.chain.ChainParams()
	if params != nil && !key.IsForNet(params) {
		return nil, syncError(ErrKindConfiguration, "parse account xpub",
			fmt.Errorf("%w: xpub is not for %s",
				chain.ErrNetworkMismatch, params.Name))
	}

	var descriptors []string
	for _, branch := range []KeyChain{KeyChainExternal, KeyChainInternal} {
		resolved, err := resolveDescriptor(
			x.chain, walletDescriptor(store.AccountXPub, branch),
		)
		if err != nil {
			return nil, err
		}

		imported, err := isDescriptorImported(x.chain, resolved)
		if err != nil {
			return nil, err
		}

		if !imported {
			descriptors = append(descriptors, resolved)
		}
	}

	return descriptors, nil
}
