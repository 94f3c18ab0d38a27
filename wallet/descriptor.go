package wallet

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcwatch/chain"
)

// KeyChain is the last-but-one step of a BIP-32 path below the account key.
type KeyChain uint32

const (
	// KeyChainExternal is the receive branch.
	KeyChainExternal KeyChain = 0

	// KeyChainInternal is the change branch.
	KeyChainInternal KeyChain = 1
)

// multisigDescriptor returns the 2-of-2 descriptor of a swap coin's funding
// output. The counterparty's key comes first.
func multisigDescriptor(coin *SwapCoin) (string, error) {
	if coin.OtherPubKey == nil || coin.MyPubKey == nil {
		return "", errMissingPubKey
	}

	return fmt.Sprintf("wsh(sortedmulti(2,%s,%s))",
		pubKeyHex(coin.OtherPubKey), pubKeyHex(coin.MyPubKey)), nil
}

// contractDescriptor returns the raw descriptor of the P2WSH output paying
// to a swap coin's contract redeem script.
func contractDescriptor(coin *SwapCoin) (string, error) {
	spk, err := witnessScriptHash(coin.ContractRedeemScript)
	if err != nil {
		return "", err
	}

	return rawDescriptor(spk), nil
}

// rawDescriptor returns the raw() descriptor of a script-pub-key.
func rawDescriptor(scriptPubKey []byte) string {
	return "raw(" + hex.EncodeToString(scriptPubKey) + ")"
}

// walletDescriptor returns the ranged P2WPKH descriptor of one branch of an
// account extended public key.
func walletDescriptor(accountXPub string, branch KeyChain) string {
	return fmt.Sprintf("wpkh(%s/%d/*)", accountXPub, branch)
}

// pubKeyHex returns the lowercase hex of a compressed public key.
func pubKeyHex(key *btcec.PublicKey) string {
	return hex.EncodeToString(key.SerializeCompressed())
}

// isRangedDescriptor reports whether the descriptor has a wildcard step and
// thus needs a range when imported or derived.
func isRangedDescriptor(descriptor string) bool {
	return strings.Contains(descriptor, "/*")
}

// resolveDescriptor asks the node for the checksummed form of a descriptor.
func resolveDescriptor(client LedgerClient, descriptor string) (string,
	error) {

	resolved, err := client.GetDescriptorInfo(descriptor)
	if err != nil {
		return "", protocolError("resolve descriptor", fmt.Errorf(
			"%w %s: %w", ErrDescriptorResolve, descriptor, err,
		))
	}

	return resolved, nil
}

// isDescriptorImported reports whether the first address of a descriptor is
// already watched by the node's wallet. Ranged descriptors are checked at
// index 0.
func isDescriptorImported(client LedgerClient, descriptor string) (bool,
	error) {

	var r *chain.DescriptorRange
	if isRangedDescriptor(descriptor) {
		r = &chain.DescriptorRange{}
	}

	addrs, err := client.DeriveAddresses(descriptor, r)
	if err != nil {
		return false, protocolError("derive addresses", err)
	}

	if len(addrs) == 0 {
		return false, protocolError("derive addresses", fmt.Errorf(
			"%w: %s", ErrEmptyDerivation, descriptor,
		))
	}

	info, err := client.GetAddressInfo(addrs[0])
	if err != nil {
		return false, protocolError("get address info", err)
	}

	// Descriptor wallets never flag watch-only scripts, they report them
	// as mine. The wallet holds no private keys, so either flag means the
	// script is tracked.
	imported := info.IsWatchOnly || info.IsMine

	log.Tracef("Descriptor %s first address %s imported=%v",
		descriptor, addrs[0], imported)

	return imported, nil
}
