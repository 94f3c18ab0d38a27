// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"slices"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	// errEmptyScript is returned when a script-pub-key is requested for an
	// empty redeem script.
	errEmptyScript = errors.New("empty redeem script")

	// errMissingPubKey is returned when a script needs a public key that
	// was never set.
	errMissingPubKey = errors.New("missing public key")
)

// SwapID identifies a swap coin inside a Store.
type SwapID string

// SwapCoin is one side of a two-party swap contract as recorded by the
// wallet. The engine only reads swap coins; they are created by the swap
// protocol.
type SwapCoin struct {
	// OtherPubKey is the counterparty's key in the 2-of-2 multisig.
	OtherPubKey *btcec.PublicKey

	// MyPubKey is our own key in the 2-of-2 multisig.
	MyPubKey *btcec.PublicKey

	// ContractRedeemScript is the witness script of the contract output
	// that spends the multisig.
	ContractRedeemScript []byte

	// Funding is the multisig output funding the swap.
	Funding wire.OutPoint

	// Amount is the value of the funding output.
	Amount btcutil.Amount
}

// FidelityBond is a timelocked output committing coins for a provable cost.
type FidelityBond struct {
	// OutPoint is the bond output.
	OutPoint wire.OutPoint

	// Amount is the value locked in the bond.
	Amount btcutil.Amount

	// LockTime is the absolute locktime after which the bond can be
	// spent.
	LockTime uint32

	// PubKey is the key that can spend the bond after LockTime.
	PubKey *btcec.PublicKey
}

// RedeemScript returns the bond's witness script:
//
//	<pubkey> OP_CHECKSIGVERIFY <locktime> OP_CHECKLOCKTIMEVERIFY
func (b *FidelityBond) RedeemScript() ([]byte, error) {
	if b.PubKey == nil {
		return nil, errMissingPubKey
	}

	return txscript.NewScriptBuilder().
		AddData(b.PubKey.SerializeCompressed()).
		AddOp(txscript.OP_CHECKSIGVERIFY).
		AddInt64(int64(b.LockTime)).
		AddOp(txscript.OP_CHECKLOCKTIMEVERIFY).
		Script()
}

// ScriptPubKey returns the P2WSH script-pub-key of the bond output.
func (b *FidelityBond) ScriptPubKey() ([]byte, error) {
	redeemScript, err := b.RedeemScript()
	if err != nil {
		return nil, err
	}

	return witnessScriptHash(redeemScript)
}

// FidelityBondEntry is a bond as stored by the wallet, together with the
// script-pub-key it is watched under.
type FidelityBondEntry struct {
	// ID is the bond's index in the store.
	ID uint32

	// Bond is the bond itself.
	Bond *FidelityBond

	// ScriptPubKey is the script-pub-key of the bond output.
	ScriptPubKey []byte

	// Spent is set once the bond has been redeemed.
	Spent bool
}

// Store is the wallet state the engine reconciles against the node. The
// caller owns it and must not use it from another goroutine while a sync is
// running.
type Store struct {
	// FileName identifies the wallet. It is also the name of the
	// watch-only wallet inside the node.
	FileName string

	// AccountXPub is the account-level extended public key the wallet's
	// own receive and change descriptors are derived from. It may be
	// empty for a store that only tracks swaps and bonds.
	AccountXPub string

	// ExternalIndex is the next unused index on the external (receive)
	// branch.
	ExternalIndex uint32

	// IncomingSwapCoins are the swap coins we receive.
	IncomingSwapCoins map[SwapID]*SwapCoin

	// OutgoingSwapCoins are the swap coins we send.
	OutgoingSwapCoins map[SwapID]*SwapCoin

	// FidelityBonds holds the bonds in the order they were added.
	FidelityBonds []*FidelityBondEntry

	// LastSyncedHeight is the highest block height already rescanned.
	LastSyncedHeight fn.Option[uint32]

	// WalletBirthday is the earliest height that can hold wallet outputs.
	// Rescans never start below it.
	WalletBirthday fn.Option[uint32]
}

// NewStore returns an empty store for the named wallet.
func NewStore(fileName string) *Store {
	return &Store{
		FileName:          fileName,
		IncomingSwapCoins: make(map[SwapID]*SwapCoin),
		OutgoingSwapCoins: make(map[SwapID]*SwapCoin),
		LastSyncedHeight:  fn.None[uint32](),
		WalletBirthday:    fn.None[uint32](),
	}
}

// AddFidelityBond appends a bond to the store and returns its entry.
func (s *Store) AddFidelityBond(bond *FidelityBond) (*FidelityBondEntry,
	error) {

	spk, err := bond.ScriptPubKey()
	if err != nil {
		return nil, fmt.Errorf("bond script: %w", err)
	}

	entry := &FidelityBondEntry{
		//nolint:gosec // bond counts stay far below 2^32.
		ID:           uint32(len(s.FidelityBonds)),
		Bond:         bond,
		ScriptPubKey: spk,
	}
	s.FidelityBonds = append(s.FidelityBonds, entry)

	return entry, nil
}

// sortedSwapIDs returns the keys of a swap coin map in ascending order so
// descriptors are always derived in the same order.
func sortedSwapIDs(coins map[SwapID]*SwapCoin) []SwapID {
	ids := make([]SwapID, 0, len(coins))
	for id := range coins {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

// witnessScriptHash returns the P2WSH script-pub-key committing to the given
// witness script.
func witnessScriptHash(witnessScript []byte) ([]byte, error) {
	if len(witnessScript) == 0 {
		return nil, errEmptyScript
	}

	scriptHash := sha256.Sum256(witnessScript)

	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(scriptHash[:]).
		Script()
}
