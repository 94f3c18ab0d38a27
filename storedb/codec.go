// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storedb

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwatch/wallet"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/tlv"
)

// TLV types of the store metadata record.
const (
	metaAccountXPubType      tlv.Type = 0
	metaExternalIndexType    tlv.Type = 2
	metaLastSyncedHeightType tlv.Type = 4
	metaWalletBirthdayType   tlv.Type = 6
)

// TLV types of a swap coin record.
const (
	coinOtherPubKeyType  tlv.Type = 0
	coinMyPubKeyType     tlv.Type = 2
	coinRedeemScriptType tlv.Type = 4
	coinFundingHashType  tlv.Type = 6
	coinFundingIndexType tlv.Type = 8
	coinAmountType       tlv.Type = 10
)

// TLV types of a fidelity bond record.
const (
	bondOutPointHashType  tlv.Type = 0
	bondOutPointIndexType tlv.Type = 2
	bondAmountType        tlv.Type = 4
	bondLockTimeType      tlv.Type = 6
	bondPubKeyType        tlv.Type = 8
	bondScriptPubKeyType  tlv.Type = 10
	bondSpentType         tlv.Type = 12
)

// storeMeta is the part of a wallet.Store kept in its metadata record.
type storeMeta struct {
	accountXPub      string
	externalIndex    uint32
	lastSyncedHeight fn.Option[uint32]
	walletBirthday   fn.Option[uint32]
}

// encodeStream encodes the records as a single TLV stream.
func encodeStream(records ...tlv.Record) ([]byte, error) {
	stream, err := tlv.NewStream(records...)
	if err != nil {
		return nil, err
	}

	var b bytes.Buffer
	err = stream.Encode(&b)
	if err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// encodeMeta serializes the store metadata. Unset heights are left out of
// the stream.
func encodeMeta(meta *storeMeta) ([]byte, error) {
	xpub := []byte(meta.accountXPub)
	index := meta.externalIndex

	records := []tlv.Record{
		tlv.MakePrimitiveRecord(metaAccountXPubType, &xpub),
		tlv.MakePrimitiveRecord(metaExternalIndexType, &index),
	}

	meta.lastSyncedHeight.WhenSome(func(h uint32) {
		records = append(records, tlv.MakePrimitiveRecord(
			metaLastSyncedHeightType, &h,
		))
	})

	meta.walletBirthday.WhenSome(func(h uint32) {
		records = append(records, tlv.MakePrimitiveRecord(
			metaWalletBirthdayType, &h,
		))
	})

	return encodeStream(records...)
}

// decodeMeta deserializes a metadata record written by encodeMeta.
func decodeMeta(v []byte) (*storeMeta, error) {
	var (
		xpub         []byte
		index        uint32
		synced, bday uint32
	)

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(metaAccountXPubType, &xpub),
		tlv.MakePrimitiveRecord(metaExternalIndexType, &index),
		tlv.MakePrimitiveRecord(metaLastSyncedHeightType, &synced),
		tlv.MakePrimitiveRecord(metaWalletBirthdayType, &bday),
	)
	if err != nil {
		return nil, err
	}

	parsed, err := stream.DecodeWithParsedTypes(bytes.NewReader(v))
	if err != nil {
		return nil, fmt.Errorf("decode store meta: %w", err)
	}

	meta := &storeMeta{
		accountXPub:      string(xpub),
		externalIndex:    index,
		lastSyncedHeight: fn.None[uint32](),
		walletBirthday:   fn.None[uint32](),
	}

	if _, ok := parsed[metaLastSyncedHeightType]; ok {
		meta.lastSyncedHeight = fn.Some(synced)
	}

	if _, ok := parsed[metaWalletBirthdayType]; ok {
		meta.walletBirthday = fn.Some(bday)
	}

	return meta, nil
}

// encodeSwapCoin serializes a swap coin.
func encodeSwapCoin(coin *wallet.SwapCoin) ([]byte, error) {
	if coin.OtherPubKey == nil || coin.MyPubKey == nil {
		return nil, fmt.Errorf("%w: swap coin without keys",
			ErrCorruptRecord)
	}

	var (
		other        = coin.OtherPubKey
		mine         = coin.MyPubKey
		redeemScript = coin.ContractRedeemScript
		hash         = [32]byte(coin.Funding.Hash)
		index        = coin.Funding.Index
		amount       = uint64(coin.Amount)
	)

	return encodeStream(
		tlv.MakePrimitiveRecord(coinOtherPubKeyType, &other),
		tlv.MakePrimitiveRecord(coinMyPubKeyType, &mine),
		tlv.MakePrimitiveRecord(coinRedeemScriptType, &redeemScript),
		tlv.MakePrimitiveRecord(coinFundingHashType, &hash),
		tlv.MakePrimitiveRecord(coinFundingIndexType, &index),
		tlv.MakePrimitiveRecord(coinAmountType, &amount),
	)
}

// decodeSwapCoin deserializes a swap coin written by encodeSwapCoin.
func decodeSwapCoin(v []byte) (*wallet.SwapCoin, error) {
	var (
		other, mine  *btcec.PublicKey
		redeemScript []byte
		hash         [32]byte
		index        uint32
		amount       uint64
	)

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(coinOtherPubKeyType, &other),
		tlv.MakePrimitiveRecord(coinMyPubKeyType, &mine),
		tlv.MakePrimitiveRecord(coinRedeemScriptType, &redeemScript),
		tlv.MakePrimitiveRecord(coinFundingHashType, &hash),
		tlv.MakePrimitiveRecord(coinFundingIndexType, &index),
		tlv.MakePrimitiveRecord(coinAmountType, &amount),
	)
	if err != nil {
		return nil, err
	}

	err = stream.Decode(bytes.NewReader(v))
	if err != nil {
		return nil, fmt.Errorf("decode swap coin: %w", err)
	}

	if other == nil || mine == nil {
		return nil, fmt.Errorf("%w: swap coin without keys",
			ErrCorruptRecord)
	}

	return &wallet.SwapCoin{
		OtherPubKey:          other,
		MyPubKey:             mine,
		ContractRedeemScript: redeemScript,
		Funding: wire.OutPoint{
			Hash:  chainhash.Hash(hash),
			Index: index,
		},
		Amount: btcutil.Amount(amount),
	}, nil
}

// encodeBond serializes a fidelity bond entry. The entry's ID is the record
// key and is not part of the value.
func encodeBond(entry *wallet.FidelityBondEntry) ([]byte, error) {
	bond := entry.Bond
	if bond == nil || bond.PubKey == nil {
		return nil, fmt.Errorf("%w: bond %d without key",
			ErrCorruptRecord, entry.ID)
	}

	var (
		hash     = [32]byte(bond.OutPoint.Hash)
		index    = bond.OutPoint.Index
		amount   = uint64(bond.Amount)
		lockTime = bond.LockTime
		pubKey   = bond.PubKey
		spk      = entry.ScriptPubKey
		spent    uint8
	)
	if entry.Spent {
		spent = 1
	}

	return encodeStream(
		tlv.MakePrimitiveRecord(bondOutPointHashType, &hash),
		tlv.MakePrimitiveRecord(bondOutPointIndexType, &index),
		tlv.MakePrimitiveRecord(bondAmountType, &amount),
		tlv.MakePrimitiveRecord(bondLockTimeType, &lockTime),
		tlv.MakePrimitiveRecord(bondPubKeyType, &pubKey),
		tlv.MakePrimitiveRecord(bondScriptPubKeyType, &spk),
		tlv.MakePrimitiveRecord(bondSpentType, &spent),
	)
}

// decodeBond deserializes a fidelity bond entry written by encodeBond.
func decodeBond(id uint32, v []byte) (*wallet.FidelityBondEntry, error) {
	var (
		hash     [32]byte
		index    uint32
		amount   uint64
		lockTime uint32
		pubKey   *btcec.PublicKey
		spk      []byte
		spent    uint8
	)

	stream, err := tlv.NewStream(
		tlv.MakePrimitiveRecord(bondOutPointHashType, &hash),
		tlv.MakePrimitiveRecord(bondOutPointIndexType, &index),
		tlv.MakePrimitiveRecord(bondAmountType, &amount),
		tlv.MakePrimitiveRecord(bondLockTimeType, &lockTime),
		tlv.MakePrimitiveRecord(bondPubKeyType, &pubKey),
		tlv.MakePrimitiveRecord(bondScriptPubKeyType, &spk),
		tlv.MakePrimitiveRecord(bondSpentType, &spent),
	)
	if err != nil {
		return nil, err
	}

	err = stream.Decode(bytes.NewReader(v))
	if err != nil {
		return nil, fmt.Errorf("decode bond %d: %w", id, err)
	}

	if pubKey == nil {
		return nil, fmt.Errorf("%w: bond %d without key",
			ErrCorruptRecord, id)
	}

	return &wallet.FidelityBondEntry{
		ID: id,
		Bond: &wallet.FidelityBond{
			OutPoint: wire.OutPoint{
				Hash:  chainhash.Hash(hash),
				Index: index,
			},
			Amount:   btcutil.Amount(amount),
			LockTime: lockTime,
			PubKey:   pubKey,
		},
		ScriptPubKey: spk,
		Spent:        spent != 0,
	}, nil
}
