// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storedb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcwallet/walletdb"
	// Register the bolt backed walletdb driver.
	_ "github.com/btcsuite/btcwallet/walletdb/bdb"
	"github.com/btcsuite/btcwatch/wallet"
)

const (
	// dbDriver is the walletdb driver the stores are kept in.
	dbDriver = "bdb"

	// DefaultTimeout is how long opening the database waits for the file
	// lock.
	DefaultTimeout = 10 * time.Second
)

var (
	byteOrder = binary.BigEndian

	// storesBucket is the top-level bucket holding one nested bucket per
	// wallet store, keyed by the store's file name.
	storesBucket = []byte("stores")

	metaKey        = []byte("meta")
	incomingBucket = []byte("incoming")
	outgoingBucket = []byte("outgoing")
	bondsBucket    = []byte("bonds")
)

// DB persists wallet stores in a walletdb database.
type DB struct {
	db walletdb.DB
}

// Open opens the database at path, creating it and its parent directories
// if needed.
func Open(path string, timeout time.Duration) (*DB, error) {
	var (
		db  walletdb.DB
		err error
	)

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		db, err = walletdb.Open(dbDriver, path, true, timeout, false)

	case errors.Is(statErr, os.ErrNotExist):
		err = os.MkdirAll(filepath.Dir(path), 0700)
		if err != nil {
			return nil, err
		}

		log.Infof("Creating store database %s", path)
		db, err = walletdb.Create(dbDriver, path, true, timeout, false)

	default:
		return nil, statErr
	}

	if err != nil {
		return nil, fmt.Errorf("open store database %s: %w", path, err)
	}

	err = walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		_, err := tx.CreateTopLevelBucket(storesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init store database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Names returns the file names of all saved stores.
func (d *DB) Names() ([]string, error) {
	var names []string
	err := walletdb.View(d.db, func(tx walletdb.ReadTx) error {
		return tx.ReadBucket(storesBucket).ForEach(
			func(k, _ []byte) error {
				names = append(names, string(k))
				return nil
			},
		)
	})
	if err != nil {
		return nil, err
	}

	return names, nil
}

// Load reads the store saved under the given file name. It returns
// ErrStoreNotFound if there is none.
func (d *DB) Load(name string) (*wallet.Store, error) {
	store := wallet.NewStore(name)

	err := walletdb.View(d.db, func(tx walletdb.ReadTx) error {
		bucket := tx.ReadBucket(storesBucket).NestedReadBucket(
			[]byte(name),
		)
		if bucket == nil {
			return fmt.Errorf("%w: %s", ErrStoreNotFound, name)
		}

		return readStore(bucket, store)
	})
	if err != nil {
		return nil, err
	}

	log.Debugf("Loaded store %s: %d incoming, %d outgoing swap coins, "+
		"%d bonds", name, len(store.IncomingSwapCoins),
		len(store.OutgoingSwapCoins), len(store.FidelityBonds))

	return store, nil
}

// Put saves the store under its file name, replacing what was saved
// before.
func (d *DB) Put(store *wallet.Store) error {
	if store.FileName == "" {
		return ErrEmptyName
	}

	return walletdb.Update(d.db, func(tx walletdb.ReadWriteTx) error {
		stores := tx.ReadWriteBucket(storesBucket)
		key := []byte(store.FileName)

		if stores.NestedReadWriteBucket(key) != nil {
			err := stores.DeleteNestedBucket(key)
			if err != nil {
				return err
			}
		}

		bucket, err := stores.CreateBucket(key)
		if err != nil {
			return err
		}

		return writeStore(bucket, store)
	})
}

// writeStore writes every part of the store into its bucket.
func writeStore(bucket walletdb.ReadWriteBucket, store *wallet.Store) error {
	meta, err := encodeMeta(&storeMeta{
		accountXPub:      store.AccountXPub,
		externalIndex:    store.ExternalIndex,
		lastSyncedHeight: store.LastSyncedHeight,
		walletBirthday:   store.WalletBirthday,
	})
	if err != nil {
		return err
	}

	err = bucket.Put(metaKey, meta)
	if err != nil {
		return err
	}

	err = writeSwapCoins(bucket, incomingBucket, store.IncomingSwapCoins)
	if err != nil {
		return err
	}

	err = writeSwapCoins(bucket, outgoingBucket, store.OutgoingSwapCoins)
	if err != nil {
		return err
	}

	bonds, err := bucket.CreateBucket(bondsBucket)
	if err != nil {
		return err
	}

	for _, entry := range store.FidelityBonds {
		v, err := encodeBond(entry)
		if err != nil {
			return err
		}

		var k [4]byte
		byteOrder.PutUint32(k[:], entry.ID)

		err = bonds.Put(k[:], v)
		if err != nil {
			return err
		}
	}

	return nil
}

// writeSwapCoins writes the coins into a new nested bucket keyed by SwapID.
func writeSwapCoins(parent walletdb.ReadWriteBucket, name []byte,
	coins map[wallet.SwapID]*wallet.SwapCoin) error {

	bucket, err := parent.CreateBucket(name)
	if err != nil {
		return err
	}

	for id, coin := range coins {
		v, err := encodeSwapCoin(coin)
		if err != nil {
			return fmt.Errorf("swap %s: %w", id, err)
		}

		err = bucket.Put([]byte(id), v)
		if err != nil {
			return err
		}
	}

	return nil
}

// readStore fills the store from its bucket.
func readStore(bucket walletdb.ReadBucket, store *wallet.Store) error {
	v := bucket.Get(metaKey)
	if v == nil {
		return fmt.Errorf("%w: %s has no metadata", ErrCorruptRecord,
			store.FileName)
	}

	meta, err := decodeMeta(v)
	if err != nil {
		return err
	}

	store.AccountXPub = meta.accountXPub
	store.ExternalIndex = meta.externalIndex
	store.LastSyncedHeight = meta.lastSyncedHeight
	store.WalletBirthday = meta.walletBirthday

	err = readSwapCoins(bucket, incomingBucket, store.IncomingSwapCoins)
	if err != nil {
		return err
	}

	err = readSwapCoins(bucket, outgoingBucket, store.OutgoingSwapCoins)
	if err != nil {
		return err
	}

	bonds := bucket.NestedReadBucket(bondsBucket)
	if bonds == nil {
		return nil
	}

	// Keys are big endian IDs, so the cursor yields bonds in insertion
	// order.
	return bonds.ForEach(func(k, v []byte) error {
		if len(k) != 4 {
			return fmt.Errorf("%w: bond key of %d bytes",
				ErrCorruptRecord, len(k))
		}

		entry, err := decodeBond(byteOrder.Uint32(k), v)
		if err != nil {
			return err
		}

		store.FidelityBonds = append(store.FidelityBonds, entry)

		return nil
	})
}

// readSwapCoins reads the coins of a nested bucket into the map.
func readSwapCoins(parent walletdb.ReadBucket, name []byte,
	coins map[wallet.SwapID]*wallet.SwapCoin) error {

	bucket := parent.NestedReadBucket(name)
	if bucket == nil {
		return nil
	}

	return bucket.ForEach(func(k, v []byte) error {
		coin, err := decodeSwapCoin(v)
		if err != nil {
			return fmt.Errorf("swap %s: %w", k, err)
		}

		coins[wallet.SwapID(k)] = coin

		return nil
	})
}
