// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
)

// Syncer reconciles a Store with the watch-only wallet of the same name on a
// bitcoind node. A Sync imports every descriptor derivable from the store
// that the node does not watch yet, rescans the chain from the last synced
// height and advances the store's receive index past every used address.
//
// A Syncer is not safe for concurrent use. Callers must serialize Sync calls
// for a given store.
type Syncer struct {
	cfg   Config
	store *Store

	// walletReady is set once the node's wallet is known to be loaded.
	walletReady bool
}

// NewSyncer creates a Syncer for the given store.
func NewSyncer(cfg Config, store *Store) (*Syncer, error) {
	if cfg.Chain == nil {
		return nil, syncError(
			ErrKindConfiguration, "new syncer", ErrMissingChain,
		)
	}

	if store == nil {
		return nil, syncError(
			ErrKindConfiguration, "new syncer", ErrMissingStore,
		)
	}

	return &Syncer{
		cfg:   cfg.withDefaults(store),
		store: store,
	}, nil
}

// Store returns the store the syncer writes to.
func (s *Syncer) Store() *Store {
	return s.store
}

// Sync brings the node's wallet and the store in line with each other. It
// blocks until the rescan completes. The context is only consulted while
// waiting out a concurrent rescan.
//
// On error the store may already carry a new height or index. Those fields
// only ever move forward, so a later Sync resumes from them.
func (s *Syncer) Sync(ctx context.Context) error {
	err := s.ensureWallet()
	if err != nil {
		return err
	}

	descriptors, err := s.buildCatalog()
	if err != nil {
		return err
	}

	if len(descriptors) == 0 {
		log.Debugf("Wallet %s is up to date, nothing to import",
			s.store.FileName)

		return nil
	}

	err = s.importDescriptors(descriptors)
	if err != nil {
		return err
	}

	err = s.rescan(ctx)
	if err != nil {
		return err
	}

	return s.advanceExternalIndex()
}
