package wallet

import (
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

const (
	// DefaultRescanBackoff is the wait between two rescan attempts when
	// the node reports a rescan already in progress.
	DefaultRescanBackoff = 3 * time.Second

	// DefaultImportCount is the number of addresses imported for each
	// ranged descriptor.
	DefaultImportCount = 5000
)

// Config holds the dependencies and tunables of a Syncer.
type Config struct {
	// Chain is the node the store is synced against.
	Chain LedgerClient

	// Descriptors yields the wallet's own descriptors. When nil, the
	// descriptors are derived from the store's account xpub.
	Descriptors WalletDescriptorSource

	// Clock drives the rescan backoff. Defaults to the system clock.
	Clock clock.Clock

	// RescanBackoff is the wait between rescan attempts.
	RescanBackoff time.Duration

	// MaxRescanAttempts caps the number of rescan attempts. Zero retries
	// until the rescan succeeds or a non-contention error occurs.
	MaxRescanAttempts uint32

	// ImportCount is the number of addresses imported per ranged
	// descriptor.
	ImportCount uint32

	// Label is attached to every non-ranged import. Defaults to the
	// store's file name.
	Label string
}

// withDefaults returns a copy of the config with unset fields defaulted.
func (c Config) withDefaults(store *Store) Config {
	if c.Descriptors == nil {
		c.Descriptors = NewXPubDescriptorSource(c.Chain)
	}

	if c.Clock == nil {
		c.Clock = clock.NewDefaultClock()
	}

	if c.RescanBackoff == 0 {
		c.RescanBackoff = DefaultRescanBackoff
	}

	if c.ImportCount == 0 {
		c.ImportCount = DefaultImportCount
	}

	if c.Label == "" {
		c.Label = store.FileName
	}

	return c
}
