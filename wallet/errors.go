// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcwatch/chain"
)

var (
	// ErrDescriptorResolve is returned when the node cannot canonicalize a
	// descriptor derived from a tracked entity. A malformed descriptor here
	// is a fault in the entity, never a transient condition.
	ErrDescriptorResolve = errors.New("unable to resolve descriptor")

	// ErrEmptyDerivation is returned when a descriptor derives no
	// address.
	ErrEmptyDerivation = errors.New("descriptor derived no address")

	// ErrImportFailed is returned when the node rejects an entry of an
	// import batch.
	ErrImportFailed = errors.New("descriptor import failed")

	// ErrRescanRetriesExhausted is returned when a rescan attempt cap is
	// configured and every attempt met a concurrent rescan.
	ErrRescanRetriesExhausted = errors.New("rescan retries exhausted")

	// ErrHeightOutOfRange is returned when the node reports a block height
	// that does not fit a wallet height.
	ErrHeightOutOfRange = errors.New("block height out of range")

	// ErrPrivateKeyMaterial is returned when the store carries an extended
	// private key. The engine only ever handles public material.
	ErrPrivateKeyMaterial = errors.New("private key material in " +
		"watch-only store")

	// ErrMissingChain is returned when a Syncer is created without a
	// ledger client.
	ErrMissingChain = errors.New("missing ledger client")

	// ErrMissingStore is returned when a Syncer is created without a
	// wallet store.
	ErrMissingStore = errors.New("missing wallet store")
)

// ErrorKind classifies a sync failure by how the caller should react to it.
type ErrorKind uint8

const (
	// ErrKindProtocol covers failed or malformed exchanges with the node.
	// They are returned immediately and nothing is rolled back.
	ErrKindProtocol ErrorKind = iota

	// ErrKindConfiguration covers a setup that can never work, such as
	// a node on the wrong network. It must not be retried.
	ErrKindConfiguration

	// ErrKindRetryable covers transient node conditions, currently only a
	// concurrent rescan of the same wallet.
	ErrKindRetryable
)

// String returns the string representation of an ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case ErrKindProtocol:
		return "protocol"

	case ErrKindConfiguration:
		return "configuration"

	case ErrKindRetryable:
		return "retryable"

	default:
		return fmt.Sprintf("unknown error kind (%d)", uint8(k))
	}
}

// SyncError provides a single type for errors that can happen during a sync.
// It carries the kind of failure, a human readable description, and the
// underlying error if there is one.
type SyncError struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Description is a human readable description of what failed.
	Description string

	// Err is the underlying error.
	Err error
}

// Error satisfies the error interface and prints human-readable errors.
func (e *SyncError) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}

	return e.Description
}

// Unwrap returns the underlying error.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// syncError creates a SyncError given a set of arguments.
func syncError(kind ErrorKind, desc string, err error) *SyncError {
	return &SyncError{Kind: kind, Description: desc, Err: err}
}

// protocolError wraps a failed node exchange.
func protocolError(desc string, err error) *SyncError {
	return syncError(ErrKindProtocol, desc, err)
}

// IsErrorKind returns whether err is classified as the given kind. Errors
// returned by the connection factory are classified as well, so callers can
// treat a failed connect and a failed sync alike.
func IsErrorKind(err error, kind ErrorKind) bool {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Kind == kind
	}

	switch kind {
	case ErrKindConfiguration:
		return errors.Is(err, chain.ErrNetworkMismatch) ||
			errors.Is(err, chain.ErrUnknownChain) ||
			errors.Is(err, chain.ErrInvalidConfig)

	case ErrKindRetryable:
		return chain.IsRescanContention(err)

	default:
		return false
	}
}
