// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"fmt"
	"math"

	"github.com/btcsuite/btcwatch/chain"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// rescanState is the state of a rescan driven by the Syncer.
type rescanState uint8

const (
	// rescanPending is the state before the first attempt.
	rescanPending rescanState = iota

	// rescanRunning is the state while an attempt is in flight.
	rescanRunning

	// rescanSucceeded is the terminal state after a completed rescan.
	rescanSucceeded

	// rescanRetryable is the state after the node refused an attempt
	// because the wallet was already rescanning. The next attempt starts
	// after the backoff.
	rescanRetryable
)

// String returns the string representation of a rescanState.
func (s rescanState) String() string {
	switch s {
	case rescanPending:
		return "pending"

	case rescanRunning:
		return "running"

	case rescanSucceeded:
		return "succeeded"

	case rescanRetryable:
		return "retryable"

	default:
		return fmt.Sprintf("unknown rescan state (%d)", uint8(s))
	}
}

// rescanStart returns the height a rescan of the store starts at: the last
// synced height, but never below the wallet birthday.
func rescanStart(store *Store) uint32 {
	return max(
		store.LastSyncedHeight.UnwrapOr(0),
		store.WalletBirthday.UnwrapOr(0),
	)
}

// heightFromNode converts a block count reported by the node to a wallet
// height.
func heightFromNode(count int64) (uint32, error) {
	if count < 0 || count > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d", ErrHeightOutOfRange, count)
	}

	return uint32(count), nil
}

// rescan rescans the chain from rescanStart up to the node's tip and records
// the tip as the new last synced height. Attempts refused because of a
// concurrent rescan are retried after the configured backoff, forever unless
// MaxRescanAttempts is set. Any other failure ends the rescan.
func (s *Syncer) rescan(ctx context.Context) error {
	var (
		state    = rescanPending
		attempts uint32
		lastErr  error
	)

	for {
		log.Tracef("Rescan of wallet %s is %v (attempt %d)",
			s.store.FileName, state, attempts)

		switch state {
		case rescanPending:
			log.Infof("Starting rescan of wallet %s, this may take a "+
				"while", s.store.FileName)

			state = rescanRunning

		case rescanRunning:
			attempts++

			lastErr = s.rescanAttempt()
			switch {
			case lastErr == nil:
				state = rescanSucceeded

			case chain.IsRescanContention(lastErr):
				log.Warnf("Rescan attempt %d refused, retrying "+
					"in %v: %v", attempts,
					s.cfg.RescanBackoff, lastErr)

				state = rescanRetryable

			default:
				return lastErr
			}

		case rescanRetryable:
			limit := s.cfg.MaxRescanAttempts
			if limit > 0 && attempts >= limit {
				return syncError(ErrKindRetryable, "rescan",
					fmt.Errorf("%w after %d attempts: %w",
						ErrRescanRetriesExhausted, attempts,
						lastErr))
			}

			select {
			case <-s.cfg.Clock.TickAfter(s.cfg.RescanBackoff):
				state = rescanRunning

			case <-ctx.Done():
				return ctx.Err()
			}

		case rescanSucceeded:
			return nil
		}
	}
}

// rescanAttempt runs a single rescan up to the current tip. Contention
// errors are returned unwrapped so the caller can classify them.
func (s *Syncer) rescanAttempt() error {
	start := rescanStart(s.store)

	count, err := s.cfg.Chain.GetBlockCount()
	if err != nil {
		if chain.IsRescanContention(err) {
			return err
		}

		return protocolError("get block count", err)
	}

	tip, err := heightFromNode(count)
	if err != nil {
		return protocolError("get block count", err)
	}

	if start > tip {
		log.Infof("Rescan start %d is above tip %d, nothing to scan",
			start, tip)

		return nil
	}

	log.Infof("Rescanning wallet %s from height %d to %d",
		s.store.FileName, start, tip)

	_, err = s.cfg.Chain.RescanBlockchain(int64(start), int64(tip))
	if err != nil {
		if chain.IsRescanContention(err) {
			return err
		}

		return protocolError("rescan blockchain", err)
	}

	s.setLastSyncedHeight(tip)

	return nil
}

// setLastSyncedHeight records a completed rescan. The height never moves
// backwards.
func (s *Syncer) setLastSyncedHeight(height uint32) {
	current := s.store.LastSyncedHeight
	if current.IsSome() && current.UnwrapOr(0) >= height {
		return
	}

	s.store.LastSyncedHeight = fn.Some(height)
}
