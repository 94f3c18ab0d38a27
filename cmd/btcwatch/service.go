package main

import (
	"context"
	"time"

	"github.com/btcsuite/btcwatch/wallet"
	"github.com/lightningnetwork/lnd/ticker"
	"golang.org/x/sync/errgroup"
)

// storeSaver persists a store after a sync.
type storeSaver interface {
	Put(store *wallet.Store) error
}

// syncRunner runs a single sync.
type syncRunner interface {
	Sync(ctx context.Context) error
	Store() *wallet.Store
}

// syncService runs the syncer once or on every tick of an interval, saving
// the store after every sync.
type syncService struct {
	syncer   syncRunner
	saver    storeSaver
	interval time.Duration

	// newTicker creates the interval ticker. It is replaced in tests.
	newTicker func(time.Duration) ticker.Ticker
}

// newSyncService creates a service. A zero interval syncs once.
func newSyncService(syncer syncRunner, saver storeSaver,
	interval time.Duration) *syncService {

	return &syncService{
		syncer:   syncer,
		saver:    saver,
		interval: interval,
		newTicker: func(d time.Duration) ticker.Ticker {
			return ticker.New(d)
		},
	}
}

// Run syncs until done. In periodic mode it only returns on a
// configuration error, a failed save or cancellation of the context.
func (s *syncService) Run(ctx context.Context) error {
	if s.interval == 0 {
		return s.syncOnce(ctx)
	}

	t := s.newTicker(s.interval)
	t.Resume()
	defer t.Stop()

	// Ticks that arrive while a sync runs collapse into one pending
	// request, so syncs never overlap or queue up.
	requests := make(chan struct{}, 1)
	requests <- struct{}{}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-t.Ticks():
				select {
				case requests <- struct{}{}:
				default:
					log.Debugf("Sync still running, " +
						"skipping tick")
				}

			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-requests:
				err := s.syncOnce(ctx)
				if err == nil || ctx.Err() != nil {
					continue
				}

				if wallet.IsErrorKind(
					err, wallet.ErrKindConfiguration,
				) {

					return err
				}

				log.Warnf("Sync failed, retrying in %v: %v",
					s.interval, err)

			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	return g.Wait()
}

// syncOnce runs one sync and saves the store, also when the sync failed
// halfway: the heights and index it may have advanced never move
// backwards.
func (s *syncService) syncOnce(ctx context.Context) error {
	store := s.syncer.Store()

	start := time.Now()
	syncErr := s.syncer.Sync(ctx)

	err := s.saver.Put(store)
	if err != nil {
		log.Errorf("Unable to save store %s: %v", store.FileName, err)

		// Retrying the sync cannot fix the database.
		return &wallet.SyncError{
			Kind:        wallet.ErrKindConfiguration,
			Description: "save store",
			Err:         err,
		}
	}

	if syncErr != nil {
		return syncErr
	}

	log.Infof("Store %s synced in %v (height=%v, receive index=%d)",
		store.FileName, time.Since(start).Round(time.Millisecond),
		store.LastSyncedHeight.UnwrapOr(0), store.ExternalIndex)

	return nil
}
