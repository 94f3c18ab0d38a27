// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/btcsuite/btcwatch/chain"
	"github.com/btcsuite/btcwatch/storedb"
	"github.com/btcsuite/btcwatch/wallet"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/term"
)

const appVersion = "0.1.0"

// version returns the application version.
func version() string {
	return appVersion
}

func main() {
	err := btcwatchMain()
	if err != nil {
		os.Exit(1)
	}
}

// btcwatchMain is the real main function for btcwatch. It is necessary to
// work around the fact that deferred functions do not run when os.Exit() is
// called.
func btcwatchMain() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	err = initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	setLogLevels(cfg.DebugLevel)

	log.Infof("Version %s, network %s", version(), cfg.params.Name)

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer stop()

	err = run(ctx, cfg)
	switch {
	case err == nil:
		log.Info("Shutdown complete")

	case errors.Is(err, context.Canceled):
		log.Info("Interrupted, shutdown complete")
		err = nil

	default:
		log.Errorf("Sync failed: %v", err)
	}

	return err
}

// run opens the store, connects to the node and syncs until done or
// interrupted.
func run(ctx context.Context, cfg *config) error {
	db, err := storedb.Open(cfg.StoreFile, storedb.DefaultTimeout)
	if err != nil {
		return err
	}
	defer func() {
		err := db.Close()
		if err != nil {
			log.Errorf("Unable to close store database: %v", err)
		}
	}()

	store, err := loadStore(db, cfg)
	if err != nil {
		return err
	}

	chainCfg, err := chainConfig(cfg)
	if err != nil {
		return err
	}

	client, err := chain.NewBitcoindClient(chainCfg)
	if err != nil {
		if wallet.IsErrorKind(err, wallet.ErrKindConfiguration) {
			log.Criticalf("Node configuration rejected: %v", err)
		}

		return err
	}
	defer client.Stop()

	syncer, err := wallet.NewSyncer(wallet.Config{
		Chain:             client,
		RescanBackoff:     cfg.RescanBackoff,
		MaxRescanAttempts: cfg.MaxRescanAttempts,
		ImportCount:       cfg.ImportCount,
		Label:             cfg.Label,
	}, store)
	if err != nil {
		return err
	}

	return newSyncService(syncer, db, cfg.SyncInterval).Run(ctx)
}

// loadStore loads the configured store, creating it on first use.
func loadStore(db *storedb.DB, cfg *config) (*wallet.Store, error) {
	store, err := db.Load(cfg.WalletName)
	switch {
	case err == nil:
		if cfg.AccountXPub != "" && cfg.AccountXPub != store.AccountXPub {
			log.Warnf("Ignoring --accountxpub, store %s already has "+
				"an account xpub", cfg.WalletName)
		}

		return store, nil

	case errors.Is(err, storedb.ErrStoreNotFound):
		known, err := db.Names()
		if err != nil {
			return nil, err
		}

		log.Infof("Creating new store %s (known stores: %v)",
			cfg.WalletName, known)

		store = wallet.NewStore(cfg.WalletName)
		store.AccountXPub = cfg.AccountXPub
		if cfg.Birthday > 0 {
			store.WalletBirthday = fn.Some(cfg.Birthday)
		}

		return store, db.Put(store)

	default:
		return nil, err
	}
}

// chainConfig builds the node connection config, reading the certificate
// and prompting for the password as needed.
func chainConfig(cfg *config) (*chain.Config, error) {
	chainCfg := &chain.Config{
		Host:       cfg.RPCConnect,
		User:       cfg.RPCUser,
		Pass:       cfg.RPCPass,
		Params:     cfg.params,
		WalletName: cfg.WalletName,
		DisableTLS: !cfg.TLS,
	}

	if cfg.TLS {
		certs, err := os.ReadFile(cfg.RPCCert)
		if err != nil {
			return nil, fmt.Errorf("read rpc certificate: %w", err)
		}
		chainCfg.Certificates = certs
	}

	if chainCfg.Pass == "" {
		pass, err := promptPassword(cfg.RPCUser)
		if err != nil {
			return nil, err
		}
		chainCfg.Pass = pass
	}

	return chainCfg, nil
}

// promptPassword reads the rpc password from the terminal without echoing
// it. It returns an empty password when stdin is not a terminal.
func promptPassword(user string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}

	fmt.Printf("RPC password for %s: ", user)
	pass, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read rpc password: %w", err)
	}

	return string(pass), nil
}
