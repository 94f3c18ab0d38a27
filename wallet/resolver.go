package wallet

import "slices"

// ensureWallet makes sure the node has the store's wallet loaded. A loaded
// wallet is used as is, one found in the wallet directory is loaded, and
// otherwise a new watch-only wallet is created. The outcome is remembered
// for the lifetime of the Syncer.
func (s *Syncer) ensureWallet() error {
	if s.walletReady {
		return nil
	}

	name := s.store.FileName

	loaded, err := s.cfg.Chain.ListWallets()
	if err != nil {
		return protocolError("list loaded wallets", err)
	}

	if slices.Contains(loaded, name) {
		log.Infof("Wallet %s already loaded", name)
		s.walletReady = true

		return nil
	}

	onDisk, err := s.cfg.Chain.ListWalletDir()
	if err != nil {
		return protocolError("list wallet directory", err)
	}

	if slices.Contains(onDisk, name) {
		err = s.cfg.Chain.LoadWallet(name)
		if err != nil {
			return protocolError("load wallet "+name, err)
		}

		log.Infof("Wallet %s loaded", name)
		s.walletReady = true

		return nil
	}

	err = s.cfg.Chain.CreateWatchOnlyWallet(name)
	if err != nil {
		return protocolError("create wallet "+name, err)
	}

	log.Infof("Wallet %s created", name)
	s.walletReady = true

	return nil
}
