package wallet

import "fmt"

// descriptorBatch is an ordered set of checksummed descriptors.
type descriptorBatch struct {
	descriptors []string
	seen        map[string]struct{}
}

// add appends the descriptors not in the batch yet.
func (b *descriptorBatch) add(descriptors ...string) {
	if b.seen == nil {
		b.seen = make(map[string]struct{})
	}

	for _, d := range descriptors {
		if _, ok := b.seen[d]; ok {
			log.Tracef("Skipping duplicate descriptor %s", d)
			continue
		}

		b.seen[d] = struct{}{}
		b.descriptors = append(b.descriptors, d)
	}
}

// buildCatalog returns every descriptor derivable from the store that the
// node does not watch yet, in import order: the wallet's own descriptors,
// incoming then outgoing swap multisigs, incoming then outgoing swap
// contracts, and finally the fidelity bonds.
func (s *Syncer) buildCatalog() ([]string, error) {
	var batch descriptorBatch

	walletDescriptors, err := s.cfg.Descriptors.UnimportedDescriptors(
		s.store,
	)
	if err != nil {
		return nil, err
	}
	batch.add(walletDescriptors...)

	incoming, outgoing := s.store.IncomingSwapCoins, s.store.OutgoingSwapCoins
	swapCategories := []struct {
		name  string
		coins map[SwapID]*SwapCoin
		build func(*SwapCoin) (string, error)
	}{
		{"incoming multisig", incoming, multisigDescriptor},
		{"outgoing multisig", outgoing, multisigDescriptor},
		{"incoming contract", incoming, contractDescriptor},
		{"outgoing contract", outgoing, contractDescriptor},
	}

	for _, category := range swapCategories {
		descriptors, err := s.unimportedSwapDescriptors(
			category.coins, category.build,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", category.name, err)
		}

		log.Debugf("Found %d unimported %s descriptors",
			len(descriptors), category.name)

		batch.add(descriptors...)
	}

	resolvedBonds := make(map[uint32]string, 2)
	bondsImported, err := s.bondsImported(resolvedBonds)
	if err != nil {
		return nil, fmt.Errorf("fidelity bonds: %w", err)
	}

	if !bondsImported {
		descriptors, err := s.bondDescriptors(resolvedBonds)
		if err != nil {
			return nil, fmt.Errorf("fidelity bonds: %w", err)
		}

		log.Debugf("Fidelity bonds not imported, adding %d descriptors",
			len(descriptors))

		batch.add(descriptors...)
	}

	return batch.descriptors, nil
}

// unimportedSwapDescriptors builds one descriptor per swap coin, in SwapID
// order, and keeps those the node does not watch.
func (s *Syncer) unimportedSwapDescriptors(coins map[SwapID]*SwapCoin,
	build func(*SwapCoin) (string, error)) ([]string, error) {

	var descriptors []string
	for _, id := range sortedSwapIDs(coins) {
		desc, err := build(coins[id])
		if err != nil {
			return nil, protocolError("build descriptor", fmt.Errorf(
				"%w for swap %s: %w", ErrDescriptorResolve, id, err,
			))
		}

		resolved, err := resolveDescriptor(s.cfg.Chain, desc)
		if err != nil {
			return nil, err
		}

		imported, err := isDescriptorImported(s.cfg.Chain, resolved)
		if err != nil {
			return nil, err
		}

		if !imported {
			descriptors = append(descriptors, resolved)
		}
	}

	return descriptors, nil
}

// bondDescriptors returns the checksummed descriptor of every fidelity bond
// in insertion order. Bonds found in resolved are not resolved again.
func (s *Syncer) bondDescriptors(resolved map[uint32]string) ([]string,
	error) {

	descriptors := make([]string, 0, len(s.store.FidelityBonds))
	for _, entry := range s.store.FidelityBonds {
		if desc, ok := resolved[entry.ID]; ok {
			descriptors = append(descriptors, desc)
			continue
		}

		desc, err := s.bondDescriptor(entry)
		if err != nil {
			return nil, err
		}

		descriptors = append(descriptors, desc)
	}

	return descriptors, nil
}

// bondDescriptor returns the checksummed raw descriptor of a bond's
// script-pub-key.
func (s *Syncer) bondDescriptor(entry *FidelityBondEntry) (string, error) {
	spk := entry.ScriptPubKey
	if len(spk) == 0 && entry.Bond != nil {
		var err error
		spk, err = entry.Bond.ScriptPubKey()
		if err != nil {
			return "", protocolError("build descriptor", fmt.Errorf(
				"%w for bond %d: %w", ErrDescriptorResolve,
				entry.ID, err,
			))
		}
	}

	if len(spk) == 0 {
		return "", protocolError("build descriptor", fmt.Errorf(
			"%w for bond %d: %w", ErrDescriptorResolve, entry.ID,
			errEmptyScript,
		))
	}

	return resolveDescriptor(s.cfg.Chain, rawDescriptor(spk))
}
