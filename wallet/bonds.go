package wallet

// bondsImported reports whether the node watches the store's fidelity bonds.
// Only the first and the last bond are checked: bonds are always imported as
// one batch in insertion order, so the watched bonds form a prefix of the
// list and the endpoints decide whether the whole list is watched. A store
// without bonds counts as imported.
//
// Every descriptor resolved on the way is stored in resolved, keyed by bond
// ID, so the import batch does not ask the node for it again.
func (s *Syncer) bondsImported(resolved map[uint32]string) (bool, error) {
	bonds := s.store.FidelityBonds
	if len(bonds) == 0 {
		return true, nil
	}

	endpoints := []*FidelityBondEntry{bonds[0]}
	if len(bonds) > 1 {
		endpoints = append(endpoints, bonds[len(bonds)-1])
	}

	for _, entry := range endpoints {
		desc, err := s.bondDescriptor(entry)
		if err != nil {
			return false, err
		}
		resolved[entry.ID] = desc

		imported, err := isDescriptorImported(s.cfg.Chain, desc)
		if err != nil {
			return false, err
		}

		if !imported {
			log.Debugf("Fidelity bond %d is not watched", entry.ID)
			return false, nil
		}
	}

	return true, nil
}
