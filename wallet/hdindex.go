package wallet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcwatch/chain"
)

// errMalformedKeyOrigin is returned when a descriptor carries a key origin
// that cannot be parsed.
var errMalformedKeyOrigin = errors.New("malformed key origin")

// keyOrigin is the derivation of a key below its origin fingerprint.
type keyOrigin struct {
	fingerprint string
	path        []uint32
	hardened    []bool
}

// parseKeyOrigin extracts the first key origin, e.g. [d34db33f/84h/1h/0h/0/5],
// from a descriptor. It returns nil if the descriptor has none.
func parseKeyOrigin(descriptor string) (*keyOrigin, error) {
	open := strings.IndexByte(descriptor, '[')
	if open < 0 {
		return nil, nil
	}

	length := strings.IndexByte(descriptor[open:], ']')
	if length < 0 {
		return nil, fmt.Errorf("%w: unterminated in %s",
			errMalformedKeyOrigin, descriptor)
	}

	steps := strings.Split(descriptor[open+1:open+length], "/")
	origin := &keyOrigin{fingerprint: steps[0]}

	for _, step := range steps[1:] {
		hardened := strings.HasSuffix(step, "h") ||
			strings.HasSuffix(step, "'")
		if hardened {
			step = step[:len(step)-1]
		}

		index, err := strconv.ParseUint(step, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("%w: step %q in %s: %w",
				errMalformedKeyOrigin, step, descriptor, err)
		}

		origin.path = append(origin.path, uint32(index))
		origin.hardened = append(origin.hardened, hardened)
	}

	return origin, nil
}

// branchIndex returns the unhardened branch and index that end the origin
// path. ok is false for paths that do not end in such a pair.
func (o *keyOrigin) branchIndex() (KeyChain, uint32, bool) {
	n := len(o.path)
	if n < 2 || o.hardened[n-2] || o.hardened[n-1] {
		return 0, 0, false
	}

	return KeyChain(o.path[n-2]), o.path[n-1], true
}

// nextUnusedIndex returns one past the highest index on the branch that
// holds an unspent output, or 0 if none does.
func nextUnusedIndex(unspent []chain.Unspent, branch KeyChain) (uint32,
	error) {

	var (
		next  uint32
		found bool
	)

	for _, utxo := range unspent {
		origin, err := parseKeyOrigin(utxo.Descriptor)
		if err != nil {
			return 0, err
		}

		if origin == nil {
			continue
		}

		b, index, ok := origin.branchIndex()
		if !ok || b != branch {
			continue
		}

		if !found || index+1 > next {
			next = index + 1
			found = true
		}
	}

	return next, nil
}

// advanceExternalIndex moves the store's receive index past every receive
// address that holds an unspent output. The index never moves backwards.
func (s *Syncer) advanceExternalIndex() error {
	unspent, err := s.cfg.Chain.ListUnspent()
	if err != nil {
		return protocolError("list unspent", err)
	}

	next, err := nextUnusedIndex(unspent, KeyChainExternal)
	if err != nil {
		return protocolError("find next receive index", err)
	}

	if next <= s.store.ExternalIndex {
		log.Debugf("Receive index of wallet %s stays at %d",
			s.store.FileName, s.store.ExternalIndex)

		return nil
	}

	log.Infof("Advancing receive index of wallet %s from %d to %d",
		s.store.FileName, s.store.ExternalIndex, next)

	s.store.ExternalIndex = next

	return nil
}
