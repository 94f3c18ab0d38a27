package wallet

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcwatch/chain"
	"github.com/davecgh/go-spew/spew"
)

// importRequests turns checksummed descriptors into an import batch. Ranged
// descriptors cover ImportCount addresses and are left unlabeled, since the
// node rejects labels on ranged imports.
func (s *Syncer) importRequests(descriptors []string) []chain.ImportRequest {
	reqs := make([]chain.ImportRequest, 0, len(descriptors))
	for _, desc := range descriptors {
		req := chain.ImportRequest{
			Descriptor: desc,
			Timestamp:  chain.TimestampNow,
		}

		if isRangedDescriptor(desc) {
			end := s.cfg.ImportCount - 1
			req.Range = &end
		} else {
			req.Label = s.cfg.Label
		}

		reqs = append(reqs, req)
	}

	return reqs
}

// importDescriptors imports the descriptors in a single batch. History is
// picked up by the rescan that follows, not by the import itself.
func (s *Syncer) importDescriptors(descriptors []string) error {
	reqs := s.importRequests(descriptors)

	log.Debugf("Importing %d descriptors into wallet %s", len(reqs),
		s.store.FileName)
	log.Tracef("Import batch: %v", newLogClosure(func() string {
		return spew.Sdump(reqs)
	}))

	results, err := s.cfg.Chain.ImportDescriptors(reqs)
	if err != nil {
		return protocolError("import descriptors", err)
	}

	if len(results) != len(reqs) {
		return protocolError("import descriptors", fmt.Errorf(
			"%w: %d results for %d requests", ErrImportFailed,
			len(results), len(reqs),
		))
	}

	var failures []string
	for i, result := range results {
		for _, warning := range result.Warnings {
			log.Warnf("Import of %s: %s", reqs[i].Descriptor, warning)
		}

		if result.Success {
			continue
		}

		msg := "unknown error"
		if result.Error != nil {
			msg = fmt.Sprintf("%s (code %d)", result.Error.Message,
				result.Error.Code)
		}
		failures = append(failures, reqs[i].Descriptor+": "+msg)
	}

	if len(failures) > 0 {
		return protocolError("import descriptors", fmt.Errorf(
			"%w: %s", ErrImportFailed, strings.Join(failures, "; "),
		))
	}

	return nil
}
