package chain

import "fmt"

// createDescriptorWallet creates a watch-only descriptor wallet by sending
// createwallet with explicit positional parameters.
//
// NOTE: This is a compatibility shim. The typed CreateWallet binding only
// knows the pre-0.21 parameter list and cannot request a descriptor wallet,
// so the call is built by hand here. Replace it with the typed call once the
// binding grows a descriptors option.
func (c *BitcoindClient) createDescriptorWallet(name string) error {
	var result loadWalletResult
	err := c.call(
		"createwallet", &result,
		name,  // wallet_name
		true,  // disable_private_keys
		false, // blank
		nil,   // passphrase
		false, // avoid_reuse
		true,  // descriptors
	)
	if err != nil {
		return fmt.Errorf("create descriptor wallet %s: %w", name, err)
	}

	if result.Warning != "" {
		log.Warnf("Creating wallet %s: %s", name, result.Warning)
	}

	return nil
}
