// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chain

import (
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/rpcclient"
)

const (
	// descriptorWalletVersion is the first bitcoind version (0.21.0) that
	// can create descriptor wallets. Older nodes only get a legacy
	// watch-only wallet.
	descriptorWalletVersion = 210000

	// maxListUnspentConf is the maxconf passed to listunspent. It matches
	// bitcoind's own default.
	maxListUnspentConf = 9999999
)

// BitcoindClient is a request/response client for the wallet RPCs of a
// bitcoind node. All requests are bound to a single named wallet.
type BitcoindClient struct {
	client *rpcclient.Client

	cfg Config

	// chainParams are the params of the network the node reported at
	// connection time.
	chainParams *chaincfg.Params
}

// NewBitcoindClient creates a client for the wallet described by the config
// and verifies that the node runs on the configured network.
//
// The check costs one getblockchaininfo round trip. A node on another chain
// is never returned to the caller, so no wallet, import or rescan call can
// reach it.
func NewBitcoindClient(cfg *Config) (*BitcoindClient, error) {
	err := cfg.validate()
	if err != nil {
		return nil, err
	}

	connCfg := &rpcclient.ConnConfig{
		Host:                 cfg.walletHost(),
		User:                 cfg.User,
		Pass:                 cfg.Pass,
		DisableTLS:           cfg.DisableTLS,
		Certificates:         cfg.Certificates,
		DisableAutoReconnect: false,
		DisableConnectOnNew:  true,
		HTTPPostMode:         true,
	}

	rpcClient, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("create rpc client: %w", err)
	}

	c := &BitcoindClient{
		client: rpcClient,
		cfg:    *cfg,
	}

	err = c.checkNetwork()
	if err != nil {
		c.Stop()
		return nil, err
	}

	return c, nil
}

// checkNetwork fails with ErrNetworkMismatch unless the node reports the
// configured chain.
func (c *BitcoindClient) checkNetwork() error {
	var info blockchainInfo
	err := c.call("getblockchaininfo", &info)
	if err != nil {
		return err
	}

	params, err := paramsForChain(info.Chain)
	if err != nil {
		return err
	}

	if params.Name != c.cfg.Params.Name {
		return fmt.Errorf("%w: node=%s, configured=%s",
			ErrNetworkMismatch, params.Name, c.cfg.Params.Name)
	}

	c.chainParams = params

	log.Infof("Connected to bitcoind on %s (height=%d), wallet=%s",
		params.Name, info.Blocks, c.cfg.WalletName)

	return nil
}

// ChainParams returns the params of the network the node runs on.
func (c *BitcoindClient) ChainParams() *chaincfg.Params {
	return c.chainParams
}

// Stop shuts down the underlying rpc client.
func (c *BitcoindClient) Stop() {
	c.client.Shutdown()
	c.client.WaitForShutdown()
}

// call sends a raw JSON-RPC request with positional params and decodes the
// result into result, which may be nil when the result is not needed.
func (c *BitcoindClient) call(method string, result any,
	params ...any) error {

	rawParams := make([]json.RawMessage, 0, len(params))
	for _, param := range params {
		raw, err := json.Marshal(param)
		if err != nil {
			return fmt.Errorf("marshal %s param: %w", method, err)
		}

		rawParams = append(rawParams, raw)
	}

	resp, err := c.client.RawRequest(method, rawParams)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	if result == nil {
		return nil
	}

	err = json.Unmarshal(resp, result)
	if err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}

	return nil
}

// ListWallets returns the names of the wallets currently loaded by the node.
func (c *BitcoindClient) ListWallets() ([]string, error) {
	var wallets []string
	err := c.call("listwallets", &wallets)
	if err != nil {
		return nil, err
	}

	return wallets, nil
}

// ListWalletDir returns the names of the wallets found in the node's wallet
// directory, loaded or not.
func (c *BitcoindClient) ListWalletDir() ([]string, error) {
	var result listWalletDirResult
	err := c.call("listwalletdir", &result)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(result.Wallets))
	for _, w := range result.Wallets {
		names = append(names, w.Name)
	}

	return names, nil
}

// LoadWallet loads a wallet from the node's wallet directory.
func (c *BitcoindClient) LoadWallet(name string) error {
	var result loadWalletResult
	err := c.call("loadwallet", &result, name)
	if err != nil {
		return err
	}

	if result.Warning != "" {
		log.Warnf("Loading wallet %s: %s", name, result.Warning)
	}

	return nil
}

// NodeVersion returns the numeric version reported by getnetworkinfo, e.g.
// 250000 for v25.0.0.
func (c *BitcoindClient) NodeVersion() (int32, error) {
	var info networkInfo
	err := c.call("getnetworkinfo", &info)
	if err != nil {
		return 0, err
	}

	return info.Version, nil
}

// CreateWatchOnlyWallet creates a wallet with private keys disabled. Nodes
// that support descriptor wallets get a non-blank descriptor wallet, older
// nodes a legacy watch-only wallet.
func (c *BitcoindClient) CreateWatchOnlyWallet(name string) error {
	version, err := c.NodeVersion()
	if err != nil {
		return err
	}

	if version >= descriptorWalletVersion {
		return c.createDescriptorWallet(name)
	}

	log.Debugf("Node version %d predates descriptor wallets, creating "+
		"legacy watch-only wallet %s", version, name)

	_, err = c.client.CreateWallet(
		name, rpcclient.WithCreateWalletDisablePrivateKeys(),
	)
	if err != nil {
		return fmt.Errorf("create legacy wallet %s: %w", name, err)
	}

	return nil
}

// GetDescriptorInfo returns the canonical form of the descriptor with its
// checksum appended.
func (c *BitcoindClient) GetDescriptorInfo(descriptor string) (string,
	error) {

	var info descriptorInfo
	err := c.call("getdescriptorinfo", &info, descriptor)
	if err != nil {
		return "", err
	}

	return info.Descriptor, nil
}

// DeriveAddresses derives the addresses a descriptor describes. The range
// must be set for ranged descriptors and nil otherwise.
func (c *BitcoindClient) DeriveAddresses(descriptor string,
	r *DescriptorRange) ([]string, error) {

	params := []any{descriptor}
	if r != nil {
		params = append(params, []uint32{r.Start, r.End})
	}

	var addrs []string
	err := c.call("deriveaddresses", &addrs, params...)
	if err != nil {
		return nil, err
	}

	return addrs, nil
}

// GetAddressInfo returns what the wallet knows about an address.
func (c *BitcoindClient) GetAddressInfo(address string) (*AddressInfo,
	error) {

	var info AddressInfo
	err := c.call("getaddressinfo", &info, address)
	if err != nil {
		return nil, err
	}

	return &info, nil
}

// ImportDescriptors imports the batch without triggering a rescan; every
// request is expected to carry TimestampNow. The returned results are in
// request order.
func (c *BitcoindClient) ImportDescriptors(reqs []ImportRequest) (
	[]ImportResult, error) {

	var results []ImportResult
	err := c.call("importdescriptors", &results, reqs)
	if err != nil {
		return nil, err
	}

	return results, nil
}

// GetBlockCount returns the height of the node's best chain.
func (c *BitcoindClient) GetBlockCount() (int64, error) {
	return c.client.GetBlockCount()
}

// RescanBlockchain rescans the blocks in [start, end] for wallet outputs.
// If the node refuses because the wallet is already rescanning, the returned
// error matches ErrRescanInProgress.
func (c *BitcoindClient) RescanBlockchain(start, end int64) (*RescanResult,
	error) {

	var result RescanResult
	err := c.call("rescanblockchain", &result, start, end)
	switch {
	case err == nil:
		return &result, nil

	case IsRescanContention(err):
		return nil, fmt.Errorf("%w: %w", ErrRescanInProgress, err)

	default:
		return nil, err
	}
}

// ListUnspent returns all unspent outputs of the wallet, including
// unconfirmed ones.
func (c *BitcoindClient) ListUnspent() ([]Unspent, error) {
	var unspent []Unspent
	err := c.call("listunspent", &unspent, 0, maxListUnspentConf)
	if err != nil {
		return nil, err
	}

	return unspent, nil
}
