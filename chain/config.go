package chain

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// Config holds the parameters needed to reach the bitcoind wallet the engine
// synchronizes against.
type Config struct {
	// Host is the host:port of the node's RPC server. A leading http://
	// or https:// scheme is tolerated and stripped.
	Host string

	// User and Pass are the RPC basic auth credentials.
	User string
	Pass string

	// Params is the network the node is expected to run on. The client
	// refuses to connect to a node reporting any other chain.
	Params *chaincfg.Params

	// WalletName is the name of the watch-only wallet inside the node.
	// Every request is sent to the /wallet/<WalletName> endpoint.
	WalletName string

	// DisableTLS switches the transport to plain HTTP.
	DisableTLS bool

	// Certificates holds the PEM encoded certificates used to verify the
	// node when TLS is enabled.
	Certificates []byte
}

// validate checks the required config options are set.
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("%w: missing rpc config", ErrInvalidConfig)
	}

	if c.Host == "" {
		return fmt.Errorf("%w: missing rpc host", ErrInvalidConfig)
	}

	if c.Params == nil {
		return fmt.Errorf("%w: missing chain params", ErrInvalidConfig)
	}

	if c.WalletName == "" {
		return fmt.Errorf("%w: missing wallet name", ErrInvalidConfig)
	}

	// If TLS is enabled, the remote RPC certificate must be provided.
	if !c.DisableTLS && len(c.Certificates) == 0 {
		return fmt.Errorf("%w: must provide certs when TLS is enabled",
			ErrInvalidConfig)
	}

	return nil
}

// walletHost returns the host string rpcclient should post to. bitcoind
// routes wallet calls by URL path, so the wallet endpoint is appended to the
// host.
func (c *Config) walletHost() string {
	host := strings.TrimPrefix(c.Host, "http://")
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimSuffix(host, "/")

	return host + "/wallet/" + c.WalletName
}

// ParamsForNetwork maps a user supplied network name to its chain params.
func ParamsForNetwork(name string) (*chaincfg.Params, error) {
	switch strings.ToLower(name) {
	case "mainnet", "main":
		return &chaincfg.MainNetParams, nil

	case "testnet", "testnet3", "test":
		return &chaincfg.TestNet3Params, nil

	case "testnet4":
		return &chaincfg.TestNet4Params, nil

	case "signet":
		return &chaincfg.SigNetParams, nil

	case "regtest", "regression":
		return &chaincfg.RegressionNetParams, nil

	default:
		return nil, fmt.Errorf("%w: network %q", ErrInvalidConfig, name)
	}
}

// paramsForChain maps the chain name reported by getblockchaininfo to its
// chain params.
func paramsForChain(chain string) (*chaincfg.Params, error) {
	switch chain {
	case "main":
		return &chaincfg.MainNetParams, nil

	case "test":
		return &chaincfg.TestNet3Params, nil

	case "testnet4":
		return &chaincfg.TestNet4Params, nil

	case "signet":
		return &chaincfg.SigNetParams, nil

	case "regtest":
		return &chaincfg.RegressionNetParams, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChain, chain)
	}
}
