package chain

import (
	"errors"
	"strings"

	"github.com/btcsuite/btcd/btcjson"
)

var (
	// ErrNetworkMismatch is returned when the chain reported by the node
	// does not match the network the client was configured for.
	ErrNetworkMismatch = errors.New("rpc network does not match " +
		"configured network")

	// ErrUnknownChain is returned when the node reports a chain name that
	// cannot be mapped to known chain parameters.
	ErrUnknownChain = errors.New("unknown chain reported by node")

	// ErrInvalidConfig is returned when the connection config is missing
	// a required field.
	ErrInvalidConfig = errors.New("invalid rpc config")

	// ErrRescanInProgress is returned when the node refuses a rescan
	// because another rescan of the same wallet is still running.
	ErrRescanInProgress = errors.New("wallet rescan already in progress")
)

const (
	// rpcWalletError is bitcoind's RPC_WALLET_ERROR code. It is shared by
	// many wallet failures, so the message has to be inspected as well.
	rpcWalletError btcjson.RPCErrorCode = -4

	// rpcInWarmup is bitcoind's RPC_IN_WARMUP code, returned while the
	// node is still loading and cannot serve the request yet.
	rpcInWarmup btcjson.RPCErrorCode = -28

	// rescanningMsg is the fragment bitcoind puts in the error message when
	// a rescan is refused because one is already running.
	rescanningMsg = "currently rescanning"
)

// IsRescanContention returns true if the error is a node-side refusal that
// will clear on its own once the competing rescan (or node warmup) is done.
func IsRescanContention(err error) bool {
	if errors.Is(err, ErrRescanInProgress) {
		return true
	}

	var rpcErr *btcjson.RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}

	switch rpcErr.Code {
	case rpcInWarmup:
		return true

	case rpcWalletError:
		return strings.Contains(
			strings.ToLower(rpcErr.Message), rescanningMsg,
		)

	default:
		return false
	}
}
