package chain

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

// rpcMethodNotFound is the JSON-RPC code for an unknown method.
const rpcMethodNotFound btcjson.RPCErrorCode = -32601

// rpcHandler answers a single JSON-RPC method of the test node.
type rpcHandler func(params []json.RawMessage) (any, *btcjson.RPCError)

// recordedCall is a request received by the test node.
type recordedCall struct {
	Path   string
	Method string
	Params []json.RawMessage
}

// testNode is a minimal bitcoind JSON-RPC endpoint served over httptest.
type testNode struct {
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]rpcHandler
	calls    []recordedCall
}

// newTestNode starts a test node that reports the given chain name from
// getblockchaininfo.
func newTestNode(t *testing.T, chainName string) *testNode {
	t.Helper()

	n := &testNode{
		handlers: make(map[string]rpcHandler),
	}

	n.handle("getblockchaininfo", func([]json.RawMessage) (any,
		*btcjson.RPCError) {

		return map[string]any{"chain": chainName, "blocks": 101}, nil
	})

	n.server = httptest.NewServer(http.HandlerFunc(n.serveHTTP))
	t.Cleanup(n.server.Close)

	return n
}

// handle registers the handler for a method.
func (n *testNode) handle(method string, h rpcHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.handlers[method] = h
}

// reply registers a handler that always returns the given result.
func (n *testNode) reply(method string, result any) {
	n.handle(method, func([]json.RawMessage) (any, *btcjson.RPCError) {
		return result, nil
	})
}

// fail registers a handler that always returns the given rpc error.
func (n *testNode) fail(method string, code btcjson.RPCErrorCode,
	msg string) {

	n.handle(method, func([]json.RawMessage) (any, *btcjson.RPCError) {
		return nil, &btcjson.RPCError{Code: code, Message: msg}
	})
}

// callsTo returns the recorded calls of the given method.
func (n *testNode) callsTo(method string) []recordedCall {
	n.mu.Lock()
	defer n.mu.Unlock()

	var calls []recordedCall
	for _, c := range n.calls {
		if c.Method == method {
			calls = append(calls, c)
		}
	}

	return calls
}

// config returns a client config pointing at the test node.
func (n *testNode) config(params *chaincfg.Params) *Config {
	return &Config{
		Host:       strings.TrimPrefix(n.server.URL, "http://"),
		User:       "user",
		Pass:       "pass",
		Params:     params,
		WalletName: "watch-wallet",
		DisableTLS: true,
	}
}

func (n *testNode) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
		ID     any               `json:"id"`
	}

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	n.calls = append(n.calls, recordedCall{
		Path:   r.URL.Path,
		Method: req.Method,
		Params: req.Params,
	})
	h, ok := n.handlers[req.Method]
	n.mu.Unlock()

	var (
		result any
		rpcErr *btcjson.RPCError
	)

	if ok {
		result, rpcErr = h(req.Params)
	} else {
		rpcErr = &btcjson.RPCError{
			Code:    rpcMethodNotFound,
			Message: "Method not found",
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if rpcErr != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"result": result,
		"error":  rpcErr,
		"id":     req.ID,
	})
}

// connect creates a client for the test node and stops it on cleanup.
func (n *testNode) connect(t *testing.T) *BitcoindClient {
	t.Helper()

	c, err := NewBitcoindClient(n.config(&chaincfg.RegressionNetParams))
	require.NoError(t, err)
	t.Cleanup(c.Stop)

	return c
}

// decodeParam decodes the i-th param of a recorded call.
func decodeParam[T any](t *testing.T, call recordedCall, i int) T {
	t.Helper()

	require.Greater(t, len(call.Params), i)

	var v T
	require.NoError(t, json.Unmarshal(call.Params[i], &v))

	return v
}
