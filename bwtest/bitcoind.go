package bwtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcwatch/bwtest/wait"
	"github.com/btcsuite/btcwatch/chain"
)

const (
	// bitcoindRPCUser/bitcoindRPCPass are test-only credentials. They
	// match the static rpcauth entry below.
	bitcoindRPCUser = "weks"
	bitcoindRPCPass = "weks"

	// bitcoindRPCAuthorization enables RPC access with user/pass without
	// storing cleartext credentials in the datadir.
	//
	// Generated with: bitcoind -rpcauth=weks:weks.
	bitcoindRPCAuthorization = "weks:469e9bb14ab2360f8e226efed5ca6f" +
		"d$507c670e800a95284294edb5773b05544b" +
		"220110063096c221be9933c82d38e1"

	// bitcoindLogFilePerm protects daemon stdout/stderr logs.
	bitcoindLogFilePerm = 0o600

	// bitcoindStartTimeout bounds how long the node may take to answer
	// its first RPC.
	bitcoindStartTimeout = 30 * time.Second
)

var (
	// harnessNetParams is the network every harness node runs on.
	harnessNetParams = &chaincfg.RegressionNetParams

	errNoRPCPort = errors.New("no free rpc port")
)

// Node is a regtest bitcoind process with its wallet subsystem enabled. It
// has no peers, so blocks only come from Generate.
type Node struct {
	// binary is the resolved bitcoind executable path.
	binary string

	// dataDir is the node's data directory. The daemon logs land here
	// too.
	dataDir string

	// rpcPort is the HTTP-RPC port used by bitcoind.
	rpcPort int

	cmd       *exec.Cmd
	cmdCancel context.CancelFunc

	// stdoutFile/stderrFile stay open for the lifetime of the daemon.
	stdoutFile *os.File
	stderrFile *os.File

	// client talks to the node-level endpoint, outside of any wallet.
	client *rpcclient.Client
}

// NewNode prepares a node that keeps its data under dataDir.
func NewNode(dataDir string) (*Node, error) {
	binary, err := exec.LookPath("bitcoind")
	if err != nil {
		return nil, fmt.Errorf("find bitcoind binary: %w", err)
	}

	binary, err = filepath.Abs(binary)
	if err != nil {
		return nil, fmt.Errorf("bitcoind path: %w", err)
	}

	dataDir, err = filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("bitcoind data dir: %w", err)
	}

	err = os.MkdirAll(dataDir, logDirPerm)
	if err != nil {
		return nil, fmt.Errorf("mkdir bitcoind data dir: %w", err)
	}

	rpcPort, err := freePort()
	if err != nil {
		return nil, err
	}

	return &Node{
		binary:  binary,
		dataDir: dataDir,
		rpcPort: rpcPort,
	}, nil
}

// Start launches the daemon and waits until it answers RPC calls.
func (n *Node) Start() error {
	args := []string{
		"-datadir=" + n.dataDir,
		"-regtest",
		"-server",
		"-listen=0",
		"-connect=0",
		"-rpcauth=" + bitcoindRPCAuthorization,
		fmt.Sprintf("-rpcport=%d", n.rpcPort),
		"-rpcbind=127.0.0.1",
		"-rpcallowip=127.0.0.1",
	}

	stdout, err := openLogFile(filepath.Join(n.dataDir, "stdout.log"))
	if err != nil {
		return err
	}

	stderr, err := openLogFile(filepath.Join(n.dataDir, "stderr.log"))
	if err != nil {
		_ = stdout.Close()
		return err
	}

	cmdCtx, cmdCancel := context.WithCancel(context.Background())

	// #nosec G204 -- n.binary is looked up from PATH and args are fixed.
	cmd := exec.CommandContext(cmdCtx, n.binary, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err = cmd.Start()
	if err != nil {
		cmdCancel()
		_ = stdout.Close()
		_ = stderr.Close()

		return fmt.Errorf("start bitcoind: %w", err)
	}

	n.cmd = cmd
	n.cmdCancel = cmdCancel
	n.stdoutFile = stdout
	n.stderrFile = stderr

	n.client, err = rpcclient.New(&rpcclient.ConnConfig{
		Host:                n.RPCHost(),
		User:                bitcoindRPCUser,
		Pass:                bitcoindRPCPass,
		DisableConnectOnNew: true,
		DisableTLS:          true,
		HTTPPostMode:        true,
	}, nil)
	if err != nil {
		n.Stop()
		return fmt.Errorf("create bitcoind rpc client: %w", err)
	}

	ctx, cancel := context.WithTimeout(
		context.Background(), bitcoindStartTimeout,
	)
	defer cancel()

	err = wait.NoError(ctx, func() error {
		_, err := n.client.GetBlockCount()
		return err
	})
	if err != nil {
		n.Stop()
		return fmt.Errorf("bitcoind not ready: %w; logs: %s", err,
			n.dataDir)
	}

	return nil
}

// Stop kills the daemon. Repeated calls are no-ops.
func (n *Node) Stop() {
	if n.client != nil {
		n.client.Shutdown()
		n.client.WaitForShutdown()
		n.client = nil
	}

	if n.cmdCancel != nil {
		n.cmdCancel()
		n.cmdCancel = nil
	}

	if n.cmd != nil {
		_ = n.cmd.Wait()
		n.cmd = nil
	}

	if n.stdoutFile != nil {
		_ = n.stdoutFile.Close()
		n.stdoutFile = nil
	}

	if n.stderrFile != nil {
		_ = n.stderrFile.Close()
		n.stderrFile = nil
	}
}

// RPCHost returns the host:port of the node's RPC server.
func (n *Node) RPCHost() string {
	return fmt.Sprintf("127.0.0.1:%d", n.rpcPort)
}

// ChainConfig returns a client config for the named wallet on this node.
func (n *Node) ChainConfig(walletName string) *chain.Config {
	return &chain.Config{
		Host:       n.RPCHost(),
		User:       bitcoindRPCUser,
		Pass:       bitcoindRPCPass,
		Params:     harnessNetParams,
		WalletName: walletName,
		DisableTLS: true,
	}
}

// Generate mines num blocks paying their coinbase to the script the
// descriptor expands to and returns the new block hashes.
func (n *Node) Generate(num uint32, descriptor string) ([]string, error) {
	rawNum, err := json.Marshal(num)
	if err != nil {
		return nil, err
	}

	rawDesc, err := json.Marshal(descriptor)
	if err != nil {
		return nil, err
	}

	resp, err := n.client.RawRequest(
		"generatetodescriptor", []json.RawMessage{rawNum, rawDesc},
	)
	if err != nil {
		return nil, fmt.Errorf("generatetodescriptor: %w", err)
	}

	var hashes []string
	err = json.Unmarshal(resp, &hashes)
	if err != nil {
		return nil, fmt.Errorf("decode block hashes: %w", err)
	}

	return hashes, nil
}

// Height returns the node's best block height.
func (n *Node) Height() (int64, error) {
	return n.client.GetBlockCount()
}

// openLogFile opens a daemon log file for appending.
func openLogFile(path string) (*os.File, error) {
	// #nosec G304 -- path is created by the test harness.
	f, err := os.OpenFile(
		path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, bitcoindLogFilePerm,
	)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return f, nil
}

// freePort asks the kernel for an unused loopback port.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errNoRPCPort, err)
	}
	defer l.Close()

	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, errNoRPCPort
	}

	return addr.Port, nil
}
