// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcwatch/chain"
	"github.com/btcsuite/btcwatch/storedb"
	"github.com/btcsuite/btcwatch/wallet"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "btcwatch.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "btcwatch.log"
	defaultStoreFilename  = "stores.db"
	defaultWalletName     = "btcwatch"
	defaultNetwork        = "regtest"
)

var (
	defaultAppDataDir = btcutil.AppDataDir("btcwatch", false)

	// defaultRPCPorts are bitcoind's default RPC ports per network.
	defaultRPCPorts = map[string]string{
		chaincfg.MainNetParams.Name:       "8332",
		chaincfg.TestNet3Params.Name:      "18332",
		chaincfg.TestNet4Params.Name:      "48332",
		chaincfg.SigNetParams.Name:        "38332",
		chaincfg.RegressionNetParams.Name: "18443",
	}

	errMissingRPCUser = errors.New("--rpcuser is required")

	errMissingRPCCert = errors.New("--tls requires --rpccert")
)

type config struct {
	// General application behavior
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	AppDataDir  string `short:"A" long:"appdata" description:"Application data directory for the store database and logs"`
	Network     string `long:"network" description:"Network the node runs on" choice:"mainnet" choice:"testnet" choice:"testnet4" choice:"signet" choice:"regtest"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	LogDir      string `long:"logdir" description:"Directory to log output"`

	// Node connection options
	RPCConnect string `short:"c" long:"rpcconnect" description:"Hostname/IP and port of the bitcoind RPC server (default port depends on network)"`
	RPCUser    string `short:"u" long:"rpcuser" description:"bitcoind RPC username"`
	RPCPass    string `short:"P" long:"rpcpass" default-mask:"-" description:"bitcoind RPC password, prompted for when empty"`
	RPCCert    string `long:"rpccert" description:"File containing the certificate of a TLS proxy in front of bitcoind"`
	TLS        bool   `long:"tls" description:"Connect through a TLS proxy, bitcoind itself only serves plain HTTP (requires --rpccert)"`

	// Store options
	WalletName  string `short:"w" long:"walletname" description:"Name of the wallet store, also used as the node's wallet name"`
	StoreFile   string `long:"storefile" description:"Path to the store database"`
	AccountXPub string `long:"accountxpub" description:"Account xpub of a new store"`
	Birthday    uint32 `long:"birthday" description:"Birthday height of a new store"`

	// Sync options
	SyncInterval      time.Duration `long:"syncinterval" description:"Time between syncs, 0 syncs once and exits"`
	RescanBackoff     time.Duration `long:"rescanbackoff" description:"Wait before retrying a rescan refused by the node"`
	MaxRescanAttempts uint32        `long:"maxrescanattempts" description:"Rescan attempts before giving up, 0 retries forever"`
	ImportCount       uint32        `long:"importcount" description:"Addresses imported per ranged descriptor"`
	Label             string        `long:"label" description:"Label of imported non-ranged descriptors (default: wallet name)"`

	params *chaincfg.Params
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		appHomeDir := btcutil.AppDataDir("", false)
		homeDir := filepath.Dir(appHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// normalizeAddress returns addr with the passed default port appended if
// there is not already a port specified.
func normalizeAddress(addr, defaultPort string) string {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort(addr, defaultPort)
	}

	return addr
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func loadConfig() (*config, []string, error) {
	// Default config.
	cfg := config{
		AppDataDir:    defaultAppDataDir,
		Network:       defaultNetwork,
		DebugLevel:    defaultLogLevel,
		WalletName:    defaultWalletName,
		RescanBackoff: wallet.DefaultRescanBackoff,
		ImportCount:   wallet.DefaultImportCount,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.
	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default)
	_, err := preParser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) &&
			flagsErr.Type == flags.ErrHelp {

			os.Exit(0)
		}

		preParser.WriteHelp(os.Stderr)

		return nil, nil, err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version())
		os.Exit(0)
	}

	// Load additional config from file.
	configFile := preCfg.ConfigFile
	if configFile == "" {
		configFile = filepath.Join(
			cleanAndExpandPath(preCfg.AppDataDir),
			defaultConfigFilename,
		)
	}

	parser := flags.NewParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(configFile)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintf(os.Stderr, "Error parsing config file: %v\n",
				err)
			parser.WriteHelp(os.Stderr)

			return nil, nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if !errors.As(err, &flagsErr) ||
			flagsErr.Type != flags.ErrHelp {

			parser.WriteHelp(os.Stderr)
		}

		return nil, nil, err
	}

	err = cfg.validate()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	return &cfg, remainingArgs, nil
}

// validate checks the parsed options and fills in the derived ones.
func (c *config) validate() error {
	params, err := chain.ParamsForNetwork(c.Network)
	if err != nil {
		return err
	}
	c.params = params

	c.AppDataDir = cleanAndExpandPath(c.AppDataDir)

	if c.LogDir == "" {
		c.LogDir = filepath.Join(c.AppDataDir, defaultLogDirname)
	}
	c.LogDir = cleanAndExpandPath(c.LogDir)

	if c.StoreFile == "" {
		c.StoreFile = filepath.Join(
			c.AppDataDir, params.Name, defaultStoreFilename,
		)
	}
	c.StoreFile = cleanAndExpandPath(c.StoreFile)

	if c.RPCConnect == "" {
		c.RPCConnect = "localhost"
	}
	c.RPCConnect = normalizeAddress(
		c.RPCConnect, defaultRPCPorts[params.Name],
	)

	if c.RPCCert != "" {
		c.RPCCert = cleanAndExpandPath(c.RPCCert)
	}

	if c.TLS && c.RPCCert == "" {
		return errMissingRPCCert
	}

	if !validLogLevel(c.DebugLevel) {
		return fmt.Errorf("the specified debug level [%v] is invalid",
			c.DebugLevel)
	}

	if c.RPCUser == "" {
		return errMissingRPCUser
	}

	if c.WalletName == "" {
		return fmt.Errorf("%w: empty wallet name", storedb.ErrEmptyName)
	}

	return nil
}
