package chain

// TimestampNow is the import timestamp telling bitcoind the imported scripts
// have no history before the current tip. Historical outputs are picked up
// by the explicit rescan that follows an import.
const TimestampNow = "now"

// blockchainInfo is the subset of the getblockchaininfo result used here.
type blockchainInfo struct {
	Chain  string `json:"chain"`
	Blocks int64  `json:"blocks"`
}

// networkInfo is the subset of the getnetworkinfo result used here.
type networkInfo struct {
	Version    int32  `json:"version"`
	SubVersion string `json:"subversion"`
}

// walletDirEntry is a single wallet found in the node's wallet directory.
type walletDirEntry struct {
	Name string `json:"name"`
}

// listWalletDirResult is the result of listwalletdir.
type listWalletDirResult struct {
	Wallets []walletDirEntry `json:"wallets"`
}

// loadWalletResult is the result of loadwallet and createwallet.
type loadWalletResult struct {
	Name    string `json:"name"`
	Warning string `json:"warning"`
}

// descriptorInfo is the result of getdescriptorinfo.
type descriptorInfo struct {
	Descriptor     string `json:"descriptor"`
	Checksum       string `json:"checksum"`
	IsRange        bool   `json:"isrange"`
	IsSolvable     bool   `json:"issolvable"`
	HasPrivateKeys bool   `json:"hasprivatekeys"`
}

// DescriptorRange is the inclusive child index range used when deriving
// addresses from a ranged descriptor.
type DescriptorRange struct {
	Start uint32
	End   uint32
}

// AddressInfo is the subset of the getaddressinfo result used here.
type AddressInfo struct {
	Address      string `json:"address"`
	ScriptPubKey string `json:"scriptPubKey"`
	IsMine       bool   `json:"ismine"`
	IsWatchOnly  bool   `json:"iswatchonly"`
	Solvable     bool   `json:"solvable"`
	Descriptor   string `json:"desc"`
}

// ImportRequest is a single entry of an importdescriptors batch.
type ImportRequest struct {
	// Descriptor is the checksummed descriptor to import.
	Descriptor string `json:"desc"`

	// Timestamp is either TimestampNow or a unix time.
	Timestamp string `json:"timestamp"`

	// Range is the end of the range to import for ranged descriptors.
	Range *uint32 `json:"range,omitempty"`

	// Label is the address label. bitcoind rejects labels on ranged
	// descriptors.
	Label string `json:"label,omitempty"`
}

// ImportError is the per-request error returned by importdescriptors.
type ImportError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ImportResult is the per-request outcome of importdescriptors.
type ImportResult struct {
	Success  bool         `json:"success"`
	Warnings []string     `json:"warnings,omitempty"`
	Error    *ImportError `json:"error,omitempty"`
}

// RescanResult is the result of rescanblockchain.
type RescanResult struct {
	StartHeight int64 `json:"start_height"`
	StopHeight  int64 `json:"stop_height"`
}

// Unspent is the subset of a listunspent entry used here. Descriptor carries
// the key origin the receive index is recovered from.
type Unspent struct {
	ScriptPubKey string `json:"scriptPubKey"`
	Descriptor   string `json:"desc"`
}
