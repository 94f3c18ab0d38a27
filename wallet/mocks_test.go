package wallet

import (
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcwatch/chain"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/mock"
)

var (
	_ LedgerClient           = (*mockLedger)(nil)
	_ WalletDescriptorSource = (*mockDescriptorSource)(nil)
	_ clock.Clock            = (*instantClock)(nil)
)

// mockLedger is a mock implementation of the LedgerClient interface.
type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) ChainParams() *chaincfg.Params {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}

	return args.Get(0).(*chaincfg.Params)
}

func (m *mockLedger) ListWallets() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *mockLedger) ListWalletDir() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *mockLedger) LoadWallet(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

func (m *mockLedger) CreateWatchOnlyWallet(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

func (m *mockLedger) GetDescriptorInfo(descriptor string) (string, error) {
	args := m.Called(descriptor)
	return args.String(0), args.Error(1)
}

func (m *mockLedger) DeriveAddresses(descriptor string,
	r *chain.DescriptorRange) ([]string, error) {

	args := m.Called(descriptor, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

func (m *mockLedger) GetAddressInfo(address string) (*chain.AddressInfo,
	error) {

	args := m.Called(address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*chain.AddressInfo), args.Error(1)
}

func (m *mockLedger) ImportDescriptors(reqs []chain.ImportRequest) (
	[]chain.ImportResult, error) {

	args := m.Called(reqs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]chain.ImportResult), args.Error(1)
}

func (m *mockLedger) GetBlockCount() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockLedger) RescanBlockchain(start, end int64) (*chain.RescanResult,
	error) {

	args := m.Called(start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*chain.RescanResult), args.Error(1)
}

func (m *mockLedger) ListUnspent() ([]chain.Unspent, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]chain.Unspent), args.Error(1)
}

// mockDescriptorSource is a mock implementation of the
// WalletDescriptorSource interface.
type mockDescriptorSource struct {
	mock.Mock
}

func (m *mockDescriptorSource) UnimportedDescriptors(store *Store) ([]string,
	error) {

	args := m.Called(store)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

// instantClock is a clock whose timers fire immediately. It records every
// requested wait.
type instantClock struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (c *instantClock) Now() time.Time {
	return time.Unix(0, 0)
}

func (c *instantClock) TickAfter(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- c.Now().Add(d)

	return ch
}

// recordedWaits returns the waits requested so far.
func (c *instantClock) recordedWaits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]time.Duration(nil), c.waits...)
}

// blockingClock is a clock whose timers never fire.
type blockingClock struct{}

func (blockingClock) Now() time.Time {
	return time.Unix(0, 0)
}

func (blockingClock) TickAfter(time.Duration) <-chan time.Time {
	return make(chan time.Time)
}
