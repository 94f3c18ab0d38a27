//go:build itest

package itest

import "github.com/btcsuite/btcwatch/bwtest"

// syncCase is one scenario run against the shared node.
type syncCase struct {
	// Name is "component action", lowercase and space separated.
	Name string

	// TestFunc runs the scenario on a subtest harness.
	TestFunc func(h *bwtest.HarnessTest)
}

// allTestCases runs in order. A failing case stops the suite.
var allTestCases = []syncCase{
	{Name: "chain network mismatch", TestFunc: testNetworkMismatch},
	{Name: "sync receive index", TestFunc: testSyncReceiveIndex},
	{Name: "sync swap coins and bonds", TestFunc: testSyncSwapCoinsAndBonds},
	{Name: "sync second run idle", TestFunc: testSyncIdle},
	{Name: "store resume sync", TestFunc: testStoreResume},
}
