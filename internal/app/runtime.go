package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

// TestModeEnv, when truthy, makes the shopledger binaries return before they
// open Postgres, Redis or a listener. The testing package sets it.
const TestModeEnv = "SHOPLEDGER_TEST_MODE"

const (
	modeUnread int32 = iota
	modeOff
	modeOn
)

var testMode atomic.Int32

func readTestMode() bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	if on {
		testMode.Store(modeOn)
	} else {
		testMode.Store(modeOff)
	}
	return on
}

// InTestMode reports whether startup should be skipped. The environment is
// read on first use and cached.
func InTestMode() bool {
	switch testMode.Load() {
	case modeUnread:
		return readTestMode()
	case modeOn:
		return true
	}
	return false
}

// RefreshTestMode rereads the environment.
func RefreshTestMode() {
	readTestMode()
}
