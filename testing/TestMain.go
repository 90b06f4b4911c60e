// Package testing forces binaries imported by test harnesses into test mode
// so they skip network side effects.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("SHOPLEDGER_TEST_MODE", "1")
		if os.Getenv("SNAPSHOT_CACHE_TTL") == "" {
			_ = os.Setenv("SNAPSHOT_CACHE_TTL", "0s")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain runs the suite with test mode enabled.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
