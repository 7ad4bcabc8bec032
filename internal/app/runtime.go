package app

import (
	"os"
	"sync"
)

const testModeEnv = "COMPTOIR_TEST_MODE"

var (
	testMode     bool
	testModeOnce sync.Once
)

// InTestMode reports whether the process should skip runtime startup, so the
// binaries can be exercised by integration harnesses without Postgres or
// Redis listening.
func InTestMode() bool {
	testModeOnce.Do(func() {
		testMode = os.Getenv(testModeEnv) == "1"
	})
	return testMode
}
