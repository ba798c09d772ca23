package forkjoin

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in this package.
// Every test must wait for its pool's Done channel.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
