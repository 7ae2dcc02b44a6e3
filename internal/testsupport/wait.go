package testsupport

import (
	"testing"
	"time"
)

// WaitFor polls cond until it returns true or timeout elapses.
func WaitFor(t testing.TB, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %s", timeout)
	}
}

// WaitCalls blocks until op has been called at least n times.
func (b *Backend) WaitCalls(t testing.TB, op string, n int) {
	t.Helper()
	WaitFor(t, 5*time.Second, func() bool { return b.Calls(op) >= n })
}
