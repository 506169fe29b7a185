package bucketsort

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain fails the package if any test leaves partition workers, sort
// goroutines or background wave merges running.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
