package logging

import (
	"io"
	"testing"
)

// PatchLogger sets the global logger to write to writer for the duration of
// the test.
func PatchLogger(t *testing.T, writer io.Writer) {
	t.Helper()
	origLogger := L

	L = newLogger(writer)

	t.Cleanup(func() {
		L = origLogger
	})
}
