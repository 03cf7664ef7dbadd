package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// CountLogLines returns the number of log lines containing substr.
func CountLogLines(logs, substr string) int {
	n := 0
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

// AssertLoggedOnce checks that exactly one log line contains substr.
func AssertLoggedOnce(t *testing.T, buf *SafeBuffer, substr string) bool {
	t.Helper()
	logs := buf.String()
	return assert.Equal(t, 1, CountLogLines(logs, substr),
		"expected exactly one log line containing %q, logs:\n%s", substr, logs)
}

// AssertNotLogged checks that no log line contains substr.
func AssertNotLogged(t *testing.T, buf *SafeBuffer, substr string) bool {
	t.Helper()
	logs := buf.String()
	return assert.Zero(t, CountLogLines(logs, substr),
		"expected no log line containing %q, logs:\n%s", substr, logs)
}
