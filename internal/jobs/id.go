// Package jobs provides identifier helpers shared by the studio and its
// HTTP surface.
package jobs

import (
	"strings"

	"github.com/google/uuid"
)

// ID prefixes for the records the studio creates.
const (
	PrefixRun         = "run-"
	PrefixLogLine     = "log-"
	PrefixHistory     = "hist-"
	PrefixInstruction = "instr-"
	PrefixPreview     = "prev-"
	PrefixStream      = "sse-"
)

// GenerateID creates a new random identifier with the given prefix.
// The prefix should include a trailing dash, e.g. "run-", "hist-".
func GenerateID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// HasPrefix reports whether id was generated with prefix and carries a
// non-empty random part.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix) && len(id) > len(prefix)
}
