package remote

import "strings"

// Quote wraps s in single quotes for a POSIX shell. Embedded single quotes
// are written as '\''.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
