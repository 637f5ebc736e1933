// Package remotetest provides an in-memory remote file that answers the
// search and ranged-read commands rtail issues.
package remotetest

import (
	"fmt"
	"strings"

	"github.com/TimelordUK/rtail/internal/index"
	"github.com/TimelordUK/rtail/internal/remote"
)

// File is a fake remote file. Matches maps a pattern to the absolute lines
// its search returns; the empty pattern matches every line unless listed.
type File struct {
	Path    string
	Lines   []string
	Matches map[string][]int
}

// Numbered returns a File of n lines reading "line 1" to "line n".
func Numbered(path string, n int) *File {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i+1)
	}
	return &File{Path: path, Lines: lines, Matches: map[string][]int{}}
}

// Handler answers the search and ranged-read commands for f. Anything else
// exits with status 2.
func (f *File) Handler() remote.Handler {
	return func(cmd string) (string, int, error) {
		if cmd == index.Command("", f.Path) {
			if _, ok := f.Matches[""]; !ok {
				return numbers(1, len(f.Lines)), 0, nil
			}
		}
		for pattern, lines := range f.Matches {
			if cmd == index.Command(pattern, f.Path) {
				var b strings.Builder
				for _, n := range lines {
					fmt.Fprintf(&b, "%d\n", n)
				}
				return b.String(), 0, nil
			}
		}

		var first, last int
		var path string
		if _, err := fmt.Sscanf(cmd, "sed -n %d,%dp %s", &first, &last, &path); err == nil {
			var b strings.Builder
			for n := first; n <= last && n <= len(f.Lines); n++ {
				b.WriteString(f.Lines[n-1])
				b.WriteByte('\n')
			}
			return b.String(), 0, nil
		}
		return "", 2, nil
	}
}

func numbers(first, last int) string {
	var b strings.Builder
	for n := first; n <= last; n++ {
		fmt.Fprintf(&b, "%d\n", n)
	}
	return b.String()
}
