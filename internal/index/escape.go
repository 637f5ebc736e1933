package index

// Escape rewrites a filter pattern for the remote grep. The characters { } "
// and + are backslash-escaped and the class \d becomes [0-9]. Everything
// else, including a backslash not followed by d, passes through.
func Escape(pattern string) string {
	out := make([]rune, 0, len(pattern)+8)
	var prev rune

	for _, c := range pattern {
		switch {
		case c == 'd' && prev == '\\':
			out = out[:len(out)-1]
			out = append(out, []rune("[0-9]")...)
		case c == '{', c == '}', c == '"', c == '+':
			out = append(out, '\\', c)
		default:
			out = append(out, c)
		}
		prev = c
	}

	return string(out)
}
