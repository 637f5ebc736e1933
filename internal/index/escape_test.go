package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "mixed", in: "a{b}c\"d+e\\df", want: "a\\{b\\}c\\\"d\\+e[0-9]f"},
		{name: "plain", in: "ERROR", want: "ERROR"},
		{name: "empty", in: "", want: ""},
		{name: "digit class", in: `\d\d:\d\d`, want: "[0-9][0-9]:[0-9][0-9]"},
		{name: "lone backslash", in: `a\.b`, want: `a\.b`},
		{name: "trailing backslash", in: `end\`, want: `end\`},
		{name: "d without backslash", in: "dd", want: "dd"},
		{name: "double backslash then d", in: `\\d`, want: `\[0-9]`},
		{name: "quantifier", in: `x{2,3}+`, want: `x\{2,3\}\+`},
		{name: "non ascii", in: `錯誤\d+`, want: `錯誤[0-9]\+`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Escape(tt.in))
		})
	}
}

func TestCommand(t *testing.T) {
	assert.Equal(t,
		`grep --color=auto -n -e "ERROR [0-9][0-9]" '/var/log/app.log' | cut -d : -f1`,
		Command(`ERROR \d\d`, "/var/log/app.log"))

	assert.Equal(t,
		`grep --color=auto -n -e "" 'logs/app.log' | cut -d : -f1`,
		Command("", "logs/app.log"))
}
