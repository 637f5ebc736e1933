package remote

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// DefaultEncoding is used when no encoding name is configured.
const DefaultEncoding = "utf-8"

// Decoder turns raw command output into lines.
type Decoder struct {
	name string
	enc  encoding.Encoding
}

// NewDecoder looks up the named character encoding (WHATWG/IANA names such
// as "utf-8", "big5", "shift_jis", "windows-1252").
func NewDecoder(name string) (*Decoder, error) {
	if name == "" {
		name = DefaultEncoding
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return &Decoder{name: name, enc: enc}, nil
}

// UTF8 returns a Decoder for UTF-8 output.
func UTF8() *Decoder {
	return &Decoder{name: DefaultEncoding, enc: unicode.UTF8}
}

// Name returns the configured encoding name.
func (d *Decoder) Name() string {
	return d.name
}

// Lines decodes data and splits it on newlines. A trailing newline does not
// produce an empty final line, and a trailing \r is dropped from every line.
func (d *Decoder) Lines(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}

	decoded, err := d.enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.name, err)
	}

	text := strings.TrimSuffix(string(decoded), "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines, nil
}
