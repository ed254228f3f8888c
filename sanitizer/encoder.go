// FILE: lixenwraith/logpipe/sanitizer/encoder.go
package sanitizer

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/davecgh/go-spew/spew"
)

// Output formats understood by Encoder
const (
	FormatTxt  = "txt"
	FormatJSON = "json"
	FormatRaw  = "raw"
)

// dumper renders complex values in raw output
var dumper = &spew.ConfigState{
	Indent:                  " ",
	MaxDepth:                10,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Encoder appends values to a byte slice with format-specific quoting and
// escaping. It is a small value type and safe for concurrent use.
type Encoder struct {
	format    string
	sanitizer *Sanitizer
}

// NewEncoder returns an encoder for format using san for txt and raw strings
func NewEncoder(format string, san *Sanitizer) Encoder {
	return Encoder{format: format, sanitizer: san}
}

// Format returns the encoder's output format
func (e Encoder) Format() string {
	return e.format
}

// AppendString appends s, quoted and escaped as the format requires
func (e Encoder) AppendString(dst []byte, s string) []byte {
	switch e.format {
	case FormatRaw:
		return e.sanitizer.Append(dst, s)

	case FormatJSON:
		return appendJSONString(dst, s)

	default:
		start := len(dst)
		dst = e.sanitizer.Append(dst, s)
		if !e.NeedsQuotes(string(dst[start:])) {
			return dst
		}
		// Re-emit the sanitized text between quotes with escapes
		sanitized := string(dst[start:])
		dst = append(dst[:start], '"')
		for i := 0; i < len(sanitized); i++ {
			if sanitized[i] == '"' || sanitized[i] == '\\' {
				dst = append(dst, '\\')
			}
			dst = append(dst, sanitized[i])
		}
		return append(dst, '"')
	}
}

// AppendKey appends a field key: quoted in json, bare but sanitized otherwise
func (e Encoder) AppendKey(dst []byte, key string) []byte {
	if e.format == FormatJSON {
		return appendJSONString(dst, key)
	}
	return e.sanitizer.Append(dst, key)
}

// AppendNumber appends a pre-formatted number
func (e Encoder) AppendNumber(dst []byte, n string) []byte {
	return append(dst, n...)
}

// AppendBool appends a boolean
func (e Encoder) AppendBool(dst []byte, b bool) []byte {
	return strconv.AppendBool(dst, b)
}

// AppendNil appends the format's nil literal
func (e Encoder) AppendNil(dst []byte) []byte {
	if e.format == FormatRaw {
		return append(dst, "nil"...)
	}
	return append(dst, "null"...)
}

// AppendComplex appends a value with no dedicated encoding: a spew dump in
// raw output, its %+v rendering as a string otherwise
func (e Encoder) AppendComplex(dst []byte, v any) []byte {
	if e.format == FormatRaw {
		var b bytes.Buffer
		dumper.Fdump(&b, v)
		return append(dst, bytes.TrimSpace(b.Bytes())...)
	}
	return e.AppendString(dst, fmt.Sprintf("%+v", v))
}

// NeedsQuotes reports whether s must be quoted in the encoder's format
func (e Encoder) NeedsQuotes(s string) bool {
	switch e.format {
	case FormatJSON:
		return true
	case FormatTxt:
		if len(s) == 0 {
			return true
		}
		for _, r := range s {
			if unicode.IsSpace(r) {
				return true
			}
			switch r {
			case '"', '\'', '\\', '$', '`', '!', '&', '|', ';',
				'(', ')', '<', '>', '*', '?', '[', ']', '{', '}',
				'~', '#', '%', '=':
				return true
			}
			if !unicode.IsPrint(r) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// appendJSONString appends s as a JSON string literal. Valid multi-byte
// UTF-8 passes through; invalid bytes become U+FFFD.
func appendJSONString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' && c < utf8.RuneSelf && c != 0x7f {
			start := i
			for i < len(s) && s[i] >= 0x20 && s[i] != '"' && s[i] != '\\' && s[i] < utf8.RuneSelf && s[i] != 0x7f {
				i++
			}
			dst = append(dst, s[start:i]...)
			continue
		}
		if c >= utf8.RuneSelf {
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				dst = append(dst, `�`...)
			} else {
				dst = append(dst, s[i:i+size]...)
			}
			i += size
			continue
		}
		switch c {
		case '\\', '"':
			dst = append(dst, '\\', c)
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\t':
			dst = append(dst, '\\', 't')
		case '\b':
			dst = append(dst, '\\', 'b')
		case '\f':
			dst = append(dst, '\\', 'f')
		default:
			dst = appendUnicodeEscape(dst, rune(c))
		}
		i++
	}
	return append(dst, '"')
}
