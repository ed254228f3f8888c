// FILE: lixenwraith/logpipe/sanitizer/sanitizer.go
// Package sanitizer cleans untrusted text before it reaches a sink, using
// bitwise filter flags paired with transforms, and encodes values for the
// txt, json and raw output formats.
//
// A configured Sanitizer holds no scratch state, so one instance may be
// shared by appenders rendering on different goroutines.
package sanitizer

import (
	"encoding/hex"
	"strconv"
	"unicode"
	"unicode/utf8"
)

// Filter flags for character matching
const (
	FilterNonPrintable uint64 = 1 << iota // Runes not printable per strconv.IsPrint
	FilterControl                         // Control characters (unicode.IsControl)
	FilterWhitespace                      // Whitespace (unicode.IsSpace)
	FilterShellSpecial                    // '`', '$', ';', '|', '&', '>', '<', '(', ')', '#'
)

// Transform flags for character transformation
const (
	TransformStrip      uint64 = 1 << iota // Removes the character
	TransformHexEncode                     // Encodes the UTF-8 bytes as "<XXYY>"
	TransformJSONEscape                    // Escapes with JSON backslash sequences
)

// PolicyPreset names a pre-configured rule set
type PolicyPreset string

const (
	PolicyRaw   PolicyPreset = "raw"
	PolicyJSON  PolicyPreset = "json"
	PolicyTxt   PolicyPreset = "txt"
	PolicyShell PolicyPreset = "shell"
)

type rule struct {
	filter    uint64
	transform uint64
}

var policyRules = map[PolicyPreset][]rule{
	PolicyRaw:   {},
	PolicyTxt:   {{filter: FilterNonPrintable, transform: TransformHexEncode}},
	PolicyJSON:  {{filter: FilterControl, transform: TransformJSONEscape}},
	PolicyShell: {{filter: FilterShellSpecial | FilterWhitespace, transform: TransformStrip}},
}

// filterCheckers is evaluated in flag order
var filterCheckers = []struct {
	flag  uint64
	check func(rune) bool
}{
	{FilterNonPrintable, func(r rune) bool { return !strconv.IsPrint(r) }},
	{FilterControl, unicode.IsControl},
	{FilterWhitespace, unicode.IsSpace},
	{FilterShellSpecial, func(r rune) bool {
		switch r {
		case '`', '$', ';', '|', '&', '>', '<', '(', ')', '#':
			return true
		}
		return false
	}},
}

// Sanitizer applies an ordered list of rules; the first matching rule wins
type Sanitizer struct {
	rules []rule
}

// New creates a passthrough sanitizer
func New() *Sanitizer {
	return &Sanitizer{}
}

// ForPolicy creates a sanitizer preloaded with preset
func ForPolicy(preset PolicyPreset) *Sanitizer {
	return New().Policy(preset)
}

// Rule appends a custom rule
func (s *Sanitizer) Rule(filter uint64, transform uint64) *Sanitizer {
	s.rules = append(s.rules, rule{filter: filter, transform: transform})
	return s
}

// Policy appends the rules of a preset
func (s *Sanitizer) Policy(preset PolicyPreset) *Sanitizer {
	if rules, ok := policyRules[preset]; ok {
		s.rules = append(s.rules, rules...)
	}
	return s
}

// IsPassthrough reports whether the sanitizer leaves input unchanged
func (s *Sanitizer) IsPassthrough() bool {
	return s == nil || len(s.rules) == 0
}

// Sanitize returns data with all rules applied
func (s *Sanitizer) Sanitize(data string) string {
	if s.IsPassthrough() {
		return data
	}
	return string(s.Append(make([]byte, 0, len(data)), data))
}

// Append appends the sanitized form of data to dst
func (s *Sanitizer) Append(dst []byte, data string) []byte {
	if s.IsPassthrough() {
		return append(dst, data...)
	}
	for _, r := range data {
		matched := false
		for _, rl := range s.rules {
			if matchesFilter(r, rl.filter) {
				dst = applyTransform(dst, r, rl.transform)
				matched = true
				break
			}
		}
		if !matched {
			dst = utf8.AppendRune(dst, r)
		}
	}
	return dst
}

func matchesFilter(r rune, filterMask uint64) bool {
	for _, fc := range filterCheckers {
		if filterMask&fc.flag != 0 && fc.check(r) {
			return true
		}
	}
	return false
}

func applyTransform(dst []byte, r rune, transformMask uint64) []byte {
	switch {
	case transformMask&TransformStrip != 0:
		return dst

	case transformMask&TransformHexEncode != 0:
		var runeBytes [utf8.UTFMax]byte
		n := utf8.EncodeRune(runeBytes[:], r)
		dst = append(dst, '<')
		dst = hex.AppendEncode(dst, runeBytes[:n])
		return append(dst, '>')

	case transformMask&TransformJSONEscape != 0:
		switch r {
		case '\n':
			return append(dst, '\\', 'n')
		case '\r':
			return append(dst, '\\', 'r')
		case '\t':
			return append(dst, '\\', 't')
		case '\b':
			return append(dst, '\\', 'b')
		case '\f':
			return append(dst, '\\', 'f')
		case '"':
			return append(dst, '\\', '"')
		case '\\':
			return append(dst, '\\', '\\')
		}
		if r < 0x20 || r == 0x7f {
			return appendUnicodeEscape(dst, r)
		}
		return utf8.AppendRune(dst, r)
	}
	return utf8.AppendRune(dst, r)
}

const hexDigits = "0123456789abcdef"

// appendUnicodeEscape writes r as \u00XX; only used for single-byte code points
func appendUnicodeEscape(dst []byte, r rune) []byte {
	return append(dst, '\\', 'u', '0', '0', hexDigits[(r>>4)&0xf], hexDigits[r&0xf])
}
