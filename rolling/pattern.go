// FILE: lixenwraith/logpipe/rolling/pattern.go
package rolling

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Unit is a calendar unit used for time-based rollover
type Unit int

const (
	UnitSecond Unit = iota + 1
	UnitMinute
	UnitHour
	UnitDay
	UnitMonth
	UnitYear
)

// String returns the unit name
func (u Unit) String() string {
	switch u {
	case UnitSecond:
		return "second"
	case UnitMinute:
		return "minute"
	case UnitHour:
		return "hour"
	case UnitDay:
		return "day"
	case UnitMonth:
		return "month"
	case UnitYear:
		return "year"
	default:
		return fmt.Sprintf("unit(%d)", int(u))
	}
}

// ParseUnit converts a unit name; an empty name yields 0
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "second", "seconds", "s":
		return UnitSecond, nil
	case "minute", "minutes", "m":
		return UnitMinute, nil
	case "hour", "hours", "h":
		return UnitHour, nil
	case "day", "days", "d":
		return UnitDay, nil
	case "month", "months":
		return UnitMonth, nil
	case "year", "years", "y":
		return UnitYear, nil
	default:
		return 0, fmt.Errorf("rolling: unknown time unit '%s'", s)
	}
}

const defaultDateLayout = "yyyy-MM-dd"

type partKind int

const (
	partLiteral partKind = iota
	partDate
	partIndex
)

type patternPart struct {
	kind   partKind
	text   string // literal text or Go time layout
	source string // original date layout
}

// FilePattern is a parsed archive file name pattern.
// %d{layout} expands to the period start formatted with a date layout using
// yyyy, yy, MM, dd, HH, mm, ss, SSS tokens; %i expands to the archive index;
// %% is a literal percent sign.
type FilePattern struct {
	raw     string
	parts   []patternPart
	matcher *regexp.Regexp
	capture []partKind
	layouts []string
}

// ParsePattern parses raw into a FilePattern
func ParsePattern(raw string) (*FilePattern, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("rolling: file pattern cannot be empty")
	}
	parts, err := parseParts(raw)
	if err != nil {
		return nil, err
	}
	p := &FilePattern{raw: raw, parts: parts}

	baseParts, err := parseParts(filepath.Base(raw))
	if err != nil {
		return nil, err
	}
	var expr strings.Builder
	expr.WriteString("^")
	for _, part := range baseParts {
		switch part.kind {
		case partLiteral:
			expr.WriteString(regexp.QuoteMeta(part.text))
		case partDate:
			expr.WriteString("(.+?)")
			p.capture = append(p.capture, partDate)
			p.layouts = append(p.layouts, part.text)
		case partIndex:
			expr.WriteString(`(\d+)`)
			p.capture = append(p.capture, partIndex)
			p.layouts = append(p.layouts, "")
		}
	}
	expr.WriteString(`(?:\.gz|\.zst)?$`)
	if p.matcher, err = regexp.Compile(expr.String()); err != nil {
		return nil, fmt.Errorf("rolling: invalid file pattern '%s': %w", raw, err)
	}
	return p, nil
}

func parseParts(raw string) ([]patternPart, error) {
	var parts []patternPart
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, patternPart{kind: partLiteral, text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '%' {
			lit.WriteByte(c)
			continue
		}
		if i+1 >= len(raw) {
			return nil, fmt.Errorf("rolling: dangling '%%' in pattern '%s'", raw)
		}
		switch raw[i+1] {
		case '%':
			lit.WriteByte('%')
			i++
		case 'i':
			flush()
			parts = append(parts, patternPart{kind: partIndex})
			i++
		case 'd':
			flush()
			layout := defaultDateLayout
			i++
			if i+1 < len(raw) && raw[i+1] == '{' {
				end := strings.IndexByte(raw[i+1:], '}')
				if end < 0 {
					return nil, fmt.Errorf("rolling: unterminated date layout in pattern '%s'", raw)
				}
				layout = raw[i+2 : i+1+end]
				i += end + 1
			}
			parts = append(parts, patternPart{kind: partDate, text: goLayout(layout), source: layout})
		default:
			return nil, fmt.Errorf("rolling: unknown conversion '%%%c' in pattern '%s'", raw[i+1], raw)
		}
	}
	flush()
	return parts, nil
}

// goLayout translates date layout tokens into a Go reference-time layout
func goLayout(layout string) string {
	var out strings.Builder
	for i := 0; i < len(layout); {
		c := layout[i]
		n := 1
		for i+n < len(layout) && layout[i+n] == c {
			n++
		}
		switch {
		case c == 'y' && n >= 4:
			out.WriteString("2006")
		case c == 'y':
			out.WriteString("06")
		case c == 'M' && n >= 2:
			out.WriteString("01")
		case c == 'M':
			out.WriteString("1")
		case c == 'd' && n >= 2:
			out.WriteString("02")
		case c == 'd':
			out.WriteString("2")
		case c == 'H':
			out.WriteString("15")
		case c == 'm':
			out.WriteString("04")
		case c == 's':
			out.WriteString("05")
		case c == 'S':
			out.WriteString(strings.Repeat("0", n))
		default:
			out.WriteString(layout[i : i+n])
		}
		i += n
	}
	return out.String()
}

// String returns the raw pattern
func (p *FilePattern) String() string {
	return p.raw
}

// Format expands the pattern for period start t and archive index
func (p *FilePattern) Format(t time.Time, index int) string {
	var sb strings.Builder
	for _, part := range p.parts {
		switch part.kind {
		case partLiteral:
			sb.WriteString(part.text)
		case partDate:
			sb.WriteString(t.Format(part.text))
		case partIndex:
			sb.WriteString(strconv.Itoa(index))
		}
	}
	return sb.String()
}

// HasIndex reports whether the pattern contains %i
func (p *FilePattern) HasIndex() bool {
	return p.has(partIndex)
}

// HasDate reports whether the pattern contains %d
func (p *FilePattern) HasDate() bool {
	return p.has(partDate)
}

func (p *FilePattern) has(kind partKind) bool {
	for _, part := range p.parts {
		if part.kind == kind {
			return true
		}
	}
	return false
}

// Unit returns the finest calendar unit appearing in the date layouts,
// or UnitDay when the pattern has no date
func (p *FilePattern) Unit() Unit {
	var finest Unit
	for _, part := range p.parts {
		if part.kind != partDate {
			continue
		}
		for _, c := range part.source {
			var u Unit
			switch c {
			case 'S', 's':
				u = UnitSecond
			case 'm':
				u = UnitMinute
			case 'H', 'h':
				u = UnitHour
			case 'd':
				u = UnitDay
			case 'M':
				u = UnitMonth
			case 'y':
				u = UnitYear
			}
			if u != 0 && (finest == 0 || u < finest) {
				finest = u
			}
		}
	}
	if finest == 0 {
		return UnitDay
	}
	return finest
}

// Compression returns the compression implied by the pattern suffix
func (p *FilePattern) Compression() Compression {
	return InferCompression(p.raw)
}

// Archive describes an existing file matched against a pattern
type Archive struct {
	Name  string
	Index int
	Time  time.Time
}

// Match parses a base file name produced by this pattern.
// A trailing compression suffix is accepted even when the pattern lacks it.
func (p *FilePattern) Match(name string, loc *time.Location) (Archive, bool) {
	m := p.matcher.FindStringSubmatch(name)
	if m == nil {
		return Archive{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	a := Archive{Name: name}
	for i, kind := range p.capture {
		value := m[i+1]
		switch kind {
		case partIndex:
			idx, err := strconv.Atoi(value)
			if err != nil {
				return Archive{}, false
			}
			a.Index = idx
		case partDate:
			t, err := time.ParseInLocation(p.layouts[i], value, loc)
			if err != nil {
				return Archive{}, false
			}
			a.Time = t
		}
	}
	return a, true
}
