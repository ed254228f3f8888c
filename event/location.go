// FILE: lixenwraith/logpipe/event/location.go
package event

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"unicode"
)

// Location is the call site of a logging call
type Location struct {
	Function string
	File     string
	Line     int
}

// String renders the location as "file:line function"
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	return fmt.Sprintf("%s:%d %s", filepath.Base(l.File), l.Line, shortFuncName(l.Function))
}

// CaptureLocation returns the call site skip frames above the caller
func CaptureLocation(skip int) *Location {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return nil
	}
	loc := &Location{File: file, Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		loc.Function = fn.Name()
	}
	return loc
}

// CaptureTrace returns a function call trace string, caller first
func CaptureTrace(depth int64, skip int) string {
	if depth <= 0 || depth > 10 {
		return ""
	}
	pc := make([]uintptr, int(depth)+skip)
	n := runtime.Callers(skip+1, pc) // +1 because Callers includes its own frame
	if n == 0 {
		return "(unknown)"
	}
	frames := runtime.CallersFrames(pc[:n])
	var trace []string
	for count := 0; count < int(depth); count++ {
		frame, more := frames.Next()
		trace = append(trace, shortFuncName(frame.Function))
		if !more {
			break
		}
	}
	if len(trace) == 0 {
		return "(unknown)"
	}
	for i, j := 0, len(trace)-1; i < j; i, j = i+1, j-1 {
		trace[i], trace[j] = trace[j], trace[i]
	}
	return strings.Join(trace, " -> ")
}

// shortFuncName strips the package path and names anonymous closures
func shortFuncName(fullName string) string {
	funcName := filepath.Base(fullName)
	parts := strings.Split(funcName, ".")
	lastPart := parts[len(parts)-1]
	if strings.HasPrefix(lastPart, "func") && len(lastPart) > 4 {
		for _, r := range lastPart[4:] {
			if !unicode.IsDigit(r) {
				return lastPart
			}
		}
		return fmt.Sprintf("(anonymous in %s)", strings.Join(parts[:len(parts)-1], "."))
	}
	return lastPart
}
