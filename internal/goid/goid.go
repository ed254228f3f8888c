// FILE: lixenwraith/logpipe/internal/goid/goid.go
// Package goid reads the runtime identifier of the calling goroutine.
package goid

import (
	"github.com/petermattis/goid"
)

// ID returns the id of the calling goroutine
func ID() uint64 {
	return uint64(goid.Get())
}
