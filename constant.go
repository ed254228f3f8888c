// FILE: lixenwraith/logpipe/constant.go
package logpipe

import (
	"time"

	"github.com/lixenwraith/logpipe/event"
	"github.com/lixenwraith/logpipe/queue"
)

// Log level constants
const (
	LevelTrace = int64(event.LevelTrace)
	LevelDebug = int64(event.LevelDebug)
	LevelInfo  = int64(event.LevelInfo)
	LevelWarn  = int64(event.LevelWarn)
	LevelError = int64(event.LevelError)
	LevelFatal = int64(event.LevelFatal)
)

// Record flags for controlling output structure
const (
	FlagRaw           = event.FlagRaw
	FlagShowTimestamp = event.FlagShowTimestamp
	FlagShowLevel     = event.FlagShowLevel
	FlagDefault       = event.FlagDefault
)

// Errors returned by Submit
var (
	ErrQueueTimeout   = queue.ErrTimeout
	ErrWouldDeadlock  = queue.ErrWouldDeadlock
	ErrQueueClosed    = queue.ErrClosed
	ErrNotStarted     = fmtErrorf("logger not started")
	ErrNotInitialized = fmtErrorf("logger not initialized, call ApplyConfig first")

	errDispatcherStopped = fmtErrorf("dispatcher stopped before the flush completed")
)

// Size multiplier for KB
const sizeMultiplier = 1024

// Timers
const (
	// Minimum wait time used throughout the package
	minWaitTime = 10 * time.Millisecond
	// Status history retained by the status channel
	statusHistory = 256
)

// Status sources
const (
	sourceDispatcher  = "dispatcher"
	sourceReliability = "reliability"
	sourceProducer    = "producer"
	sourceHeartbeat   = "heartbeat"
	sourceConfig      = "config"
	sourceStorage     = "storage"
)
