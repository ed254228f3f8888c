// FILE: lixenwraith/logpipe/heartbeat.go
package logpipe

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// handleHeartbeat publishes heartbeat statistics on the status channel.
// Heartbeats never pass through the event queue, so a saturated pipeline
// still reports its own health.
func (l *Logger) handleHeartbeat() {
	c := l.getConfig()
	heartbeatLevel := c.HeartbeatLevel

	if heartbeatLevel >= 1 {
		l.logProcHeartbeat()
	}

	if heartbeatLevel >= 2 {
		l.logDiskHeartbeat()
	}

	if heartbeatLevel >= 3 {
		l.logSysHeartbeat()
	}
}

// logProcHeartbeat reports pipeline statistics
func (l *Logger) logProcHeartbeat() {
	sequence := l.state.HeartbeatSequence.Add(1)
	stats := l.Stats()

	procArgs := []any{
		"type", "proc",
		"sequence", sequence,
		"uptime_hours", fmt.Sprintf("%.2f", stats.Uptime.Hours()),
		"submitted", stats.Submitted,
		"processed", stats.Processed,
		"discarded", stats.Discarded,
		"dropped", stats.Dropped,
		"append_failures", stats.AppendFailures,
		"queue_len", stats.QueueLen,
		"queue_capacity", stats.QueueCapacity,
	}

	if stats.Lost > 0 {
		procArgs = append(procArgs, "lost", stats.Lost)
	}
	if stats.Stragglers > 0 {
		procArgs = append(procArgs, "stragglers", stats.Stragglers)
	}

	l.status.Info(sourceHeartbeat, "proc", procArgs...)
}

// logDiskHeartbeat reports file sink statistics, one entry per file appender
func (l *Logger) logDiskHeartbeat() {
	sequence := l.state.HeartbeatSequence.Load()

	for _, file := range l.fileAppenders() {
		m := file.Manager()
		if m == nil {
			continue
		}

		path := m.Path()
		dir := filepath.Dir(path)
		prefix := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

		diskArgs := []any{
			"type", "disk",
			"sequence", sequence,
			"appender", file.Name(),
			"path", path,
			"current_file_size_mb", fmt.Sprintf("%.2f", float64(m.Size())/(1024*1024)),
			"rotations", m.Generation(),
		}

		// Default error values
		totalSizeMB := float64(-1.0)
		fileCount := -1
		if size, count, err := getLogDirStats(dir, prefix); err == nil {
			totalSizeMB = float64(size) / (1024 * 1024)
			fileCount = count
		} else {
			l.status.Warn(sourceHeartbeat, "heartbeat failed to read log directory", err)
		}
		diskArgs = append(diskArgs,
			"total_log_size_mb", fmt.Sprintf("%.2f", totalSizeMB),
			"log_file_count", fileCount,
		)

		if freeSpace, err := getDiskFreeSpace(dir); err == nil {
			diskArgs = append(diskArgs, "disk_free_mb", fmt.Sprintf("%.2f", float64(freeSpace)/(1024*1024)))
		}

		l.status.Info(sourceHeartbeat, "disk", diskArgs...)
	}
}

// logSysHeartbeat reports runtime statistics
func (l *Logger) logSysHeartbeat() {
	sequence := l.state.HeartbeatSequence.Load()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	sysArgs := []any{
		"type", "sys",
		"sequence", sequence,
		"alloc_mb", fmt.Sprintf("%.2f", float64(memStats.Alloc)/(1000*1000)),
		"sys_mb", fmt.Sprintf("%.2f", float64(memStats.Sys)/(1000*1000)),
		"num_gc", memStats.NumGC,
		"num_goroutine", runtime.NumGoroutine(),
		"last_gc", time.Unix(0, int64(memStats.LastGC)).Format(time.RFC3339),
	}

	l.status.Info(sourceHeartbeat, "sys", sysArgs...)
}
