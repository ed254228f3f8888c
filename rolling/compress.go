// FILE: lixenwraith/logpipe/rolling/compress.go
package rolling

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/panjf2000/ants/v2"
)

// Compression selects the archive compression format
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// ParseCompression validates a compression name; empty means none
func ParseCompression(s string) (Compression, error) {
	switch Compression(strings.ToLower(strings.TrimSpace(s))) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionGzip, "gz":
		return CompressionGzip, nil
	case CompressionZstd, "zst":
		return CompressionZstd, nil
	default:
		return "", fmt.Errorf("rolling: unknown compression '%s' (use none, gzip, or zstd)", s)
	}
}

// Ext returns the file suffix including the dot
func (c Compression) Ext() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

// Enabled reports whether c compresses
func (c Compression) Enabled() bool {
	return c == CompressionGzip || c == CompressionZstd
}

// InferCompression derives the compression from a pattern or file suffix
func InferCompression(name string) Compression {
	switch {
	case strings.HasSuffix(name, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(name, ".zst"):
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// CompressJob is one archive to compress after a rotation
type CompressJob struct {
	Source string
	Target string
	Format Compression
}

// Compressor runs compression jobs on a bounded worker pool. Submit never
// blocks; a rotation waits only for jobs reading an archive it moves.
type Compressor struct {
	pool *ants.Pool
	fs   FileSystem

	mu      sync.Mutex
	pending map[string]chan struct{} // keyed by source path

	onDone func(job CompressJob, elapsed time.Duration, err error)
}

// NewCompressor creates a compressor with workers goroutines.
// onDone is called from the worker after each job.
func NewCompressor(workers int, fs FileSystem, onDone func(job CompressJob, elapsed time.Duration, err error)) (*Compressor, error) {
	if workers <= 0 {
		workers = 1
	}
	if fs == nil {
		fs = OSFileSystem{}
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("rolling: failed to create compression pool: %w", err)
	}
	return &Compressor{
		pool:    pool,
		fs:      fs,
		pending: make(map[string]chan struct{}),
		onDone:  onDone,
	}, nil
}

// Submit schedules job. A job for a source already pending is ignored.
func (c *Compressor) Submit(job CompressJob) error {
	c.mu.Lock()
	if _, busy := c.pending[job.Source]; busy {
		c.mu.Unlock()
		return nil
	}
	done := make(chan struct{})
	c.pending[job.Source] = done
	c.mu.Unlock()

	task := func() {
		start := time.Now()
		err := compressFile(c.fs, job)
		c.finish(job, done)
		if c.onDone != nil {
			c.onDone(job, time.Since(start), err)
		}
	}

	// The pool blocks while every worker is busy; queue behind it off the caller
	go func() {
		if err := c.pool.Submit(task); err != nil {
			c.finish(job, done)
			if c.onDone != nil {
				c.onDone(job, 0, fmt.Errorf("rolling: failed to schedule compression of '%s': %w", job.Source, err))
			}
		}
	}()
	return nil
}

func (c *Compressor) finish(job CompressJob, done chan struct{}) {
	c.mu.Lock()
	delete(c.pending, job.Source)
	c.mu.Unlock()
	close(done)
}

// Pending returns the number of scheduled but unfinished jobs
func (c *Compressor) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Wait blocks until every scheduled job finished or timeout elapsed.
// It reports whether all jobs finished. A non-positive timeout waits forever.
func (c *Compressor) Wait(timeout time.Duration) bool {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	for {
		c.mu.Lock()
		var next chan struct{}
		for _, done := range c.pending {
			next = done
			break
		}
		c.mu.Unlock()
		if next == nil {
			return true
		}
		select {
		case <-next:
		case <-expired:
			return false
		}
	}
}

// Busy reports whether a job for source is scheduled or running
func (c *Compressor) Busy(source string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[source]
	return ok
}

// WaitFor blocks until the jobs for sources finished or timeout elapsed.
// It reports whether they all finished. A non-positive timeout waits forever.
func (c *Compressor) WaitFor(timeout time.Duration, sources ...string) bool {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	for _, source := range sources {
		c.mu.Lock()
		done, ok := c.pending[source]
		c.mu.Unlock()
		if !ok {
			continue
		}
		select {
		case <-done:
		case <-expired:
			return false
		}
	}
	return true
}

// Close waits for running jobs and releases the pool
func (c *Compressor) Close(timeout time.Duration) error {
	finished := c.Wait(timeout)
	c.pool.Release()
	if !finished {
		return fmt.Errorf("rolling: %d compression jobs still running after %v", c.Pending(), timeout)
	}
	return nil
}

// compressFile writes job.Target through a temporary file and removes the
// source only after the compressed copy is durable
func compressFile(fs FileSystem, job CompressJob) (err error) {
	src, err := fs.OpenFile(job.Source, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open '%s' for compression: %w", job.Source, err)
	}
	defer src.Close()

	tmpPath := job.Target + ".tmp"
	dst, err := fs.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", tmpPath, err)
	}
	defer func() {
		if err != nil {
			_ = dst.Close()
			_ = fs.Remove(tmpPath)
		}
	}()

	var w io.WriteCloser
	switch job.Format {
	case CompressionZstd:
		enc, encErr := zstd.NewWriter(dst)
		if encErr != nil {
			return fmt.Errorf("failed to create zstd encoder: %w", encErr)
		}
		w = enc
	default:
		w = gzip.NewWriter(dst)
	}

	if _, err = io.Copy(w, src); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to compress '%s': %w", job.Source, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to finish '%s': %w", tmpPath, err)
	}
	if err = dst.Sync(); err != nil {
		return fmt.Errorf("failed to sync '%s': %w", tmpPath, err)
	}
	if err = dst.Close(); err != nil {
		return fmt.Errorf("failed to close '%s': %w", tmpPath, err)
	}
	if err = fs.Rename(tmpPath, job.Target); err != nil {
		_ = fs.Remove(tmpPath)
		return fmt.Errorf("failed to rename '%s': %w", tmpPath, err)
	}
	if err := fs.Remove(job.Source); err != nil {
		return fmt.Errorf("compressed '%s' but failed to remove source: %w", job.Source, err)
	}
	return nil
}
