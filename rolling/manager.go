// FILE: lixenwraith/logpipe/rolling/manager.go
package rolling

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
	"go.uber.org/multierr"

	"github.com/lixenwraith/logpipe/metrics"
	"github.com/lixenwraith/logpipe/status"
)

// ErrClosed is returned by writes to a closed Manager
var ErrClosed = errors.New("rolling: manager is closed")

const (
	statusSource         = "rolling"
	defaultFilePerm      = 0644
	defaultDirPerm       = 0755
	defaultRetryInterval = time.Second
	defaultCompressWait  = 10 * time.Second
)

// Options configures a Manager
type Options struct {
	// Append keeps existing content; otherwise the file is truncated on open
	Append bool
	// BufferSize enables a write buffer of that many bytes; 0 writes through
	BufferSize int

	Policy   TriggeringPolicy
	Strategy RolloverStrategy

	// Clock defaults to a cached wall clock
	Clock    func() time.Time
	Location *time.Location
	FS       FileSystem

	// Compressor runs archive compression; one is created on demand when nil
	Compressor *Compressor
	// CompressWait bounds how long a rotation waits for earlier compressions
	CompressWait time.Duration
	// RetryInterval suppresses new rotation attempts after a failed one
	RetryInterval time.Duration

	Status   *status.Channel
	Observer metrics.Observer
	FilePerm os.FileMode
}

// Manager owns an active log file and rotates it when its triggering policy
// fires. All methods are safe for concurrent use; writes and rotations are
// serialized so every byte lands in exactly one file.
type Manager struct {
	mu   sync.Mutex
	path string
	opts Options

	file File
	w    *bufio.Writer

	size        int64
	periodStart time.Time
	generation  uint64
	fresh       bool
	retryAfter  time.Time
	closed      bool

	compressor    *Compressor
	ownCompressor bool
	observer      metrics.Observer
}

// Open opens or creates the file at path and returns its manager
func Open(path string, opts Options) (*Manager, error) {
	if path == "" {
		return nil, fmt.Errorf("rolling: file path cannot be empty")
	}
	if opts.FS == nil {
		opts.FS = OSFileSystem{}
	}
	if opts.Clock == nil {
		cache := timecache.DefaultCache()
		opts.Clock = cache.CachedTime
	}
	if opts.FilePerm == 0 {
		opts.FilePerm = defaultFilePerm
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	if opts.CompressWait <= 0 {
		opts.CompressWait = defaultCompressWait
	}

	m := &Manager{
		path:       path,
		opts:       opts,
		compressor: opts.Compressor,
		observer:   metrics.OrNop(opts.Observer),
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := opts.FS.MkdirAll(dir, defaultDirPerm); err != nil {
			return nil, fmt.Errorf("rolling: failed to create directory '%s': %w", dir, err)
		}
	}
	if err := m.openLocked(opts.Append); err != nil {
		return nil, err
	}

	now := m.now()
	m.periodStart = now
	if opts.Append && m.size > 0 {
		m.fresh = true
		if info, err := m.file.Stat(); err == nil {
			m.periodStart = info.ModTime().In(now.Location())
		}
	}
	return m, nil
}

func (m *Manager) now() time.Time {
	t := m.opts.Clock()
	if m.opts.Location != nil {
		t = t.In(m.opts.Location)
	}
	return t
}

// openLocked opens the active path, appending or truncating
func (m *Manager) openLocked(appendMode bool) error {
	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := m.opts.FS.OpenFile(m.path, flags, m.opts.FilePerm)
	if err != nil {
		return fmt.Errorf("rolling: failed to open '%s': %w", m.path, err)
	}

	var size int64
	if appendMode {
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("rolling: failed to stat '%s': %w", m.path, err)
		}
		size = info.Size()
	}

	m.file = f
	m.size = size
	if m.opts.BufferSize > 0 {
		m.w = bufio.NewWriterSize(f, m.opts.BufferSize)
	} else {
		m.w = nil
	}
	return nil
}

// closeLocked flushes, syncs and closes the active file
func (m *Manager) closeLocked() error {
	if m.file == nil {
		return nil
	}
	var err error
	if m.w != nil {
		err = multierr.Append(err, m.w.Flush())
	}
	err = multierr.Append(err, m.file.Sync())
	err = multierr.Append(err, m.file.Close())
	m.file = nil
	m.w = nil
	return err
}

func (m *Manager) stateLocked() State {
	return State{
		Path:        m.path,
		Size:        m.size,
		PeriodStart: m.periodStart,
		Generation:  m.generation,
		Fresh:       m.fresh,
	}
}

// Write appends p to the active file, rotating first when the policy
// triggers for the pending write. A failed rotation is reported and the
// bytes still go to the active file.
func (m *Manager) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}

	now := m.now()
	if m.opts.Policy != nil && !now.Before(m.retryAfter) &&
		m.opts.Policy.IsTriggering(m.stateLocked(), int64(len(p)), now) {
		if m.size > 0 {
			_ = m.rotateLocked(now)
		} else {
			// Nothing to archive; start the new period in place
			m.periodStart = now
			m.fresh = false
		}
	}

	if m.file == nil {
		if err := m.openLocked(true); err != nil {
			m.opts.Status.Error(statusSource, "active file unavailable", err, "path", m.path)
			return 0, err
		}
	}

	var n int
	var err error
	if m.w != nil {
		n, err = m.w.Write(p)
	} else {
		n, err = m.file.Write(p)
	}
	m.size += int64(n)
	m.fresh = false
	if err != nil {
		return n, fmt.Errorf("rolling: write to '%s' failed: %w", m.path, err)
	}
	return n, nil
}

// Rollover forces a rotation regardless of the triggering policy.
// An empty file is not rotated.
func (m *Manager) Rollover() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.size == 0 {
		return nil
	}
	return m.rotateLocked(m.now())
}

// rotateLocked closes the active file, executes the strategy's plan, opens a
// fresh file and schedules compression. On failure the pre-rotation file is
// reopened in append mode with its counters intact.
func (m *Manager) rotateLocked(now time.Time) error {
	start := time.Now()
	if m.opts.Strategy == nil {
		return m.failLocked(start, now, "plan", fmt.Errorf("no rollover strategy configured"))
	}

	if err := m.closeLocked(); err != nil {
		m.opts.Status.Warn(statusSource, "failed to close active file before rollover", err, "path", m.path)
	}
	plan, err := m.planLocked(now)
	if err != nil {
		return m.failLocked(start, now, "plan", err)
	}
	// Only archives this plan moves or deletes need their compression finished
	if busy := m.busySources(plan); len(busy) > 0 {
		if !m.compressor.WaitFor(m.opts.CompressWait, busy...) {
			m.opts.Status.Warn(statusSource, "rollover proceeding with compressions still running", nil,
				"pending", len(busy))
		}
		if plan, err = m.planLocked(now); err != nil {
			return m.failLocked(start, now, "plan", err)
		}
	}

	for _, action := range plan.Actions {
		if err := m.apply(action); err != nil {
			if action.Required {
				return m.failLocked(start, now, action.String(), err)
			}
			m.opts.Status.Warn(statusSource, "retention action failed", err, "action", action.String())
		}
	}

	if err := m.openLocked(false); err != nil {
		// The archive is already in place; the next write retries the open
		m.opts.Status.Error(statusSource, "failed to open new active file", err, "path", m.path)
	}
	m.size = 0
	m.periodStart = now
	m.generation++
	m.fresh = false
	m.retryAfter = time.Time{}

	for _, job := range plan.Compress {
		if err := m.submitCompression(job); err != nil {
			m.opts.Status.Warn(statusSource, "archive left uncompressed", err, "archive", job.Source)
		}
	}

	elapsed := time.Since(start)
	m.observer.Rotation(m.path, elapsed, nil)
	m.opts.Status.Info(statusSource, "rolled over", "path", m.path, "archive", plan.Archive,
		"generation", m.generation)
	return nil
}

func (m *Manager) planLocked(now time.Time) (Plan, error) {
	return m.opts.Strategy.Plan(RolloverContext{
		ActivePath:  m.path,
		ActiveSize:  m.size,
		PeriodStart: m.periodStart,
		Now:         now,
		Location:    m.opts.Location,
		FS:          m.opts.FS,
	})
}

// busySources returns the plan's files that a running compression still reads
func (m *Manager) busySources(plan Plan) []string {
	if m.compressor == nil {
		return nil
	}
	var busy []string
	for _, a := range plan.Actions {
		if m.compressor.Busy(a.Source) {
			busy = append(busy, a.Source)
		}
		if a.Target != "" && m.compressor.Busy(a.Target) {
			busy = append(busy, a.Target)
		}
	}
	return busy
}

// failLocked reports a failed rotation and restores the active file
func (m *Manager) failLocked(start, now time.Time, stage string, cause error) error {
	err := fmt.Errorf("rolling: rollover of '%s' failed at %s: %w", m.path, stage, cause)
	m.retryAfter = now.Add(m.opts.RetryInterval)
	m.observer.Rotation(m.path, time.Since(start), err)
	m.opts.Status.Error(statusSource, "rollover failed", err, "path", m.path)

	if m.file != nil {
		return err
	}
	if openErr := m.openLocked(true); openErr != nil {
		m.opts.Status.Error(statusSource, "failed to reopen active file", openErr, "path", m.path)
		return multierr.Append(err, openErr)
	}
	return err
}

func (m *Manager) apply(a Action) error {
	switch a.Kind {
	case ActionDelete:
		if err := m.opts.FS.Remove(a.Source); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	default:
		if dir := filepath.Dir(a.Target); dir != "" {
			if err := m.opts.FS.MkdirAll(dir, defaultDirPerm); err != nil {
				return err
			}
		}
		return m.opts.FS.Rename(a.Source, a.Target)
	}
}

func (m *Manager) submitCompression(job CompressJob) error {
	if m.compressor == nil {
		c, err := NewCompressor(1, m.opts.FS, m.compressionDone)
		if err != nil {
			return err
		}
		m.compressor = c
		m.ownCompressor = true
	}
	return m.compressor.Submit(job)
}

func (m *Manager) compressionDone(job CompressJob, elapsed time.Duration, err error) {
	if err != nil {
		m.opts.Status.Warn(statusSource, "compression failed", err, "archive", job.Source)
		return
	}
	m.opts.Status.Info(statusSource, "archive compressed", "archive", job.Target, "elapsed", elapsed)
}

// Flush writes buffered bytes to the file
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.w == nil {
		return nil
	}
	return m.w.Flush()
}

// Sync flushes and commits the file to stable storage
func (m *Manager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.file == nil {
		return nil
	}
	var err error
	if m.w != nil {
		err = m.w.Flush()
	}
	return multierr.Append(err, m.file.Sync())
}

// Close flushes and closes the active file and waits for compressions
// started by this manager
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	err := m.closeLocked()
	if m.ownCompressor {
		err = multierr.Append(err, m.compressor.Close(m.opts.CompressWait))
	}
	return err
}

// WaitCompressions blocks until scheduled compressions finished or timeout elapsed
func (m *Manager) WaitCompressions(timeout time.Duration) bool {
	m.mu.Lock()
	c := m.compressor
	m.mu.Unlock()
	if c == nil {
		return true
	}
	return c.Wait(timeout)
}

// Update replaces the triggering policy and rollover strategy in place
func (m *Manager) Update(policy TriggeringPolicy, strategy RolloverStrategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts.Policy = policy
	m.opts.Strategy = strategy
	m.retryAfter = time.Time{}
}

// State returns a snapshot of the manager counters
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Path returns the active file path
func (m *Manager) Path() string {
	return m.path
}

// Size returns the bytes written to the active file, buffered bytes included
func (m *Manager) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size
}

// Generation returns the number of completed rotations
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}
