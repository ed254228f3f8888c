// FILE: lixenwraith/logpipe/rolling/strategy.go
package rolling

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Rollover strategy names
const (
	StrategyFixedWindow = "fixed"
	StrategyPattern     = "pattern"
)

// RolloverContext is everything a strategy may look at while planning
type RolloverContext struct {
	ActivePath  string
	ActiveSize  int64
	PeriodStart time.Time
	Now         time.Time
	Location    *time.Location
	FS          FileSystem
}

// ActionKind is a file operation in a rollover plan
type ActionKind int

const (
	ActionRename ActionKind = iota
	ActionDelete
)

// Action is one step of a rollover plan.
// A failed Required action aborts the rotation; other failures are reported only.
type Action struct {
	Kind     ActionKind
	Source   string
	Target   string
	Required bool
}

// String renders the action for status reports
func (a Action) String() string {
	if a.Kind == ActionDelete {
		return "delete " + a.Source
	}
	return "rename " + a.Source + " -> " + a.Target
}

// Plan is the ordered, side-effect-free result of planning a rollover
type Plan struct {
	Actions  []Action
	Archive  string
	Compress []CompressJob
}

// RolloverStrategy computes the rename, delete, and compression plan for a
// rotation. Plan only reads the file system; the Manager executes the result.
type RolloverStrategy interface {
	Plan(rc RolloverContext) (Plan, error)
}

// archiveNames returns the uncompressed and final names for an archive
func archiveNames(p *FilePattern, t time.Time, index int, comp Compression) (raw, final string) {
	formatted := p.Format(t, index)
	if !comp.Enabled() {
		return formatted, formatted
	}
	ext := comp.Ext()
	if strings.HasSuffix(formatted, ext) {
		return strings.TrimSuffix(formatted, ext), formatted
	}
	return formatted, formatted + ext
}

func effectiveCompression(explicit Compression, p *FilePattern) Compression {
	if explicit.Enabled() {
		return explicit
	}
	return p.Compression()
}

// FixedWindow keeps archives numbered Min..Max. On rotation each existing
// archive shifts up by one, the one at Max is deleted, and the active file
// becomes Min.
type FixedWindow struct {
	Pattern     *FilePattern
	Min         int
	Max         int
	Compression Compression
}

// Plan implements RolloverStrategy
func (s FixedWindow) Plan(rc RolloverContext) (Plan, error) {
	if s.Pattern == nil {
		return Plan{}, fmt.Errorf("rolling: fixed window strategy requires a file pattern")
	}
	if !s.Pattern.HasIndex() {
		return Plan{}, fmt.Errorf("rolling: fixed window pattern '%s' must contain %%i", s.Pattern)
	}
	lo, hi := s.Min, s.Max
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	comp := effectiveCompression(s.Compression, s.Pattern)
	names := func(i int) (string, string) {
		return archiveNames(s.Pattern, rc.PeriodStart, i, comp)
	}

	var plan Plan
	if _, last := names(hi); exists(rc.FS, last) {
		plan.Actions = append(plan.Actions, Action{Kind: ActionDelete, Source: last})
	}
	if rawLast, last := names(hi); rawLast != last && exists(rc.FS, rawLast) {
		plan.Actions = append(plan.Actions, Action{Kind: ActionDelete, Source: rawLast})
	}
	for i := hi - 1; i >= lo; i-- {
		raw, final := names(i)
		nextRaw, nextFinal := names(i + 1)
		if exists(rc.FS, final) {
			plan.Actions = append(plan.Actions, Action{Kind: ActionRename, Source: final, Target: nextFinal, Required: true})
		}
		if raw != final && exists(rc.FS, raw) {
			// Left uncompressed by an earlier failed compression
			plan.Actions = append(plan.Actions, Action{Kind: ActionRename, Source: raw, Target: nextRaw, Required: true})
		}
	}

	raw, final := names(lo)
	plan.Actions = append(plan.Actions, Action{Kind: ActionRename, Source: rc.ActivePath, Target: raw, Required: true})
	plan.Archive = raw
	if comp.Enabled() {
		plan.Compress = append(plan.Compress, CompressJob{Source: raw, Target: final, Format: comp})
	}
	return plan, nil
}

// PatternStrategy names archives from the pattern's date and index. When the
// target exists the index (or a numeric suffix if the pattern has no %i) is
// incremented until a free name is found. Optional retention limits delete the
// oldest matching archives.
type PatternStrategy struct {
	Pattern      *FilePattern
	MaxFiles     int
	MaxAge       time.Duration
	MaxTotalSize int64
	Compression  Compression
}

// maxCollisionProbe bounds the search for a free archive name
const maxCollisionProbe = 1 << 16

// Plan implements RolloverStrategy
func (s PatternStrategy) Plan(rc RolloverContext) (Plan, error) {
	if s.Pattern == nil {
		return Plan{}, fmt.Errorf("rolling: pattern strategy requires a file pattern")
	}
	comp := effectiveCompression(s.Compression, s.Pattern)

	raw, final, err := s.freeName(rc, comp)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{Archive: raw}
	plan.Actions = append(plan.Actions, Action{Kind: ActionRename, Source: rc.ActivePath, Target: raw, Required: true})
	if comp.Enabled() {
		plan.Compress = append(plan.Compress, CompressJob{Source: raw, Target: final, Format: comp})
	}

	deletes, err := s.retention(rc, final)
	if err != nil {
		return Plan{}, err
	}
	plan.Actions = append(plan.Actions, deletes...)
	return plan, nil
}

func (s PatternStrategy) freeName(rc RolloverContext, comp Compression) (string, string, error) {
	free := func(raw, final string) bool {
		return raw != rc.ActivePath && !exists(rc.FS, raw) && !exists(rc.FS, final)
	}

	if s.Pattern.HasIndex() {
		first := s.nextIndex(rc, comp)
		for i := first; i <= first+maxCollisionProbe; i++ {
			raw, final := archiveNames(s.Pattern, rc.PeriodStart, i, comp)
			if free(raw, final) {
				return raw, final, nil
			}
		}
		return "", "", fmt.Errorf("rolling: no free archive index for pattern '%s'", s.Pattern)
	}

	raw, final := archiveNames(s.Pattern, rc.PeriodStart, 0, comp)
	if free(raw, final) {
		return raw, final, nil
	}
	for n := 1; n <= maxCollisionProbe; n++ {
		candidate := raw + "." + strconv.Itoa(n)
		candidateFinal := candidate + strings.TrimPrefix(final, raw)
		if free(candidate, candidateFinal) {
			return candidate, candidateFinal, nil
		}
	}
	return "", "", fmt.Errorf("rolling: no free archive name for pattern '%s'", s.Pattern)
}

// nextIndex returns one past the highest index already archived for the
// current period, so indices keep increasing after retention deletes
func (s PatternStrategy) nextIndex(rc RolloverContext, comp Compression) int {
	probe, _ := archiveNames(s.Pattern, rc.PeriodStart, 1, comp)
	entries, err := rc.FS.ReadDir(filepath.Dir(probe))
	if err != nil {
		return 1
	}
	next := 1
	for _, entry := range entries {
		a, ok := s.Pattern.Match(entry.Name(), rc.Location)
		if !ok || a.Index < next {
			continue
		}
		raw, final := archiveNames(s.Pattern, rc.PeriodStart, a.Index, comp)
		if entry.Name() == filepath.Base(raw) || entry.Name() == filepath.Base(final) {
			next = a.Index + 1
		}
	}
	return next
}

type archiveFile struct {
	Archive
	path    string
	size    int64
	modTime time.Time
}

// retention plans deletions of the oldest archives beyond the configured limits.
// newArchive is the name the current rotation is about to create.
func (s PatternStrategy) retention(rc RolloverContext, newArchive string) ([]Action, error) {
	if s.MaxFiles <= 0 && s.MaxAge <= 0 && s.MaxTotalSize <= 0 {
		return nil, nil
	}

	dir := filepath.Dir(newArchive)
	entries, err := rc.FS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("rolling: failed to list archive directory '%s': %w", dir, err)
	}

	activeAbs, _ := filepath.Abs(rc.ActivePath)
	var archives []archiveFile
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if abs, _ := filepath.Abs(path); abs == activeAbs {
			continue
		}
		a, ok := s.Pattern.Match(entry.Name(), rc.Location)
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		archives = append(archives, archiveFile{Archive: a, path: path, size: info.Size(), modTime: info.ModTime()})
	}

	// Newest first
	sort.Slice(archives, func(i, j int) bool {
		if !archives[i].Time.Equal(archives[j].Time) {
			return archives[i].Time.After(archives[j].Time)
		}
		if archives[i].Index != archives[j].Index {
			return archives[i].Index > archives[j].Index
		}
		return archives[i].modTime.After(archives[j].modTime)
	})

	var deletes []Action
	kept := 1 // the archive being created
	total := rc.ActiveSize
	for _, a := range archives {
		expired := s.MaxAge > 0 && rc.Now.Sub(a.modTime) > s.MaxAge
		overCount := s.MaxFiles > 0 && kept >= s.MaxFiles
		overSize := s.MaxTotalSize > 0 && total+a.size > s.MaxTotalSize
		if expired || overCount || overSize {
			deletes = append(deletes, Action{Kind: ActionDelete, Source: a.path})
			continue
		}
		kept++
		total += a.size
	}
	return deletes, nil
}
