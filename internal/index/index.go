// Package index maintains the in-memory, per-root document index: the
// parsed Section set for a corpus root plus the fingerprint and expiry
// state needed to decide when a rescan is due.
package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/docintel/internal/domain/docmodel"
	"github.com/turtacn/docintel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/docintel/internal/parser"
)

// DefaultTTL is how long a root's index is considered fresh absent a
// fingerprint change.
const DefaultTTL = 5 * time.Minute

// SweepInterval is how often the background sweep goroutine checks every
// registered root for staleness.
const SweepInterval = 60 * time.Second

// entry holds one root's cached index state.
type entry struct {
	mu          sync.RWMutex
	sections    []docmodel.Section
	fingerprint string
	expiresAt   time.Time
	ttl         time.Duration
}

// Index is a process-wide, root-keyed cache of parsed Sections. Each root is
// guarded by its own lock so concurrent queries against different corpora
// never contend with each other.
type Index struct {
	mu      sync.RWMutex
	entries map[string]*entry
	log     logging.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New constructs an Index and starts its background staleness sweep. Call
// Close to stop the sweep goroutine.
func New(log logging.Logger) *Index {
	if log == nil {
		log = logging.NewNopLogger()
	}
	idx := &Index{
		entries: make(map[string]*entry),
		log:     log,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go idx.sweepLoop()
	return idx
}

// Close stops the background sweep goroutine. Safe to call more than once.
func (idx *Index) Close() {
	idx.stopOnce.Do(func() { close(idx.stopCh) })
	<-idx.doneCh
}

func (idx *Index) sweepLoop() {
	defer close(idx.doneCh)
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-idx.stopCh:
			return
		case <-ticker.C:
			idx.sweep()
		}
	}
}

// sweep refreshes every registered root whose fingerprint no longer matches
// what's on disk, regardless of whether its TTL has elapsed — a change on
// disk always wins.
func (idx *Index) sweep() {
	idx.mu.RLock()
	roots := make([]string, 0, len(idx.entries))
	for root := range idx.entries {
		roots = append(roots, root)
	}
	idx.mu.RUnlock()

	for _, root := range roots {
		if _, err := idx.Get(context.Background(), root); err != nil {
			idx.log.Warn("index sweep failed", logging.String("root", root), logging.Err(err))
		}
	}
}

// Get returns the Sections for root, reparsing when the cached entry has
// expired or its fingerprint no longer matches the filesystem.
func (idx *Index) Get(ctx context.Context, root string) ([]docmodel.Section, error) {
	e := idx.entryFor(root)

	e.mu.RLock()
	fresh := time.Now().Before(e.expiresAt) && e.sections != nil
	e.mu.RUnlock()

	fp, fpErr := Fingerprint(root)
	if fresh && fpErr == nil {
		e.mu.RLock()
		unchanged := e.fingerprint == fp
		sections := e.sections
		e.mu.RUnlock()
		if unchanged {
			return sections, nil
		}
	}

	return idx.refresh(root, e)
}

func (idx *Index) refresh(root string, e *entry) ([]docmodel.Section, error) {
	sections, err := parser.Parse(root)
	if err != nil {
		return nil, err
	}
	fp, err := Fingerprint(root)
	if err != nil {
		fp = ""
	}

	e.mu.Lock()
	e.sections = sections
	e.fingerprint = fp
	e.expiresAt = time.Now().Add(e.ttl)
	e.mu.Unlock()

	return sections, nil
}

func (idx *Index) entryFor(root string) *entry {
	idx.mu.RLock()
	e, ok := idx.entries[root]
	idx.mu.RUnlock()
	if ok {
		return e
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if e, ok := idx.entries[root]; ok {
		return e
	}
	e = &entry{ttl: DefaultTTL}
	idx.entries[root] = e
	return e
}

// Invalidate forces the next Get for root to reparse regardless of TTL or
// fingerprint.
func (idx *Index) Invalidate(root string) {
	idx.mu.RLock()
	e, ok := idx.entries[root]
	idx.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.expiresAt = time.Time{}
	e.mu.Unlock()
}

// InvalidateAll forces every registered root to reparse on its next Get.
func (idx *Index) InvalidateAll() {
	idx.mu.RLock()
	roots := make([]*entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		roots = append(roots, e)
	}
	idx.mu.RUnlock()
	for _, e := range roots {
		e.mu.Lock()
		e.expiresAt = time.Time{}
		e.mu.Unlock()
	}
}

// Stats describes the cached state of one root, for diagnostics/metrics.
type Stats struct {
	Root          string    `json:"root"`
	SectionCount  int       `json:"section_count"`
	Fingerprint   string    `json:"fingerprint"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Stats returns a snapshot of every registered root's cache state.
func (idx *Index) Stats() []Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]Stats, 0, len(idx.entries))
	for root, e := range idx.entries {
		e.mu.RLock()
		out = append(out, Stats{
			Root:         root,
			SectionCount: len(e.sections),
			Fingerprint:  e.fingerprint,
			ExpiresAt:    e.expiresAt,
		})
		e.mu.RUnlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Root < out[j].Root })
	return out
}

// Fingerprint computes a SHA-256 digest over exactly the file set C1's walk
// of root would select (honoring .docignore, skipped dirs, the filename
// convention, and the legacy mnt/project preference), sorted by absolute
// path, each contributing "<path>\x00<mtimeMillis>\x00", with the root path
// itself appended last. Any change to file set, path, or modification time
// changes the digest.
func Fingerprint(root string) (string, error) {
	type fileStamp struct {
		path string
		mtimeMs int64
	}

	paths, err := parser.SelectedPaths(root)
	if err != nil {
		return "", err
	}

	var stamps []fileStamp
	for _, path := range paths {
		info, statErr := os.Stat(path)
		if statErr != nil {
			// Unreadable entries are skipped, not fatal, matching the
			// parser's own tolerance for partial directory trees.
			continue
		}
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			abs = path
		}
		stamps = append(stamps, fileStamp{path: abs, mtimeMs: info.ModTime().UnixMilli()})
	}

	sort.Slice(stamps, func(i, j int) bool { return stamps[i].path < stamps[j].path })

	h := sha256.New()
	for _, s := range stamps {
		h.Write([]byte(s.path))
		h.Write([]byte{0})
		h.Write([]byte(itoa(s.mtimeMs)))
		h.Write([]byte{0})
	}
	if abs, err := filepath.Abs(root); err == nil {
		h.Write([]byte(abs))
	} else {
		h.Write([]byte(root))
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
