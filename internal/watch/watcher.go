// Package watch observes a corpus root for Markdown changes and turns raw
// filesystem events into debounced, typed notifications: doc_indexed,
// doc_updated, doc_removed. It owns no caches itself — invalidation and
// reindexing are delegated to an Invalidator and an optional callback.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/docintel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/docintel/internal/parser"
)

// DefaultDebounce is the per-path quiet period before a change is reported.
const DefaultDebounce = 1000 * time.Millisecond

// defaultSkipDirs are directory basenames never watched, independent of any
// .docignore rules the corpus root may carry.
var defaultSkipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"build":        true,
}

// EventType identifies the kind of change a debounce cycle settled on.
type EventType string

const (
	EventIndexed EventType = "doc_indexed"
	EventUpdated EventType = "doc_updated"
	EventRemoved EventType = "doc_removed"
	EventError   EventType = "error"
)

// Event is emitted once per settled debounce cycle for a single path.
type Event struct {
	Type EventType
	Root string
	Path string
	Err  error
	At   time.Time
}

// Invalidator is the subset of the doc index (C2) the watcher drives.
// Invalidating C2 cascades to the fact index (C11) through C12's own
// listeners; the watcher itself knows nothing about that chain.
type Invalidator interface {
	Invalidate(root string)
}

// Sink receives settled watcher events. It may be a Kafka-backed publisher,
// a test fake, or nil.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Watcher monitors one corpus root and reports debounced .md changes.
type Watcher struct {
	root      string
	debounce  time.Duration
	invalidator Invalidator
	onReindex func(ctx context.Context, event Event)
	sink      Sink
	logger    logging.Logger

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// Option configures a Watcher at construction time.
type Option func(*Watcher)

// WithDebounce overrides the per-path debounce interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithOnReindex registers a callback invoked once a change settles, before
// the corresponding event is emitted to the sink. The watcher calls it
// synchronously on its event loop and waits for it to return.
func WithOnReindex(fn func(ctx context.Context, event Event)) Option {
	return func(w *Watcher) { w.onReindex = fn }
}

// WithSink registers where settled events are published.
func WithSink(sink Sink) Option {
	return func(w *Watcher) { w.sink = sink }
}

// WithLogger overrides the default no-op logger.
func WithLogger(log logging.Logger) Option {
	return func(w *Watcher) { w.logger = log }
}

// New constructs a Watcher for root and starts recursively watching it. The
// returned Watcher is not yet running background processing; call Start.
func New(root string, invalidator Invalidator, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:        root,
		debounce:    DefaultDebounce,
		invalidator: invalidator,
		logger:      logging.NewNopLogger(),
		fsw:         fsw,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := addRecursive(fsw, root); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// Start begins the watcher's event loop in a background goroutine. The
// watcher runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
}

// Stop cancels every pending debounce timer and releases the underlying
// filesystem watcher. Safe to call once after Start.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	_ = w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	timers := make(map[string]*time.Timer)
	pending := make(map[string]EventType)
	fired := make(chan string)

	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isMarkdown(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = addRecursive(w.fsw, ev.Name)
					continue
				}
			}

			typ := classify(ev)
			pending[ev.Name] = typ
			w.resetTimer(timers, fired, ev.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", logging.Err(err))
			w.publish(ctx, Event{Type: EventError, Root: w.root, Err: err, At: w.now()})

		case path := <-fired:
			delete(timers, path)
			typ, ok := pending[path]
			if !ok {
				continue
			}
			delete(pending, path)
			w.settle(ctx, path, typ)
		}
	}
}

func (w *Watcher) resetTimer(timers map[string]*time.Timer, fired chan<- string, path string) {
	if t, ok := timers[path]; ok {
		t.Stop()
	}
	timers[path] = time.AfterFunc(w.debounce, func() {
		select {
		case fired <- path:
		case <-time.After(w.debounce * 10):
			// loop has exited; drop the notification.
		}
	})
}

func (w *Watcher) settle(ctx context.Context, path string, typ EventType) {
	if w.invalidator != nil {
		w.invalidator.Invalidate(w.root)
	}

	event := Event{Type: typ, Root: w.root, Path: path, At: w.now()}

	if w.onReindex != nil {
		w.onReindex(ctx, event)
	}

	w.publish(ctx, event)
}

func (w *Watcher) publish(ctx context.Context, event Event) {
	if w.sink == nil {
		return
	}
	if err := w.sink.Publish(ctx, event); err != nil {
		w.logger.Warn("watcher: failed to publish event",
			logging.String("type", string(event.Type)),
			logging.Err(err))
	}
}

func classify(ev fsnotify.Event) EventType {
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return EventRemoved
	case ev.Has(fsnotify.Create):
		return EventIndexed
	default:
		return EventUpdated
	}
}

func isMarkdown(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".md")
}

// addRecursive walks root and registers every directory not excluded by the
// default skip list or the corpus's .docignore rules.
func addRecursive(fsw *fsnotify.Watcher, root string) error {
	matcher := loadIgnoreMatcher(root)
	return filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if defaultSkipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if path != root {
			rel, err := filepath.Rel(root, path)
			if err == nil && matcher.Match(filepath.ToSlash(rel), true) {
				return filepath.SkipDir
			}
		}
		if err := fsw.Add(path); err != nil {
			return nil
		}
		return nil
	})
}

// loadIgnoreMatcher reads <root>/.docignore when present; absence or a read
// error yields an empty matcher rather than failing watcher startup.
func loadIgnoreMatcher(root string) *parser.IgnoreMatcher {
	f, err := os.Open(filepath.Join(root, ".docignore"))
	if err != nil {
		return parser.NewEmptyMatcher()
	}
	defer f.Close()
	matcher, err := parser.ParseIgnoreRules(f)
	if err != nil {
		return parser.NewEmptyMatcher()
	}
	return matcher
}
