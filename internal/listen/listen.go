// Package listen delivers user queries dropped into a watched text file.
// An external capture tool (speech recognizer, hotkey script) writes the
// recognized utterance to the drop file; we normalize it and hand it to
// the session loop.
package listen

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

var questionWords = []string{
	"what", "which", "whose", "whom", "can you", "what's", "where's", "how's",
	"who", "where", "when", "why", "how",
}

// NormalizeQuery lowercases leading noise out of a raw utterance, ends it
// with "?" when it starts like a question and "." otherwise, and
// capitalizes the first letter.
func NormalizeQuery(raw string) string {
	q := strings.TrimSpace(raw)
	if q == "" {
		return ""
	}
	low := strings.ToLower(q)
	mark := "."
	for _, w := range questionWords {
		if strings.HasPrefix(low, w) {
			mark = "?"
			break
		}
	}
	last := q[len(q)-1]
	if last == '.' || last == '?' || last == '!' {
		q = q[:len(q)-1]
	}
	q += mark
	r := []rune(q)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Watcher tails a drop file and emits each new normalized query exactly
// once. Consecutive duplicates are suppressed so a capture tool that
// rewrites the same text does not trigger repeat dispatches.
type Watcher struct {
	path       string
	statusPath string
	log        *zap.SugaredLogger

	watcher *fsnotify.Watcher
	queries chan string

	mu      sync.Mutex
	last    string
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher prepares a watcher over dropPath; statusPath may be empty.
func NewWatcher(dropPath, statusPath string, log *zap.SugaredLogger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		path:       dropPath,
		statusPath: statusPath,
		log:        log,
		watcher:    fw,
		queries:    make(chan string, 4),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}, nil
}

// Queries is the stream of normalized utterances.
func (w *Watcher) Queries() <-chan string { return w.queries }

// Start begins watching. Non-blocking; events arrive on Queries.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(w.path); os.IsNotExist(err) {
		if err := os.WriteFile(w.path, nil, 0o644); err != nil {
			return err
		}
	}
	// Watch the directory, not the file: editors and capture tools often
	// replace the file, which would break a direct watch.
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.SetStatus("Listening...")
	go w.run()
	return nil
}

// Stop shuts the watcher down and closes the query channel.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

// SetStatus mirrors the session state into the status file for the
// capture tool's UI. Failures are ignored.
func (w *Watcher) SetStatus(status string) {
	if w.statusPath == "" {
		return
	}
	_ = os.WriteFile(w.statusPath, []byte(status), 0o644)
}

func (w *Watcher) run() {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.consume()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnw("drop file watch error", "err", err)
		}
	}
}

func (w *Watcher) consume() {
	b, err := os.ReadFile(w.path)
	if err != nil {
		return
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return
	}
	q := NormalizeQuery(text)

	w.mu.Lock()
	if q == w.last {
		w.mu.Unlock()
		return
	}
	w.last = q
	w.mu.Unlock()

	select {
	case w.queries <- q:
	case <-w.stopCh:
	}
}
