package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/juris/internal/logger"
)

// DefaultWatchDebounce coalesces bursts of writes into one notification.
const DefaultWatchDebounce = 250 * time.Millisecond

// Watcher reports writes to the database file made by other processes,
// such as an external ingestion run. Writes to the WAL and journal files
// count as writes to the database.
type Watcher struct {
	fsw      *fsnotify.Watcher
	dbPath   string
	debounce time.Duration
	onChange func()

	wg   sync.WaitGroup
	once sync.Once
}

// NewWatcher watches the directory holding dbPath and calls onChange after
// each burst of writes to the database.
func NewWatcher(dbPath string, debounce time.Duration, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	// SQLite replaces -wal and -journal files, so watch the directory.
	if err := fsw.Add(filepath.Dir(dbPath)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(dbPath), err)
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	return &Watcher{fsw: fsw, dbPath: filepath.Clean(dbPath), debounce: debounce, onChange: onChange}, nil
}

// Start processes events until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.fsw.Close()
	})
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			logger.Debug("corpus database changed: %s %s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.onChange()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("corpus watcher: %v", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == w.dbPath || strings.HasPrefix(name, w.dbPath+"-")
}
