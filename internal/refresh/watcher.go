package refresh

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "weekcal/internal/log"
)

// Watcher reports changes to a fixed set of local calendar files. The
// parent directories are watched so editors that replace files atomically
// are still noticed.
type Watcher struct {
	// Changes receives one value per debounced burst of file events.
	Changes <-chan struct{}

	changes  chan struct{}
	files    map[string]bool
	debounce time.Duration
	done     chan struct{}
	watcher  *fsnotify.Watcher
}

// NewWatcher starts watching files.
func NewWatcher(files []string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ch := make(chan struct{}, 1)
	w := &Watcher{
		Changes:  ch,
		changes:  ch,
		files:    map[string]bool{},
		debounce: debounce,
		done:     make(chan struct{}),
		watcher:  fw,
	}

	dirs := map[string]bool{}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}

	go w.loop()
	return w, nil
}

// Stop closes the watcher and waits for its loop to exit.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
}

func (w *Watcher) loop() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			abs, _ := filepath.Abs(event.Name)
			if !w.files[abs] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			appLog.Error("refresh: watch error", err)
		}
	}
}
