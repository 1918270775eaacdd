package file

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Debounce collapses bursts of events on one file (editors often write twice).
var Debounce = 100 * time.Millisecond

// Watch emits the schema name of every definition file created, written,
// renamed or removed in the directory until ctx is done.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(s.Dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.Dir, err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer w.Close()

		pending := make(map[string]bool)
		timer := time.NewTimer(Debounce)
		timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op == fsnotify.Chmod {
					continue
				}
				base := filepath.Base(ev.Name)
				if !isDefinition(strings.ToLower(filepath.Ext(base))) {
					continue
				}
				pending[strings.TrimSuffix(base, filepath.Ext(base))] = true
				timer.Reset(Debounce)
			case <-timer.C:
				for name := range pending {
					select {
					case out <- name:
					case <-ctx.Done():
						return
					}
				}
				pending = make(map[string]bool)
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}
