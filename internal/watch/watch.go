// Package watch re-runs the batch analysis when sample files change.
//
// It is the headless counterpart of re-clicking "run" in an acquisition GUI:
// the input folder is monitored and, after a quiet period, the supplied
// callback fires once per burst of file events.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Run watches dir and invokes fn after events settle for the debounce
// period. Only events whose file name passes the relevant filter count.
// It blocks until ctx is cancelled and only returns early if the watcher
// itself cannot be set up or breaks.
func Run(ctx context.Context, dir string, debounce time.Duration, relevant func(name string) bool, log zerolog.Logger, fn func()) error {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	log.Info().Str("dir", dir).Dur("debounce", debounce).Msg("watching for sample changes")

	// The timer is armed on the first relevant event and re-armed on each
	// subsequent one, so fn fires once per burst.
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return fmt.Errorf("watch %s: event channel closed", dir)
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if !relevant(ev.Name) {
				continue
			}
			log.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("sample change detected")
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(debounce)
			pending = true

		case err, ok := <-w.Errors:
			if !ok {
				return fmt.Errorf("watch %s: error channel closed", dir)
			}
			log.Warn().Err(err).Msg("watcher error")

		case <-timer.C:
			pending = false
			fn()
		}
	}
}
