package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay lets editors finish their write-rename dance before the
// file is re-read.
const settleDelay = 500 * time.Millisecond

// Watch re-loads the config file whenever it changes and hands the
// result to onChange. The watch runs until ctx is cancelled. A reload
// that fails validation is logged and skipped; the running config
// stays in effect.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory: editors often replace the file, which
	// drops a watch set on the file itself.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		var settle *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if name, _ := filepath.Abs(event.Name); name != absPath {
					continue
				}
				if settle != nil {
					settle.Stop()
				}
				settle = time.AfterFunc(settleDelay, func() {
					cfg, err := Load(absPath)
					if err != nil {
						log.Printf("config: reload skipped: %v", err)
						return
					}
					log.Printf("config: reloaded %s", absPath)
					onChange(cfg)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("config: watch error: %v", err)
			}
		}
	}()

	return nil
}
