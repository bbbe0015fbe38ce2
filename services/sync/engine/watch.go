// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/NoteGraph/services/sync/datatypes"
)

// DefaultDebounce is the quiet window after the last file event before a
// re-sync fires. Editors write in bursts; syncing per event would thrash
// the store.
const DefaultDebounce = 2 * time.Second

// Watch runs an initial full pass and then re-syncs whenever markdown
// files under the source root change.
//
// Description:
//
//	Filesystem events are coalesced: each relevant event resets a
//	debounce timer, and a pass runs only after the window goes quiet.
//	Newly created directories are added to the watch. Per-pass errors
//	are logged, never fatal; the loop only stops with the context.
//	On cancellation a final store checkpoint is flushed before return,
//	so an interrupted watch leaves the index as current as the last
//	completed document.
//
// Inputs:
//
//	ctx - Cancelling it (e.g. via signal.NotifyContext) stops the loop.
//	opts - Pass options applied to every triggered sync.
//	debounce - Quiet window. Non-positive means DefaultDebounce.
//
// Outputs:
//
//	error - Non-nil if the watcher cannot be set up or the initial
//	        pass fails at pass level.
func (e *Engine) Watch(ctx context.Context, opts Options, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := e.watchTree(watcher, e.source.Root()); err != nil {
		return err
	}

	if _, err := e.runPass(ctx, opts); err != nil {
		return err
	}

	// The timer starts stopped; the first relevant event arms it.
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("watch interrupted, flushing checkpoint")
			e.checkpoint(context.WithoutCancel(ctx), e.logger)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := e.watchTree(watcher, event.Name); err != nil {
						e.logger.Warn("could not watch new directory",
							"path", event.Name, "error", err)
					}
					continue
				}
			}
			if !relevantEvent(event) {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			if _, err := e.runPass(ctx, opts); err != nil {
				e.logger.Error("sync pass failed", "error", err)
			}
		}
	}
}

// runPass runs one sync and logs its outcome.
func (e *Engine) runPass(ctx context.Context, opts Options) (*datatypes.SyncResult, error) {
	result, err := e.Sync(ctx, opts)
	if err != nil {
		return nil, err
	}
	for _, syncErr := range result.Errors {
		e.logger.Warn("document failed", "path", syncErr.Path, "error", syncErr.Err)
	}
	return result, nil
}

// watchTree registers root and every non-excluded subdirectory.
func (e *Engine) watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// relevantEvent reports whether a filesystem event should trigger a
// re-sync.
func relevantEvent(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) &&
		!event.Op.Has(fsnotify.Rename) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return ext == ".md" || ext == ".markdown"
}
