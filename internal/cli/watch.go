package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long the watcher waits for a burst of writes to end.
const settle = 300 * time.Millisecond

// watchDirs returns the entities dir with its subdirectories, and the enums
// dir when it exists. fsnotify does not recurse.
func watchDirs(roots ...string) ([]string, error) {
	var dirs []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				dirs = append(dirs, path)
			}
			return nil
		})
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return dirs, nil
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	switch strings.ToLower(filepath.Ext(ev.Name)) {
	case ".dsl", ".yaml", ".yml":
		return true
	}
	return false
}

func (e *env) watch(ctx context.Context, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dirs, err := watchDirs(e.cfg.Path(e.cfg.EntitiesDir), e.cfg.Path(e.cfg.EnumsDir))
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}
	e.logger.Info("watching descriptors", "dirs", len(dirs))

	run := func() {
		if _, err := e.migrate(out); err != nil {
			e.logger.Error("migrate failed", "error", err)
		}
	}
	run()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = w.Add(ev.Name)
				}
			}
			if !relevant(ev) {
				continue
			}
			e.logger.Debug("descriptor changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			run()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("watch error", "error", err)
		}
	}
}
