// Package watch triggers a debounced callback when a work tree or its git
// metadata changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/gitstate/internal/debounce"
)

const DefaultDelay = 350 * time.Millisecond

// ignoredExts are lock files written by git itself and the temporary files of
// a conflict resolution, which would otherwise retrigger the refresh they
// cause.
var ignoredExts = map[string]struct{}{
	".lock":   {},
	".ipc":    {},
	".base":   {},
	".ours":   {},
	".theirs": {},
}

type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	debounce *debounce.Debouncer
	log      *slog.Logger
}

// New watches root and calls fn at most once per delay window after changes.
// Nothing is delivered until Run is called.
func New(root string, delay time.Duration, fn func(), log *slog.Logger) (*Watcher, error) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if log == nil {
		log = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify: %w", err)
	}
	w := &Watcher{
		root:     root,
		watcher:  fw,
		debounce: debounce.New(delay, fn),
		log:      log.With(slog.String("component", "watch")),
	}
	paths, err := Paths(root)
	if err != nil {
		return nil, errors.Join(err, fw.Close())
	}
	for _, p := range paths {
		w.log.Debug("adding path to FS watcher", slog.String("path", p))
		if err := fw.Add(p); err != nil {
			return nil, errors.Join(fmt.Errorf("watch %s: %w", p, err), fw.Close())
		}
	}
	return w, nil
}

// Paths lists the directories watched for root: every work tree directory
// outside .git, plus .git, .git/refs/heads and .git/refs/remotes when they
// exist.
func Paths(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	gitDir := filepath.Join(root, ".git")
	for _, p := range []string{gitDir, filepath.Join(gitDir, "refs", "heads"), filepath.Join(gitDir, "refs", "remotes")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func ShouldIgnore(name string) bool {
	_, ok := ignoredExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Run delivers events until ctx is done, then closes the watcher. A pending
// callback is dropped.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.debounce.Stop()
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("fsnotify error", slog.Any("err", err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if ShouldIgnore(ev.Name) {
		return
	}
	w.log.Debug("fsnotify event", slog.String("op", ev.Op.String()), slog.String("path", ev.Name))
	if ev.Has(fsnotify.Create) && w.inWorkTree(ev.Name) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(ev.Name); err != nil {
				w.log.Warn("watch new directory", slog.String("path", ev.Name), slog.Any("err", err))
			}
		}
	}
	w.debounce.Trigger()
}

func (w *Watcher) inWorkTree(name string) bool {
	rel, err := filepath.Rel(w.root, name)
	if err != nil {
		return false
	}
	first, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	return first != ".git" && first != ".."
}
