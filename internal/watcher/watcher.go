// Package watcher polls the drop-folder root and feeds pending spreadsheets to
// the folder processor.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"sms-gateway/internal/apperr"
	"sms-gateway/internal/logging"
	"sms-gateway/internal/spreadsheet"
	"sms-gateway/internal/storage"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

const (
	// settleDelay lets an uploaded file finish writing before an event-triggered scan.
	settleDelay = 250 * time.Millisecond
	// stopTimeout bounds how long Stop waits for a running tick.
	stopTimeout = 5 * time.Minute
)

type FolderProcessor interface {
	ProcessFolder(ctx context.Context, folderName, fileName string) (int, error)
}

type Watcher struct {
	storage     *storage.Storage
	processor   FolderProcessor
	watchEvents bool
	log         zerolog.Logger

	scanning atomic.Bool
	claims   sync.Map

	mu        sync.Mutex
	scheduler gocron.Scheduler
	interval  time.Duration
	cancel    context.CancelFunc
	done      chan struct{}
}

func New(st *storage.Storage, processor FolderProcessor, watchEvents bool, log zerolog.Logger) *Watcher {
	return &Watcher{
		storage:     st,
		processor:   processor,
		watchEvents: watchEvents,
		log:         logging.Component(log, "watcher"),
	}
}

// Start schedules Scan every interval. Overlapping ticks are rescheduled, never stacked.
func (w *Watcher) Start(interval time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.scheduler != nil {
		return apperr.E(apperr.ErrConflict, "watcher already started")
	}
	if err := w.storage.EnsureRoot(); err != nil {
		return fmt.Errorf("prepare drop root: %w", err)
	}

	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(logging.NewGocronLogger(w.log)),
		gocron.WithStopTimeout(stopTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { w.Scan(context.Background()) }),
		gocron.WithName("drop-folder-scan"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = s.Shutdown()
		return fmt.Errorf("failed to schedule scan: %w", err)
	}

	if w.watchEvents {
		fsw, err := w.newFSWatcher()
		if err != nil {
			w.log.Warn().Err(err).Msg("file events unavailable, polling only")
		} else {
			w.done = make(chan struct{})
			go w.watchLoop(ctx, fsw, w.done)
		}
	}

	s.Start()
	w.scheduler = s
	w.interval = interval
	w.cancel = cancel
	w.log.Info().Str("root", w.storage.Root()).Dur("interval", interval).Bool("fs_events", w.done != nil).Msg("watching drop folders")
	return nil
}

// Stop shuts the scheduler down. A tick in progress is allowed to finish.
// Dispatches already started are not affected.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	s, cancel, done := w.scheduler, w.cancel, w.done
	w.scheduler, w.cancel, w.done = nil, nil, nil
	w.mu.Unlock()
	if s == nil {
		return nil
	}

	cancel()
	if done != nil {
		<-done
	}
	if err := s.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown scheduler: %w", err)
	}
	w.log.Info().Msg("watcher stopped")
	return nil
}

// Running reports whether a scan is in progress.
func (w *Watcher) Running() bool { return w.scanning.Load() }

// Started reports whether the periodic tick is scheduled.
func (w *Watcher) Started() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scheduler != nil
}

func (w *Watcher) Interval() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.interval
}

func (w *Watcher) Root() string { return w.storage.Root() }

// Scan runs one tick over every drop folder. It returns false without doing
// anything when another scan is still in progress.
func (w *Watcher) Scan(ctx context.Context) (ran bool) {
	if !w.scanning.CompareAndSwap(false, true) {
		w.log.Warn().Msg("previous scan still running, skipping tick")
		return false
	}
	ran = true
	defer w.scanning.Store(false)
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Msg("scan aborted")
		}
	}()

	folders, err := w.storage.DropFolders()
	if err != nil {
		w.log.Error().Err(err).Msg("cannot list drop folders")
		return true
	}

	for _, folder := range folders {
		files, err := w.storage.PendingFiles(folder)
		if err != nil {
			w.log.Error().Err(err).Str("folder", folder).Msg("cannot list pending files")
			continue
		}
		for _, file := range files {
			if ctx.Err() != nil {
				return true
			}
			if _, err := w.ProcessFile(ctx, folder, file); err != nil {
				w.log.Error().Err(err).Str("folder", folder).Str("file", file).Msg("file left in place")
			}
		}
	}
	return true
}

// ProcessFile processes one pending file and archives it on success. The same
// file is never processed by two callers at once. A panic while processing is
// returned as an error and leaves the file in place.
func (w *Watcher) ProcessFile(ctx context.Context, folder, file string) (n int, err error) {
	key := folder + "/" + file
	if _, busy := w.claims.LoadOrStore(key, struct{}{}); busy {
		return 0, apperr.E(apperr.ErrConflict, "%s is already being processed", key)
	}
	defer w.claims.Delete(key)
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("processing %s panicked: %v", key, r)
		}
	}()

	n, err = w.processor.ProcessFolder(ctx, folder, file)
	if err != nil {
		return 0, err
	}
	if err := w.storage.MoveToSent(folder, file); err != nil {
		return n, err
	}
	w.log.Info().Str("folder", folder).Str("file", file).Int("dispatched", n).Msg("moved to sent")
	return n, nil
}

// --- File events ---

func (w *Watcher) newFSWatcher() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(w.storage.Root()); err != nil {
		fsw.Close()
		return nil, err
	}
	folders, err := w.storage.DropFolders()
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		fsw.Close()
		return nil, err
	}
	for _, f := range folders {
		if err := fsw.Add(filepath.Join(w.storage.Root(), f)); err != nil {
			w.log.Warn().Err(err).Str("folder", f).Msg("cannot watch folder")
		}
	}
	return fsw, nil
}

// watchLoop turns spreadsheet writes into extra scans. Bursts of events are
// coalesced behind settleDelay.
func (w *Watcher) watchLoop(ctx context.Context, fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	defer fsw.Close()

	settle := time.NewTimer(settleDelay)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.isFolderEvent(ev) {
				if err := fsw.Add(ev.Name); err != nil {
					w.log.Debug().Err(err).Str("dir", ev.Name).Msg("cannot watch new folder")
				}
				continue
			}
			if ev.Has(fsnotify.Create|fsnotify.Write) && spreadsheet.IsSpreadsheet(ev.Name) {
				settle.Reset(settleDelay)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("file watch error")
		case <-settle.C:
			w.Scan(context.WithoutCancel(ctx))
		}
	}
}

// isFolderEvent reports a directory created directly under the root.
func (w *Watcher) isFolderEvent(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Create) &&
		filepath.Dir(ev.Name) == w.storage.Root() &&
		!spreadsheet.IsSpreadsheet(ev.Name)
}
