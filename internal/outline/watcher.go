package outline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileHandler is invoked for each new slide file landing in the inbox
type FileHandler func(ctx context.Context, path string) error

// Watcher monitors a slides inbox directory and dispatches newly created
// slide files to a handler. Parsing runs in bounded goroutines; a short
// settle delay lets the writer finish before the file is read.
type Watcher struct {
	inboxDir      string
	provider      Provider
	handler       FileHandler
	logger        *slog.Logger
	watcher       *fsnotify.Watcher
	maxConcurrent int
	semaphore     chan struct{}
	settleDelay   time.Duration
	wg            sync.WaitGroup
}

// NewWatcher creates a slides inbox watcher. maxConcurrent bounds the number
// of files parsed at once; values below 1 default to 2.
func NewWatcher(inboxDir string, provider Provider, handler FileHandler, logger *slog.Logger, maxConcurrent int) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create inbox watcher: %w", err)
	}

	if err := fsWatcher.Add(inboxDir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch inbox directory: %w", err)
	}

	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}

	return &Watcher{
		inboxDir:      inboxDir,
		provider:      provider,
		handler:       handler,
		logger:        logger,
		watcher:       fsWatcher,
		maxConcurrent: maxConcurrent,
		semaphore:     make(chan struct{}, maxConcurrent),
		settleDelay:   500 * time.Millisecond,
	}, nil
}

// Start blocks, dispatching inbox events until the context is cancelled
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("Slides inbox watcher started",
		slog.String("inbox_dir", w.inboxDir),
		slog.Int("max_concurrent", w.maxConcurrent),
	)

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.logger.Info("Slides inbox watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("inbox watcher events channel closed")
			}

			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !w.provider.Supports(event.Name) {
				w.logger.Debug("Ignoring unsupported inbox file", slog.String("path", event.Name))
				continue
			}

			w.logger.Info("New slide file detected", slog.String("path", event.Name))

			// Let the writer finish before reading.
			time.Sleep(w.settleDelay)

			select {
			case w.semaphore <- struct{}{}:
				w.wg.Add(1)
				go func(path string) {
					defer w.wg.Done()
					defer func() { <-w.semaphore }()

					if err := w.handler(ctx, path); err != nil {
						w.logger.Error("Failed to process slide file",
							slog.String("path", path),
							slog.String("error", err.Error()),
						)
					}
				}(event.Name)
			case <-ctx.Done():
				return ctx.Err()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("inbox watcher errors channel closed")
			}
			w.logger.Error("Inbox watcher error", slog.String("error", err.Error()))
		}
	}
}

// Stop closes the underlying filesystem watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
