package config

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/docshelf/docshelf/pkg/observability"
)

// PolicyWatcher hot-reloads the upload policy when the config file
// changes, so extension whitelist and size limit updates take effect
// without a restart. Reads are lock-protected; a reload that fails
// validation keeps the previous policy.
type PolicyWatcher struct {
	mu     sync.RWMutex
	policy UploadPolicy
	path   string
	logger *observability.Logger
}

// NewPolicyWatcher creates a watcher seeded with the given policy. If
// path is empty the policy is static and Watch is a no-op.
func NewPolicyWatcher(initial UploadPolicy, path string, logger *observability.Logger) *PolicyWatcher {
	return &PolicyWatcher{
		policy: initial,
		path:   path,
		logger: logger,
	}
}

// Current returns the active upload policy.
func (w *PolicyWatcher) Current() UploadPolicy {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.policy
}

// Watch blocks until ctx is cancelled, reloading the policy on file
// write events.
func (w *PolicyWatcher) Watch(ctx context.Context) error {
	if w.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(w.path); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("config watcher error")
		}
	}
}

func (w *PolicyWatcher) reload() {
	policy, err := LoadUploadPolicy(w.path)
	if err != nil {
		w.logger.WithError(err).Warn("upload policy reload failed, keeping previous policy")
		return
	}

	w.mu.Lock()
	w.policy = policy
	w.mu.Unlock()

	w.logger.WithFields(map[string]interface{}{
		"allowed_extensions": policy.AllowedExtensions,
		"max_file_size":      policy.MaxFileSize,
	}).Info("upload policy reloaded")
}
