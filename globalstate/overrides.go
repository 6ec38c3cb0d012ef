package globalstate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/sslcore/planner/logging"
)

// ReadOverrides parses a JSON GlobalOverride file. Fields absent from the file keep their
// DefaultOverride values.
func ReadOverrides(path string) (GlobalOverride, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return GlobalOverride{}, err
	}
	overrides := DefaultOverride()
	if err := json.Unmarshal(data, &overrides); err != nil {
		return GlobalOverride{}, errors.Wrapf(err, "failed to decode overrides from %s", path)
	}
	return overrides, nil
}

// OverridesWatcher keeps a State's coach overrides in sync with a JSON file.
type OverridesWatcher struct {
	watcher    *fsnotify.Watcher
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// WatchOverrides loads `path` into `state` and reloads it whenever the file changes. A file that
// fails to parse is logged and the previous overrides stay in effect.
func WatchOverrides(ctx context.Context, path string, state *State, logger logging.Logger) (*OverridesWatcher, error) {
	overrides, err := ReadOverrides(path)
	if err != nil {
		return nil, err
	}
	state.SetOverrides(overrides)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory so editors that replace the file by renaming are still observed.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		goutils.UncheckedError(watcher.Close())
		return nil, err
	}

	cancelCtx, cancelFunc := context.WithCancel(ctx)
	ow := &OverridesWatcher{watcher: watcher, cancelFunc: cancelFunc}
	target := filepath.Clean(path)
	ow.wg.Add(1)
	goutils.PanicCapturingGo(func() {
		defer ow.wg.Done()
		for {
			select {
			case <-cancelCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				overrides, err := ReadOverrides(path)
				if err != nil {
					logger.Warnw("keeping previous overrides", "path", path, "error", err)
					continue
				}
				logger.Infow("coach overrides reloaded", "max_speed", overrides.MaxSpeed,
					"max_dribbler_speed", overrides.MaxDribblerSpeed, "min_dist_from_ball", overrides.MinDistFromBall)
				state.SetOverrides(overrides)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warnw("overrides watcher error", "error", err)
			}
		}
	})
	return ow, nil
}

// Close stops watching.
func (ow *OverridesWatcher) Close() error {
	ow.cancelFunc()
	err := ow.watcher.Close()
	ow.wg.Wait()
	return err
}
