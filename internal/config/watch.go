package config

import (
	"github.com/dshills/capstyle/internal/config/watcher"
)

// Watch reloads the configuration whenever opts.Path changes and passes the
// result to onChange. Load errors go to onError and the previous
// configuration stays in effect. More files, such as a theme file, can be
// added to the returned watcher; a change to any of them triggers a reload.
// The caller must Stop the watcher.
func Watch(opts Options, onChange func(*Config), onError func(error)) (*watcher.Watcher, error) {
	w, err := watcher.New(watcher.WithErrorHandler(onError))
	if err != nil {
		return nil, err
	}

	w.OnChange(func(ev watcher.Event) {
		if ev.Op == watcher.OpRemove || ev.Op == watcher.OpRename {
			// Wait for the replacement file.
			return
		}
		cfg, err := Load(opts)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})

	if opts.Path != "" {
		if err := w.Watch(opts.Path); err != nil {
			w.Stop()
			return nil, err
		}
	}
	return w, nil
}
