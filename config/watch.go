package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on the file Load last read and invokes
// onReload with the freshly re-parsed Config whenever it changes on disk.
// It mirrors WatchAndReload's role in serv/config.go's Serv block, except the
// reload surface here is narrow by design: only Aliases/Prefixes/Endpoints
// are meant to change at runtime (§4.A/§4.F), not the database connection.
func (c *Config) Watch(onReload func(*Config)) (stop func() error, err error) {
	path := c.ConfigFileUsed()
	if path == "" {
		return nil, fmt.Errorf("config: no config file to watch")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: creating watcher: %w", err)
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("config: watching %s: %w", path, err)
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				next, err := Load(path, nil)
				if err != nil {
					continue
				}
				onReload(next)
			case <-w.Errors:
				continue
			case <-done:
				return
			}
		}
	}()

	return func() error {
		close(done)
		return w.Close()
	}, nil
}
