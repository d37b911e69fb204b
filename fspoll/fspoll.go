// Copyright 2014 Dmitry Chestnykh. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fspoll implements a primitive polling-based watcher
// of files in a directory.
package fspoll

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileState is what the watcher remembers about a file.
type fileState struct {
	mode    os.FileMode
	size    int64
	modTime time.Time
}

type Watcher struct {
	dir           string
	excludeGlobs  []string
	state         map[string]fileState
	interval      time.Duration
	sleepInterval time.Duration
	closed        chan struct{}
	closeOnce     sync.Once

	// event channels
	Change chan bool
	Error  chan error
}

const (
	DefaultInterval = 1 * time.Second
	SleepAfter      = 5 * time.Minute
)

// Watch polls files directly inside the given directory, excluding
// names matching the given globs, for changes with the given interval.
//
// When there was no change for 5 minutes, interval changes to
// sleepInterval (interval * 5 by default). It's back to normal
// interval after a change is detected. If sleepInterval is
// negative, don't sleep.
func Watch(dir string, excludeGlobs []string, interval, sleepInterval time.Duration) (w *Watcher, err error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if sleepInterval < 0 {
		sleepInterval = interval
	} else if sleepInterval == 0 {
		sleepInterval = interval * 5
	}
	w = &Watcher{
		dir:           dir,
		excludeGlobs:  excludeGlobs,
		interval:      interval,
		sleepInterval: sleepInterval,
		Change:        make(chan bool),
		Error:         make(chan error),
		closed:        make(chan struct{}),
	}
	// Get initial state
	w.state, err = w.getState()
	if err != nil {
		return nil, err
	}
	// Start watching goroutine
	go w.start()
	return w, nil
}

func (w *Watcher) start() {
	lastChangeTime := time.Now()
	currentInterval := w.interval
	for {
		hasChange, err := w.check()
		switch {
		case err != nil:
			if !w.send(w.Error, err) {
				return
			}
		case hasChange:
			lastChangeTime = time.Now()
			currentInterval = w.interval
			if !w.sendChange() {
				return
			}
		case time.Since(lastChangeTime) > SleepAfter:
			currentInterval = w.sleepInterval
		}
		select {
		case <-time.After(currentInterval):
			continue
		case <-w.closed:
			return
		}
	}
}

func (w *Watcher) send(ch chan error, err error) bool {
	select {
	case ch <- err:
		return true
	case <-w.closed:
		return false
	}
}

func (w *Watcher) sendChange() bool {
	select {
	case w.Change <- true:
		return true
	case <-w.closed:
		return false
	}
}

func (w *Watcher) excluded(name string) (bool, error) {
	for _, glob := range w.excludeGlobs {
		matched, err := filepath.Match(glob, name)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

func (w *Watcher) getState() (map[string]fileState, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}
	ns := make(map[string]fileState, len(entries))
	for _, e := range entries {
		skip, err := w.excluded(e.Name())
		if err != nil {
			return nil, err
		}
		if skip || e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue // removed while listing
			}
			return nil, err
		}
		ns[e.Name()] = fileState{mode: fi.Mode(), size: fi.Size(), modTime: fi.ModTime()}
	}
	return ns, nil
}

func (w *Watcher) check() (hasChange bool, err error) {
	ns, err := w.getState()
	if err != nil {
		return false, err
	}
	defer func() {
		// Set new state as current when this function finishes.
		w.state = ns
	}()
	if len(ns) != len(w.state) {
		return true, nil
	}
	for name, nfs := range ns {
		ofs, ok := w.state[name]
		if !ok || ofs.mode != nfs.mode || ofs.size != nfs.size || !ofs.modTime.Equal(nfs.modTime) {
			return true, nil
		}
	}
	// Same number of files and none is new, so none was deleted.
	return false, nil
}

// Done returns a channel which is closed when the watcher is closed.
func (w *Watcher) Done() <-chan struct{} {
	return w.closed
}

// Close stops the watcher. It's safe to call Close more than once.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() { close(w.closed) })
}
