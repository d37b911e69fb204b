// Package buildhook runs actions attached to build targets.
//
// The build tool calls into this program after a target completes;
// the program then runs the post-actions registered for that target.
package buildhook

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
)

// Env is the build environment passed to actions.
type Env struct {
	// ProjectDir is the directory of the project being built.
	ProjectDir string
	// Target is the name of the build target which has just completed.
	Target string
	// Log receives progress and per-file error messages.
	Log *log.Logger
}

// Logger returns env's logger or a logger writing to the standard log output.
func (env *Env) Logger() *log.Logger {
	if env.Log != nil {
		return env.Log
	}
	return log.New(log.Writer(), "", log.Flags())
}

// ErrNoActions is returned when a target has no post-actions.
var ErrNoActions = errors.New("no post-actions")

// Action is a function run after a build target completes.
type Action func(env *Env) error

// Registry stores post-actions addressed by target name.
type Registry struct {
	sync.Mutex
	actions map[string][]Action
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string][]Action)}
}

// Default is the registry used by the command.
var Default = NewRegistry()

// AddPostAction attaches action to target. Actions of the same
// target run in the order they were added.
func (r *Registry) AddPostAction(target string, action Action) {
	r.Lock()
	defer r.Unlock()
	r.actions[target] = append(r.actions[target], action)
}

// Len returns the number of actions registered for target.
func (r *Registry) Len(target string) int {
	r.Lock()
	defer r.Unlock()
	return len(r.actions[target])
}

// RunPostActions runs actions attached to env.Target, stopping
// at the first error. If there are no actions, it returns
// an error wrapping ErrNoActions.
func (r *Registry) RunPostActions(env *Env) error {
	r.Lock()
	actions := append([]Action(nil), r.actions[env.Target]...)
	r.Unlock()
	if len(actions) == 0 {
		return fmt.Errorf("target %q: %w", env.Target, ErrNoActions)
	}
	for i, a := range actions {
		if err := a(env); err != nil {
			return fmt.Errorf("post-action %d of %q: %w", i+1, env.Target, err)
		}
	}
	return nil
}

// Discard is a logger which drops everything, for quiet runs.
var Discard = log.New(io.Discard, "", 0)
