// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package interp

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/gshell-dev/gsh/syntax"
)

// sigState tracks the OS signals that have been delivered but whose traps
// have not yet run. Signal delivery only sets flags; the handlers
// themselves run at the next safe point, between statements. Multiple
// deliveries of one signal between two safe points coalesce into a single
// handler run.
type sigState struct {
	mu      sync.Mutex
	pending map[string]bool
	ch      chan os.Signal
	watched map[string]os.Signal
}

func newSigState() *sigState {
	return &sigState{
		pending: make(map[string]bool),
		watched: make(map[string]os.Signal),
	}
}

func (s *sigState) watch(name string, sig os.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil {
		s.ch = make(chan os.Signal, 32)
		go func() {
			for sig := range s.ch {
				s.mark(sig)
			}
		}()
	}
	s.watched[name] = sig
	signal.Notify(s.ch, sig)
}

func (s *sigState) unwatch(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sig, ok := s.watched[name]; ok {
		signal.Reset(sig)
		delete(s.watched, name)
	}
}

func (s *sigState) mark(sig os.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, watched := range s.watched {
		if watched == sig {
			s.pending[name] = true
		}
	}
}

func (s *sigState) take() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.pending))
	for name := range s.pending {
		names = append(names, name)
		delete(s.pending, name)
	}
	return names
}

// setTrap installs, resets, or ignores a handler for the given signal or
// pseudo-signal name. The name must already be normalized, for example
// "INT" or "EXIT".
func (r *Runner) setTrap(name, cmd string, reset bool) {
	if r.traps == nil {
		r.traps = make(map[string]string)
	}
	if reset {
		delete(r.traps, name)
		r.pendingSigs.unwatch(name)
		return
	}
	r.traps[name] = cmd
	switch name {
	case "EXIT", "ERR", "DEBUG", "RETURN":
		// pseudo-signals have no OS delivery
	default:
		if sig, _, ok := signalByName(name); ok {
			r.pendingSigs.watch(name, sig)
		}
	}
}

// runTrap runs a single trap handler string by parsing and executing it
// in the current shell environment. The exit status of the shell is
// preserved around the handler.
func (r *Runner) runTrap(ctx context.Context, cmd string) {
	if cmd == "" {
		return
	}
	file, err := syntax.NewParser().ParseBytes([]byte(cmd), "trap")
	if err != nil {
		r.errf("gsh: trap: %v\n", err)
		return
	}
	oldExit := r.exit
	r.stmts(ctx, file.Stmts)
	r.exit = oldExit
}

// runPendingTraps runs the handlers for any signals delivered since the
// last safe point.
func (r *Runner) runPendingTraps(ctx context.Context) {
	if r.pendingSigs == nil {
		return
	}
	for _, name := range r.pendingSigs.take() {
		if cmd, ok := r.traps[name]; ok {
			r.runTrap(ctx, cmd)
		}
	}
}

func (r *Runner) runErrTrap(ctx context.Context) {
	if cmd, ok := r.traps["ERR"]; ok {
		r.runTrap(ctx, cmd)
	}
}

func (r *Runner) runExitTrap(ctx context.Context) {
	cmd, ok := r.traps["EXIT"]
	if !ok {
		return
	}
	// remove it first so that exiting within the handler does not
	// recurse
	delete(r.traps, "EXIT")
	oldExited := r.shellExited
	r.shellExited = false
	r.runTrap(ctx, cmd)
	r.shellExited = oldExited
}

func (r *Runner) runDebugTrap(ctx context.Context) {
	if cmd, ok := r.traps["DEBUG"]; ok {
		r.runTrap(ctx, cmd)
	}
}

func (r *Runner) runReturnTrap(ctx context.Context) {
	if cmd, ok := r.traps["RETURN"]; ok {
		r.runTrap(ctx, cmd)
	}
}
