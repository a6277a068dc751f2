// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package interp

import (
	"context"
	"os"
	"strconv"
	"strings"
)

// jobBuiltin implements fg, bg, disown, suspend, and kill. Jobs run by
// this shell are goroutines with subshell runners; when their pipelines
// spawn external processes, those carry their own process groups, which
// is what the signal-based builtins act on.
func (r *Runner) jobBuiltin(ctx context.Context, name string, args []string) int {
	switch name {
	case "fg":
		j, err := r.jobSpecOrCurrent(args)
		if err != nil {
			r.errf("gsh: fg: %v\n", err)
			return 1
		}
		r.errf("%s\n", j.cmd)
		var tty *os.File
		if f, ok := r.stdin.(*os.File); ok && r.opts[optMonitor] {
			tty = f
		}
		if j.pgid != 0 {
			if tty != nil {
				// hand the terminal to the job's process group
				foregroundPgid(tty, j.pgid)
			}
			sendContinue(j.pgid)
		}
		select {
		case <-j.done:
		case <-ctx.Done():
			return 1
		}
		if tty != nil {
			foregroundPgid(tty, os.Getpid())
		}
		j.notified = true
		r.jobs.reap()
		return j.exit
	case "bg":
		j, err := r.jobSpecOrCurrent(args)
		if err != nil {
			r.errf("gsh: bg: %v\n", err)
			return 1
		}
		if j.pgid != 0 {
			sendContinue(j.pgid)
		}
		j.state = jobRunning
		r.errf("[%d]+ %s &\n", j.id, j.cmd)
		return 0
	case "disown":
		if len(args) == 0 {
			if j := r.jobs.current(); j != nil {
				j.disowned = true
				return 0
			}
			r.errf("gsh: disown: no current job\n")
			return 1
		}
		code := 0
		for _, arg := range args {
			if arg == "-a" {
				for _, j := range r.jobs.list() {
					j.disowned = true
				}
				continue
			}
			j, err := r.jobs.parseJobSpec(arg)
			if err != nil {
				r.errf("gsh: disown: %v\n", err)
				code = 1
				continue
			}
			j.disowned = true
		}
		return code
	case "suspend":
		if err := suspendSelf(); err != nil {
			r.errf("gsh: suspend: %v\n", err)
			return 1
		}
		return 0
	case "kill":
		return r.killBuiltin(args)
	}
	return 1
}

func (r *Runner) jobSpecOrCurrent(args []string) (*job, error) {
	if len(args) == 0 {
		if j := r.jobs.current(); j != nil {
			return j, nil
		}
		return nil, errNoCurrentJob
	}
	return r.jobs.parseJobSpec(args[0])
}

var errNoCurrentJob = jobError("no current job")

type jobError string

func (e jobError) Error() string { return string(e) }

func (r *Runner) killBuiltin(args []string) int {
	if len(args) == 0 {
		r.errf("gsh: kill: usage: kill [-s sigspec | -n signum | -sigspec] pid | jobspec\n")
		return 2
	}
	sig := defaultKillSignal()
	if args[0] == "-l" || args[0] == "-L" {
		args = args[1:]
		if len(args) == 0 {
			r.printSignalList()
			return 0
		}
		for _, arg := range args {
			if n, err := strconv.Atoi(arg); err == nil {
				if _, ok := signalByNum(n); ok {
					r.outf("%s\n", signalNames[n])
					continue
				}
			} else if name, ok := normalizeSigName(arg); ok {
				if _, num, ok := signalByName(name); ok {
					r.outf("%d\n", num)
					continue
				}
			}
			r.errf("gsh: kill: %s: invalid signal specification\n", arg)
			return 1
		}
		return 0
	}
	for len(args) > 0 && strings.HasPrefix(args[0], "-") {
		arg := args[0]
		var spec string
		if arg == "-s" || arg == "-n" {
			if len(args) < 2 {
				r.errf("gsh: kill: %s: option requires an argument\n", arg)
				return 2
			}
			spec = args[1]
			args = args[2:]
		} else {
			spec = arg[1:]
			args = args[1:]
		}
		name, ok := normalizeSigName(spec)
		if !ok {
			r.errf("gsh: kill: %s: invalid signal specification\n", spec)
			return 1
		}
		s, _, _ := signalByName(name)
		sig = s
	}
	if len(args) == 0 {
		r.errf("gsh: kill: no process specified\n")
		return 2
	}
	code := 0
	for _, arg := range args {
		if strings.HasPrefix(arg, "%") {
			j, err := r.jobs.parseJobSpec(arg)
			if err != nil {
				r.errf("gsh: kill: %v\n", err)
				code = 1
				continue
			}
			if j.pgid != 0 {
				if err := signalPgid(j.pgid, sig); err != nil {
					r.errf("gsh: kill: %v\n", err)
					code = 1
				}
			}
			continue
		}
		pid, err := strconv.Atoi(arg)
		if err != nil {
			r.errf("gsh: kill: %s: arguments must be process or job IDs\n", arg)
			code = 1
			continue
		}
		if j := r.jobs.byPID(pid); j != nil {
			if j.pgid != 0 {
				signalPgid(j.pgid, sig)
			}
			continue
		}
		if err := signalPid(pid, sig); err != nil {
			r.errf("gsh: kill: (%d) - %v\n", pid, err)
			code = 1
		}
	}
	return code
}

// execReplace implements `exec cmd ...`, replacing the shell process with
// the given program while inheriting the current redirections.
func (r *Runner) execReplace(ctx context.Context, args []string) int {
	path, err := LookPathDir(r.Dir, expandEnv{r}, args[0])
	if err != nil {
		r.errf("gsh: exec: %s: not found\n", args[0])
		r.shellExited = true
		return 127
	}
	// If the shell's standard streams are the real ones, replace the
	// process image entirely. Otherwise fall back to running the program
	// as a child and exiting with its status.
	if f, ok := r.stdin.(*os.File); (ok && f == os.Stdin) || r.stdin == nil {
		if w, ok := r.stdout.(*os.File); ok && w == os.Stdout {
			if err := replaceProcess(path, args, environList(expandEnv{r})); err != nil {
				r.errf("gsh: exec: %v\n", err)
				r.shellExited = true
				return 126
			}
		}
	}
	code := r.execProgram(ctx, args[0], args)
	r.shellExited = true
	return code
}
