// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gshell-dev/gsh/expand"
)

// ExecHandlerFunc executes a simple command. The first argument is the
// resolved program name; the remaining state, such as the standard
// streams and environment, is carried by the HandlerContext stored in
// ctx.
//
// Returning a nil error means a zero exit status; other exit statuses are
// reported by returning an error which wraps ExitStatus.
type ExecHandlerFunc func(ctx context.Context, args []string) error

// OpenHandlerFunc opens a file for a redirection.
type OpenHandlerFunc func(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error)

// ReadDirHandlerFunc reads a directory during glob expansion.
type ReadDirHandlerFunc func(ctx context.Context, path string) ([]os.DirEntry, error)

// StatHandlerFunc is called when the interpreter needs file metadata, for
// example from the test builtin.
type StatHandlerFunc func(ctx context.Context, name string, followSymlinks bool) (os.FileInfo, error)

// DefaultExecHandler returns the default ExecHandlerFunc, which finds the
// program in PATH and runs it as a child process, forwarding the standard
// streams and the exported environment.
//
// If the context is cancelled while the command is running, it receives
// SIGINT; if it does not exit after killTimeout, it receives SIGKILL. A
// zero or negative timeout sends SIGKILL immediately.
func DefaultExecHandler(killTimeout time.Duration) ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		hc := HandlerCtx(ctx)
		path, err := LookPathDir(hc.Dir, hc.Env, args[0])
		if err != nil {
			fmt.Fprintf(hc.Stderr, "gsh: %s: %v\n", args[0], err)
			if strings.Contains(err.Error(), "permission") ||
				strings.Contains(err.Error(), "directory") {
				return NewExitStatus(126)
			}
			return NewExitStatus(127)
		}
		cmd := exec.Cmd{
			Path:   path,
			Args:   args,
			Dir:    hc.Dir,
			Env:    environList(hc.Env),
			Stdin:  hc.Stdin,
			Stdout: hc.Stdout,
			Stderr: hc.Stderr,
		}
		prepareCommand(&cmd)

		err = cmd.Start()
		if err == nil {
			stopf := context.AfterFunc(ctx, func() {
				interruptCommand(&cmd, killTimeout)
			})
			defer stopf()
			err = cmd.Wait()
		}
		switch err := err.(type) {
		case *exec.ExitError:
			// ExitCode is -1 on signal death; encode the signal as
			// 128+N like shells do.
			if sig, ok := exitSignal(err.ProcessState); ok {
				return NewExitStatus(uint8(128 + sig))
			}
			return NewExitStatus(uint8(err.ProcessState.ExitCode()))
		case *exec.Error:
			// did not start at all
			fmt.Fprintf(hc.Stderr, "gsh: %v\n", err)
			return NewExitStatus(126)
		default:
			return err
		}
	}
}

// environList flattens the exported string variables of an environment
// into the "name=value" form that execve expects.
func environList(env expand.Environ) []string {
	list := make([]string, 0, 64)
	env.Each(func(name string, vr expand.Variable) bool {
		if vr.Exported && vr.Kind == expand.String {
			list = append(list, name+"="+vr.Str)
		}
		return true
	})
	return list
}

// DefaultOpenHandler returns the default OpenHandlerFunc, which uses
// os.OpenFile, with /dev/null mapped to the OS equivalent.
func DefaultOpenHandler() OpenHandlerFunc {
	return func(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
		if runtime.GOOS == "windows" && path == "/dev/null" {
			path = "NUL"
		}
		return os.OpenFile(path, flag, perm)
	}
}

// DefaultReadDirHandler returns the default ReadDirHandlerFunc, which
// uses os.ReadDir.
func DefaultReadDirHandler() ReadDirHandlerFunc {
	return func(ctx context.Context, path string) ([]os.DirEntry, error) {
		return os.ReadDir(path)
	}
}

// DefaultStatHandler returns the default StatHandlerFunc, which uses
// os.Stat and os.Lstat.
func DefaultStatHandler() StatHandlerFunc {
	return func(ctx context.Context, path string, followSymlinks bool) (os.FileInfo, error) {
		if !followSymlinks {
			return os.Lstat(path)
		}
		return os.Stat(path)
	}
}

// checkStat checks that a file exists and, if checkExec is set, that it
// has any execute permission bit.
func checkStat(dir, file string, checkExec bool) (string, error) {
	if !filepath.IsAbs(file) {
		file = filepath.Join(dir, file)
	}
	info, err := os.Stat(file)
	if err != nil {
		return "", fmt.Errorf("no such file or directory")
	}
	m := info.Mode()
	if m.IsDir() {
		return "", fmt.Errorf("is a directory")
	}
	if checkExec && runtime.GOOS != "windows" && m&0o111 == 0 {
		return "", fmt.Errorf("permission denied")
	}
	return file, nil
}

// LookPathDir is similar to os/exec.LookPath, with a couple of key
// differences: it uses the given environment's PATH, and it resolves
// relative paths against dir.
func LookPathDir(dir string, env expand.Environ, file string) (string, error) {
	if strings.Contains(file, "/") {
		return checkStat(dir, file, true)
	}
	path := env.Get("PATH").String()
	for _, elem := range filepath.SplitList(path) {
		if elem == "" {
			elem = "."
		}
		p, err := checkStat(dir, filepath.Join(elem, file), true)
		if err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("command not found")
}
