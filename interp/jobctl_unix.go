// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

//go:build unix

package interp

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/gshell-dev/gsh/expand"
	"github.com/gshell-dev/gsh/syntax"
)

func defaultKillSignal() os.Signal { return unix.SIGTERM }

func sendContinue(pgid int) { unix.Kill(-pgid, unix.SIGCONT) }

func suspendSelf() error { return unix.Kill(os.Getpid(), unix.SIGTSTP) }

func signalPgid(pgid int, sig os.Signal) error {
	return unix.Kill(-pgid, sig.(syscall.Signal))
}

func signalPid(pid int, sig os.Signal) error {
	return unix.Kill(pid, sig.(syscall.Signal))
}

func replaceProcess(path string, args, env []string) error {
	return unix.Exec(path, args, env)
}

func currentUmask() int {
	mask := unix.Umask(0)
	unix.Umask(mask)
	return mask
}

func setUmask(mask int) { unix.Umask(mask) }

func (r *Runner) fdIsTerminal(fd int) bool {
	switch fd {
	case 0:
		if f, ok := r.stdin.(*os.File); ok {
			return term.IsTerminal(int(f.Fd()))
		}
	case 1:
		if f, ok := r.stdout.(*os.File); ok {
			return term.IsTerminal(int(f.Fd()))
		}
	case 2:
		if f, ok := r.stderr.(*os.File); ok {
			return term.IsTerminal(int(f.Fd()))
		}
	}
	return false
}

func (r *Runner) accessible(path string, mode uint32) bool {
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.Dir, path)
	}
	return unix.Access(path, mode) == nil
}

func fileOwnedByUser(info os.FileInfo) bool {
	st, ok := info.Sys().(*syscall.Stat_t)
	return ok && int(st.Uid) == os.Geteuid()
}

func fileOwnedByGroup(info os.FileInfo) bool {
	st, ok := info.Sys().(*syscall.Stat_t)
	return ok && int(st.Gid) == os.Getegid()
}

func accessTime(info os.FileInfo) time.Time {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime()
	}
	return time.Unix(st.Atim.Unix())
}

// procSubst implements <(cmd) and >(cmd) by creating a FIFO in the
// temporary directory, running the command against it in a subshell
// goroutine, and substituting the FIFO's path into the arguments. The
// goroutine removes the FIFO and its directory once its command has
// finished.
func (r *Runner) procSubst(ps *syntax.ProcSubst) (string, error) {
	dir, err := os.MkdirTemp(tempDir(expandEnv{r}), "gsh-")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "psub")
	if err := unix.Mkfifo(path, 0o600); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("cannot create fifo: %w", err)
	}
	r2 := r.Subshell()
	ctx := r.ectx
	var g errgroup.Group
	g.Go(func() error {
		// opening the fifo blocks until the other side opens it too
		flag := os.O_WRONLY
		if ps.Op == syntax.CmdOut {
			flag = os.O_RDONLY
		}
		f, err := os.OpenFile(path, flag, 0)
		if err != nil {
			os.RemoveAll(dir)
			return err
		}
		if ps.Op == syntax.CmdIn {
			r2.stdout = f
		} else {
			r2.stdin = f
		}
		r2.stmts(ctx, ps.Stmts)
		f.Close()
		os.RemoveAll(dir)
		return nil
	})
	// the group is intentionally not waited for; the child lives for as
	// long as the enclosing command keeps the fifo open
	return path, nil
}

// tempDir picks the directory for the interpreter's temporary files,
// honoring an absolute TMPDIR from the environment.
func tempDir(env expand.Environ) string {
	if dir := env.Get("TMPDIR").String(); filepath.IsAbs(dir) {
		return dir
	}
	return os.TempDir()
}
