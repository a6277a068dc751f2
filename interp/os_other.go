// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

//go:build !unix

package interp

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/gshell-dev/gsh/expand"
	"github.com/gshell-dev/gsh/syntax"
)

// This file provides conservative fallbacks for platforms without POSIX
// process groups and signals. Job control and process substitution are
// unsupported there.

func prepareCommand(cmd *exec.Cmd) {}

func interruptCommand(cmd *exec.Cmd, killTimeout time.Duration) {
	if cmd.Process != nil {
		cmd.Process.Kill()
	}
}

func exitSignal(state *os.ProcessState) (int, bool) { return 0, false }

func foregroundPgid(tty *os.File, pgid int) error {
	return fmt.Errorf("job control is not supported on this platform")
}

func signalByName(name string) (os.Signal, int, bool) {
	for i, s := range signalNames {
		if s == name || "SIG"+s == name {
			return os.Interrupt, i, s == "INT"
		}
	}
	return nil, 0, false
}

func signalByNum(num int) (os.Signal, bool) {
	if num == 2 {
		return os.Interrupt, true
	}
	return nil, false
}

var signalNames = [...]string{
	2:  "INT",
	9:  "KILL",
	15: "TERM",
}

func defaultKillSignal() os.Signal { return os.Kill }

func sendContinue(pgid int) {}

func suspendSelf() error {
	return fmt.Errorf("suspend is not supported on this platform")
}

func signalPgid(pgid int, sig os.Signal) error {
	return fmt.Errorf("process groups are not supported on this platform")
}

func signalPid(pid int, sig os.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Signal(sig)
}

func replaceProcess(path string, args, env []string) error {
	return fmt.Errorf("exec is not supported on this platform")
}

func currentUmask() int { return 0 }

func setUmask(mask int) {}

func (r *Runner) fdIsTerminal(fd int) bool { return false }

func (r *Runner) accessible(path string, mode uint32) bool {
	_, err := os.Stat(path)
	return err == nil
}

func fileOwnedByUser(info os.FileInfo) bool  { return true }
func fileOwnedByGroup(info os.FileInfo) bool { return true }

func accessTime(info os.FileInfo) time.Time { return info.ModTime() }

func (r *Runner) procSubst(ps *syntax.ProcSubst) (string, error) {
	return "", fmt.Errorf("process substitution is not supported on this platform")
}

func tempDir(env expand.Environ) string { return os.TempDir() }
