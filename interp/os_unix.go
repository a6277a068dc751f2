// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

//go:build unix

package interp

import (
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// prepareCommand places each child in its own process group, so that job
// control can signal the whole pipeline at once, and so that an
// interactive shell does not receive the terminal's SIGINT meant for the
// foreground job.
func prepareCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// interruptCommand sends SIGINT to a started command's process group,
// escalating to SIGKILL after the timeout.
func interruptCommand(cmd *exec.Cmd, killTimeout time.Duration) {
	if cmd.Process == nil {
		return
	}
	pgid := -cmd.Process.Pid
	if killTimeout <= 0 {
		unix.Kill(pgid, unix.SIGKILL)
		return
	}
	unix.Kill(pgid, unix.SIGINT)
	time.AfterFunc(killTimeout, func() {
		unix.Kill(pgid, unix.SIGKILL)
	})
}

// exitSignal extracts the signal that terminated a process, if any.
func exitSignal(state *os.ProcessState) (int, bool) {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return int(ws.Signal()), true
}

// foregroundPgid hands the controlling terminal to the given process
// group, used by the monitor mode when resuming jobs with fg.
func foregroundPgid(tty *os.File, pgid int) error {
	return unix.IoctlSetPointerInt(int(tty.Fd()), unix.TIOCSPGRP, pgid)
}

// signalByName resolves a signal name such as "INT" or "SIGHUP" to its
// number; see the kill and trap builtins.
func signalByName(name string) (os.Signal, int, bool) {
	for i, s := range signalNames {
		if s == name || "SIG"+s == name {
			return syscall.Signal(i), i, true
		}
	}
	return nil, 0, false
}

func signalByNum(num int) (os.Signal, bool) {
	if num <= 0 || num >= len(signalNames) {
		return nil, false
	}
	return syscall.Signal(num), true
}

// signalNames is indexed by signal number; the zero entry is unused.
var signalNames = [...]string{
	1:  "HUP",
	2:  "INT",
	3:  "QUIT",
	4:  "ILL",
	5:  "TRAP",
	6:  "ABRT",
	7:  "BUS",
	8:  "FPE",
	9:  "KILL",
	10: "USR1",
	11: "SEGV",
	12: "USR2",
	13: "PIPE",
	14: "ALRM",
	15: "TERM",
	16: "STKFLT",
	17: "CHLD",
	18: "CONT",
	19: "STOP",
	20: "TSTP",
	21: "TTIN",
	22: "TTOU",
	23: "URG",
	24: "XCPU",
	25: "XFSZ",
	26: "VTALRM",
	27: "PROF",
	28: "WINCH",
	29: "IO",
	30: "PWR",
	31: "SYS",
}
