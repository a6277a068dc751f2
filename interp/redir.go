// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gshell-dev/gsh/syntax"
)

// redir applies one redirection to the runner's file descriptor state,
// returning a closer for any file that was opened. The caller restores
// the previous state and runs the closers once the command finishes, so
// that descriptors never outlive their command.
func (r *Runner) redir(ctx context.Context, rd *syntax.Redirect) (io.Closer, error) {
	fd := -1
	if rd.N != nil {
		n, err := strconv.Atoi(rd.N.Value)
		if err != nil || n < 0 || n > 9 {
			return nil, fmt.Errorf("invalid file descriptor: %s", rd.N.Value)
		}
		fd = n
	}
	switch rd.Op {
	case syntax.Hdoc, syntax.DashHdoc:
		body := r.hdocBody(ctx, rd)
		if rd.Op == syntax.DashHdoc {
			body = stripLeadingTabs(body)
		}
		r.setFdReader(orFd(fd, 0), strings.NewReader(body))
		return nil, nil
	case syntax.WordHdoc:
		body := r.literal(ctx, rd.Word) + "\n"
		r.setFdReader(orFd(fd, 0), strings.NewReader(body))
		return nil, nil
	case syntax.DplIn:
		return nil, r.dupFd(orFd(fd, 0), r.literal(ctx, rd.Word), false)
	case syntax.DplOut:
		tgt := r.literal(ctx, rd.Word)
		if fd < 0 && !isDigits(tgt) && tgt != "-" {
			// >&file is equivalent to &>file in bash
			return r.openRedir(ctx, 1, tgt, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, true)
		}
		return nil, r.dupFd(orFd(fd, 1), tgt, true)
	case syntax.RdrAll, syntax.AppAll:
		flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if rd.Op == syntax.AppAll {
			flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		return r.openRedir(ctx, 1, r.literal(ctx, rd.Word), flag, true)
	case syntax.RdrIn:
		return r.openRedir(ctx, orFd(fd, 0), r.literal(ctx, rd.Word), os.O_RDONLY, false)
	case syntax.RdrInOut:
		return r.openRedir(ctx, orFd(fd, 0), r.literal(ctx, rd.Word), os.O_RDWR|os.O_CREATE, false)
	case syntax.RdrOut, syntax.ClbOut:
		flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if rd.Op == syntax.RdrOut && r.opts[optNoClobber] {
			flag = os.O_WRONLY | os.O_CREATE | os.O_EXCL
		}
		return r.openRedir(ctx, orFd(fd, 1), r.literal(ctx, rd.Word), flag, false)
	case syntax.AppOut:
		return r.openRedir(ctx, orFd(fd, 1), r.literal(ctx, rd.Word),
			os.O_WRONLY|os.O_CREATE|os.O_APPEND, false)
	}
	return nil, fmt.Errorf("unhandled redirect op: %v", rd.Op)
}

func orFd(fd, def int) int {
	if fd < 0 {
		return def
	}
	return fd
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// hdocBody collects a here-document body, expanding it unless the
// delimiter carried any quoting.
func (r *Runner) hdocBody(ctx context.Context, rd *syntax.Redirect) string {
	quoted := false
	syntax.Walk(rd.Word, func(node syntax.Node) bool {
		switch x := node.(type) {
		case *syntax.SglQuoted, *syntax.DblQuoted:
			quoted = true
		case *syntax.Lit:
			if strings.Contains(x.Value, "\\") {
				quoted = true
			}
		}
		return true
	})
	if quoted {
		if w := rd.Hdoc; w != nil && len(w.Parts) == 1 {
			if lit, ok := w.Parts[0].(*syntax.Lit); ok {
				return lit.Value
			}
		}
	}
	if rd.Hdoc == nil {
		return ""
	}
	return r.document(ctx, rd.Hdoc)
}

// stripLeadingTabs removes leading tab characters from every line of a
// <<- here-document body. Only tabs are stripped, never spaces.
func stripLeadingTabs(body string) string {
	if !strings.Contains(body, "\t") {
		return body
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimLeft(line, "\t")
	}
	return strings.Join(lines, "\n")
}

func (r *Runner) setFdReader(fd int, rc io.Reader) {
	switch fd {
	case 0:
		r.stdin = rc
	default:
		if f, ok := rc.(*os.File); ok {
			r.setExtraFd(fd, f)
		}
	}
}

func (r *Runner) setFdWriter(fd int, w io.Writer) {
	switch fd {
	case 1:
		r.stdout = w
	case 2:
		r.stderr = w
	default:
		if f, ok := w.(*os.File); ok {
			r.setExtraFd(fd, f)
		}
	}
}

func (r *Runner) setExtraFd(fd int, f *os.File) {
	old := r.extraFds
	r.extraFds = make(map[int]*os.File, len(old)+1)
	for k, v := range old {
		r.extraFds[k] = v
	}
	r.extraFds[fd] = f
}

// dupFd implements n<&m and n>&m, where the target may also be "-" to
// close the descriptor.
func (r *Runner) dupFd(fd int, target string, out bool) error {
	if target == "-" {
		if out {
			r.setFdWriter(fd, io.Discard)
		} else {
			r.setFdReader(fd, strings.NewReader(""))
		}
		return nil
	}
	m, err := strconv.Atoi(target)
	if err != nil {
		return fmt.Errorf("ambiguous redirect: %q", target)
	}
	var src any
	switch m {
	case 0:
		src = r.stdin
	case 1:
		src = r.stdout
	case 2:
		src = r.stderr
	default:
		f, ok := r.extraFds[m]
		if !ok {
			return fmt.Errorf("bad file descriptor: %d", m)
		}
		src = f
	}
	if out {
		w, ok := src.(io.Writer)
		if !ok {
			return fmt.Errorf("bad file descriptor: %d", m)
		}
		r.setFdWriter(fd, w)
	} else {
		rc, ok := src.(io.Reader)
		if !ok {
			return fmt.Errorf("bad file descriptor: %d", m)
		}
		r.setFdReader(fd, rc)
	}
	return nil
}

// openRedir opens a file for a redirection and wires it to the target
// descriptor. With both set, stderr is redirected too, as in &>file.
func (r *Runner) openRedir(ctx context.Context, fd int, path string, flag int, both bool) (io.Closer, error) {
	f, err := r.open(ctx, path, flag, 0o644)
	if err != nil {
		r.errf("gsh: %s: %v\n", path, redirErrReason(err))
		return nil, err
	}
	if flag == os.O_RDONLY {
		r.setFdReader(fd, f)
	} else if flag&os.O_RDWR != 0 {
		r.setFdReader(fd, f)
		r.setFdWriter(fd, f)
	} else {
		r.setFdWriter(fd, f)
		if both {
			r.setFdWriter(2, f)
		}
	}
	return f, nil
}

func redirErrReason(err error) string {
	if pe, ok := err.(*os.PathError); ok {
		if os.IsExist(pe.Err) {
			return "cannot overwrite existing file"
		}
		return pe.Err.Error()
	}
	return err.Error()
}

// open opens a file relative to the runner's directory via the open
// handler.
func (r *Runner) open(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = r.Dir + "/" + path
	}
	return r.openHandler(r.handlerCtx(ctx), path, flag, perm)
}
