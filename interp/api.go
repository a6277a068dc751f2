// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

// Package interp implements an interpreter that executes shell programs.
// It aims to support POSIX, plus the widely used Bash extensions: arrays,
// the extended test clause, C-style for loops, and so on.
//
// A Runner is not safe for concurrent use; see the notes on Subshell for
// how pipelines and background commands fork their own.
package interp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/gshell-dev/gsh/expand"
	"github.com/gshell-dev/gsh/syntax"
)

// A Runner interprets shell programs. It can be reused, but it is not safe
// for concurrent use. Use New to build a new Runner.
//
// Note that writes to Stdout and Stderr may be concurrent if background
// commands are used. If you plan on using an io.Writer implementation that
// isn't safe for concurrent use, consider a workaround like hiding writes
// behind a mutex.
type Runner struct {
	// Env specifies the initial environment for the interpreter, which
	// must not be nil.
	Env expand.Environ

	// Dir specifies the working directory of the command, which must be
	// an absolute path.
	Dir string

	// Params are the current shell parameters, e.g. from running a shell
	// file or calling a function. Accessible via the $@/$* family of
	// vars.
	Params []string

	// Separate maps, note that bash allows a name to be both a var and a
	// func simultaneously.
	Vars  map[string]expand.Variable
	Funcs map[string]*Func

	// funcScopes is the stack of local-variable frames, one per active
	// function call, innermost last.
	funcScopes []map[string]expand.Variable

	// cmdVars are the temporary variables from assignment prefixes on a
	// simple command, such as `VAR=val cmd`.
	cmdVars map[string]expand.Variable

	alias    map[string]alias
	sufAlias map[string]string

	// funcNames is the current call stack, for FUNCNAME.
	funcNames []string

	execHandler    ExecHandlerFunc
	execMiddleware []func(ExecHandlerFunc) ExecHandlerFunc
	openHandler    OpenHandlerFunc
	readDirHandler ReadDirHandlerFunc
	statHandler    StatHandlerFunc

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// extraFds holds redirections for file descriptors above 2, keyed by
	// fd number. They are passed along to external processes.
	extraFds map[int]*os.File

	ecfg *expand.Config

	opts runnerOpts

	interactive bool

	didReset bool
	usedNew  bool

	filename string // only set when Run was given a File with a name

	exit       int
	lastExit   int
	pipeStatus []int

	bgPID   int    // $!
	rematch []string // BASH_REMATCH

	shellExited bool
	returning   bool
	fatalErr    error

	// lastExpandExit is the exit status of the last command substitution
	// performed during word expansion, surfaced by pure assignments.
	lastExpandExit int

	// keepRedirsOnce is set by `exec` without arguments so that the
	// current statement's redirections stick to the shell itself.
	keepRedirsOnce bool

	// ectx is the context in effect for expansion callbacks such as
	// command substitution.
	ectx context.Context

	// >0 to break or continue out of N enclosing loops
	breakEnclosing, contnEnclosing int

	inLoop   bool
	inSource bool

	// noErrExit prevents failing commands from triggering errexit, such
	// as the condition of an if statement.
	noErrExit bool

	traps       map[string]string
	pendingSigs *sigState

	jobs *jobTable

	dirStack []string

	hashCache map[string]string

	optState getoptsState

	rand      *rand.Rand
	startTime time.Time

	origDir    string
	origParams []string
	origOpts   runnerOpts
	origStdin  io.Reader
	origStdout io.Writer
	origStderr io.Writer
}

// Func is a declared shell function: its parsed body, plus the rendered
// source used by `declare -f` and `type`.
type Func struct {
	Body *syntax.Stmt
	Src  string
}

type alias struct {
	repl  string
	blank bool // replacement ends in a blank, expanding the next word too
}

type runnerOpts [len(shellOptsTable)]bool

type shellOpt struct {
	flag byte // short option letter, or 0 if none
	name string
}

var shellOptsTable = [...]shellOpt{
	// sorted by name; the entries after xtrace are accepted for
	// compatibility but have their behavior in the line-editing
	// front-end, not in the interpreter
	{'a', "allexport"},
	{'e', "errexit"},
	{0, "ignoreeof"},
	{'m', "monitor"},
	{'C', "noclobber"},
	{'n', "noexec"},
	{'f', "noglob"},
	{'u', "nounset"},
	{0, "pipefail"},
	{0, "posix"},
	{'v', "verbose"},
	{'x', "xtrace"},
	{0, "emacs"},
	{0, "vi"},
}

const (
	optAllExport = iota
	optErrExit
	optIgnoreEOF
	optMonitor
	optNoClobber
	optNoExec
	optNoGlob
	optNoUnset
	optPipeFail
	optPosix
	optVerbose
	optXTrace
	optEmacs
	optVi
)

func (r *Runner) optByFlag(flag byte) *bool {
	for i, opt := range shellOptsTable {
		if opt.flag == flag {
			return &r.opts[i]
		}
	}
	return nil
}

func (r *Runner) optByName(name string) *bool {
	for i, opt := range shellOptsTable {
		if opt.name == name {
			return &r.opts[i]
		}
	}
	return nil
}

// New creates a new Runner, applying a number of options. If applying any
// of the options results in an error, it is returned.
//
// Any unset options fall back to their defaults. For example, not
// supplying the environment falls back to the process's environment, and
// not supplying the standard output writer means that the output will be
// discarded.
func New(opts ...RunnerOption) (*Runner, error) {
	r := &Runner{
		usedNew:        true,
		openHandler:    DefaultOpenHandler(),
		readDirHandler: DefaultReadDirHandler(),
		statHandler:    DefaultStatHandler(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	// Set the default fallbacks, if necessary.
	if r.Env == nil {
		Env(nil)(r)
	}
	if r.Dir == "" {
		if err := Dir("")(r); err != nil {
			return nil, err
		}
	}
	if r.stdout == nil || r.stderr == nil {
		StdIO(r.stdin, r.stdout, r.stderr)(r)
	}
	return r, nil
}

// RunnerOption can be passed to New to alter a Runner's behaviour. It can
// also be applied directly on an existing Runner, such as
// interp.Params("-e")(runner). Note that options cannot be applied once
// Run or Reset have been called.
type RunnerOption func(*Runner) error

// Env sets the interpreter's environment. If nil, a copy of the current
// process's environment is used.
func Env(env expand.Environ) RunnerOption {
	return func(r *Runner) error {
		if env == nil {
			env = expand.ListEnviron(os.Environ()...)
		}
		r.Env = env
		return nil
	}
}

// Dir sets the interpreter's working directory. If empty, the process's
// current directory is used.
func Dir(path string) RunnerOption {
	return func(r *Runner) error {
		if path == "" {
			path, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("could not get current dir: %w", err)
			}
			r.Dir = path
			return nil
		}
		path, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("could not get absolute dir: %w", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("could not stat: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", path)
		}
		r.Dir = path
		return nil
	}
}

// Interactive configures the interpreter to behave like an interactive
// shell: aliases are expanded, job control is enabled when the monitor
// option is on, and fatal errors do not exit the shell.
func Interactive(enabled bool) RunnerOption {
	return func(r *Runner) error {
		r.interactive = enabled
		return nil
	}
}

// Params populates the shell options and parameters. For example,
// Params("-e", "--", "foo") will set the "-e" option and the parameters
// ["foo"], and Params("+e") will unset the "-e" option and leave the
// parameters untouched.
//
// This is similar to what the interpreter's "set" builtin does.
func Params(args ...string) RunnerOption {
	return func(r *Runner) error {
		for len(args) > 0 {
			arg := args[0]
			if arg == "" || (arg[0] != '-' && arg[0] != '+') {
				break
			}
			if arg == "--" {
				// the remaining arguments become the positional
				// parameters, even when there are none
				r.Params = args[1:]
				return nil
			}
			enable := arg[0] == '-'
			var opt *bool
			if flag := arg[1:]; flag == "o" {
				args = args[1:]
				if len(args) == 0 && enable {
					for i, o := range shellOptsTable {
						state := "off"
						if r.opts[i] {
							state = "on"
						}
						r.outf("%s\t%s\n", o.name, state)
					}
					break
				}
				if len(args) == 0 && !enable {
					for i, o := range shellOptsTable {
						setFlag := "+o"
						if r.opts[i] {
							setFlag = "-o"
						}
						r.outf("set %s %s\n", setFlag, o.name)
					}
					break
				}
				opt = r.optByName(args[0])
				if opt == nil {
					return fmt.Errorf("invalid option: %q", args[0])
				}
			} else {
				if len(flag) != 1 {
					// combined flags like -eu
					for i := 1; i < len(arg); i++ {
						opt := r.optByFlag(arg[i])
						if opt == nil {
							return fmt.Errorf("invalid option: %q", "-"+string(arg[i]))
						}
						*opt = enable
					}
					args = args[1:]
					continue
				}
				opt = r.optByFlag(flag[0])
				if opt == nil {
					return fmt.Errorf("invalid option: %q", arg)
				}
			}
			*opt = enable
			args = args[1:]
		}
		if len(args) > 0 {
			r.Params = args
		}
		return nil
	}
}

// StdIO configures an interpreter's standard input, standard output, and
// standard error. If out or err are nil, they default to a writer that
// discards the output.
func StdIO(in io.Reader, out, err io.Writer) RunnerOption {
	return func(r *Runner) error {
		r.stdin = in
		if out == nil {
			out = io.Discard
		}
		r.stdout = out
		if err == nil {
			err = io.Discard
		}
		r.stderr = err
		return nil
	}
}

// ExecHandlers sets command execution middlewares on the runner, to be
// called in order when a simple command is about to run an external
// program. The first middleware wraps the default exec handler.
func ExecHandlers(middlewares ...func(next ExecHandlerFunc) ExecHandlerFunc) RunnerOption {
	return func(r *Runner) error {
		r.execMiddleware = append(r.execMiddleware, middlewares...)
		return nil
	}
}

// OpenHandler sets file open handler on the runner, to be called when a
// redirection opens a file.
func OpenHandler(open OpenHandlerFunc) RunnerOption {
	return func(r *Runner) error {
		r.openHandler = open
		return nil
	}
}

// ReadDirHandler sets the read directory handler on the runner, used
// during glob expansion.
func ReadDirHandler(readDir ReadDirHandlerFunc) RunnerOption {
	return func(r *Runner) error {
		r.readDirHandler = readDir
		return nil
	}
}

// StatHandler sets the stat handler on the runner, used when checking if
// files exist.
func StatHandler(stat StatHandlerFunc) RunnerOption {
	return func(r *Runner) error {
		r.statHandler = stat
		return nil
	}
}

// ExitStatus is a non-zero status code resulting from running a shell
// node.
type ExitStatus uint8

func (s ExitStatus) Error() string { return fmt.Sprintf("exit status %d", uint8(s)) }

// NewExitStatus creates an error which contains the specified exit status
// code.
func NewExitStatus(status uint8) error {
	return ExitStatus(status)
}

// Reset returns a runner to its initial state, right before the first call
// to Run or Reset.
//
// Typically, this function only needs to be called if a runner is reused
// to run multiple programs non-incrementally. Not calling Reset between
// each run will mean that the shell state will be kept, including
// variables, options, and the current directory.
func (r *Runner) Reset() {
	if !r.usedNew {
		panic("use interp.New to construct a Runner")
	}
	if !r.didReset {
		r.origDir = r.Dir
		r.origParams = r.Params
		r.origOpts = r.opts
		r.origStdin = r.stdin
		r.origStdout = r.stdout
		r.origStderr = r.stderr
	}
	// reset the internal state
	*r = Runner{
		Env:            r.Env,
		execHandler:    r.execHandler,
		execMiddleware: r.execMiddleware,
		openHandler:    r.openHandler,
		readDirHandler: r.readDirHandler,
		statHandler:    r.statHandler,
		interactive:    r.interactive,

		// These can be set by functions like Dir or Params, but
		// builtins can overwrite them; reset the fields to whatever the
		// constructor set up.
		Dir:    r.origDir,
		Params: r.origParams,
		opts:   r.origOpts,
		stdin:  r.origStdin,
		stdout: r.origStdout,
		stderr: r.origStderr,

		origDir:    r.origDir,
		origParams: r.origParams,
		origOpts:   r.origOpts,
		origStdin:  r.origStdin,
		origStdout: r.origStdout,
		origStderr: r.origStderr,

		// emptied below, to reuse the space
		Vars: r.Vars,

		usedNew:  r.usedNew,
		didReset: true,
	}
	if r.Vars == nil {
		r.Vars = make(map[string]expand.Variable)
	} else {
		clear(r.Vars)
	}
	if vr := r.Env.Get("HOME"); !vr.IsSet() {
		home, _ := os.UserHomeDir()
		r.setVarString("HOME", home)
	}
	r.setVarString("PWD", r.Dir)
	r.setVarString("IFS", " \t\n")
	r.setVarString("OPTIND", "1")
	r.dirStack = append(r.dirStack, r.Dir)
	r.ectx = context.Background()
	r.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	r.startTime = time.Now()
	r.jobs = newJobTable()
	r.pendingSigs = newSigState()
	r.ecfg = &expand.Config{
		Env:      expandEnv{r},
		CmdSubst: func(w io.Writer, cs *syntax.CmdSubst) error { return r.cmdSubst(w, cs) },
		ProcSubst: func(ps *syntax.ProcSubst) (string, error) {
			return r.procSubst(ps)
		},
		ReadDir: func(s string) ([]os.DirEntry, error) {
			return r.readDirHandler(r.handlerCtx(context.Background()), s)
		},
	}
	r.updateExpandOpts()
	r.refreshExecHandler()
}

func (r *Runner) refreshExecHandler() {
	handler := DefaultExecHandler(2 * time.Second)
	for i := len(r.execMiddleware) - 1; i >= 0; i-- {
		handler = r.execMiddleware[i](handler)
	}
	r.execHandler = handler
}

func (r *Runner) updateExpandOpts() {
	r.ecfg.NoGlob = r.opts[optNoGlob]
	r.ecfg.NoUnset = r.opts[optNoUnset]
}

// Run interprets a node, which can be a *File, *Stmt, or Command. If a
// non-nil error is returned, it will typically contain a command's exit
// status, which can be retrieved with IsExitStatus.
//
// Run can be called multiple times synchronously to interpret programs
// incrementally. To reuse a Runner without keeping the internal shell
// state, call Reset.
func (r *Runner) Run(ctx context.Context, node syntax.Node) error {
	if !r.didReset {
		r.Reset()
	}
	r.fatalErr = nil
	r.shellExited = false
	switch x := node.(type) {
	case *syntax.File:
		if x.Name != "" {
			r.filename = x.Name
		}
		for _, stmt := range x.Stmts {
			if r.opts[optVerbose] {
				r.errf("%s\n", stmtText(stmt))
			}
			r.stmt(ctx, stmt)
			if r.stop(ctx) {
				break
			}
		}
	case *syntax.Stmt:
		r.stmt(ctx, x)
	case syntax.Command:
		r.cmd(ctx, x)
	default:
		return fmt.Errorf("node can only be a File, Stmt, or Command: %T", x)
	}
	r.notifyJobs()
	if r.shellExited {
		r.runExitTrap(ctx)
	}
	if r.fatalErr != nil {
		return r.fatalErr
	}
	if r.exit != 0 {
		return NewExitStatus(uint8(r.exit))
	}
	return nil
}

// RunExitTrap runs the EXIT trap, if one is set. Front-ends call this
// once, right before the shell process terminates, so that a script which
// ends naturally still honors `trap ... EXIT`.
func (r *Runner) RunExitTrap(ctx context.Context) {
	r.runExitTrap(ctx)
}

// Exited reports whether the runner has exited, due to the exit builtin,
// a fatal error, or an errexit-triggered termination.
func (r *Runner) Exited() bool { return r.shellExited }

// Subshell makes a copy of the given Runner, suitable for use
// concurrently with the original. The copy will have the same environment,
// including variables and functions, but they can all be modified without
// affecting the original.
//
// Subshell is not safe to use concurrently with Run. Orchestrating this is
// left up to the caller; no locking is performed.
func (r *Runner) Subshell() *Runner {
	if !r.didReset {
		r.Reset()
	}
	r2 := &Runner{
		Dir:            r.Dir,
		Params:         r.Params,
		Env:            r.Env,
		execHandler:    r.execHandler,
		execMiddleware: r.execMiddleware,
		openHandler:    r.openHandler,
		readDirHandler: r.readDirHandler,
		statHandler:    r.statHandler,
		stdin:          r.stdin,
		stdout:         r.stdout,
		stderr:         r.stderr,
		filename:       r.filename,
		opts:           r.opts,
		usedNew:        r.usedNew,
		exit:           r.exit,
		lastExit:       r.lastExit,
		interactive:    false,

		traps:     maps.Clone(r.traps),
		alias:     maps.Clone(r.alias),
		sufAlias:  maps.Clone(r.sufAlias),
		hashCache: maps.Clone(r.hashCache),
	}
	r2.Vars = maps.Clone(r.Vars)
	if r2.Vars == nil {
		r2.Vars = make(map[string]expand.Variable)
	}
	r2.cmdVars = maps.Clone(r.cmdVars)
	for _, frame := range r.funcScopes {
		r2.funcScopes = append(r2.funcScopes, maps.Clone(frame))
	}
	r2.funcNames = append([]string(nil), r.funcNames...)
	r2.Funcs = maps.Clone(r.Funcs)
	r2.dirStack = append([]string(nil), r.dirStack...)
	r2.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	r2.startTime = r.startTime
	r2.jobs = newJobTable()
	r2.pendingSigs = newSigState()
	r2.extraFds = maps.Clone(r.extraFds)
	r2.ecfg = &expand.Config{
		Env:      expandEnv{r2},
		CmdSubst: func(w io.Writer, cs *syntax.CmdSubst) error { return r2.cmdSubst(w, cs) },
		ProcSubst: func(ps *syntax.ProcSubst) (string, error) {
			return r2.procSubst(ps)
		},
		ReadDir: func(s string) ([]os.DirEntry, error) {
			return r2.readDirHandler(r2.handlerCtx(context.Background()), s)
		},
	}
	r2.ectx = r.ectx
	r2.didReset = true
	r2.updateExpandOpts()
	return r2
}

func (r *Runner) outf(format string, a ...any) {
	fmt.Fprintf(r.stdout, format, a...)
}

func (r *Runner) errf(format string, a ...any) {
	fmt.Fprintf(r.stderr, format, a...)
}

func (r *Runner) out(s string) {
	io.WriteString(r.stdout, s)
}

// expandEnv exposes the runner's layered variable state as an
// expand.WriteEnviron, so that the expander can read special parameters
// and write assignments such as ${x:=y} back.
type expandEnv struct {
	r *Runner
}

func (e expandEnv) Get(name string) expand.Variable {
	return e.r.lookupVar(name)
}

func (e expandEnv) Set(name string, vr expand.Variable) error {
	return e.r.setVarErr(name, vr)
}

func (e expandEnv) Each(fn func(name string, vr expand.Variable) bool) {
	e.r.eachVar(fn)
}

// handlerCtx returns a context with the runner's handler context values
// filled in.
func (r *Runner) handlerCtx(ctx context.Context) context.Context {
	hc := HandlerContext{
		Env:    expandEnv{r},
		Dir:    r.Dir,
		Stdin:  r.stdin,
		Stdout: r.stdout,
		Stderr: r.stderr,
	}
	return context.WithValue(ctx, handlerCtxKey{}, hc)
}

// HandlerContext is the data passed to all the handler functions via
// context.WithValue. It contains some of the current state of the Runner.
type HandlerContext struct {
	// Env is a read-only version of the interpreter's environment,
	// including environment variables, global variables, and local
	// function variables.
	Env expand.Environ

	// Dir is the interpreter's current directory.
	Dir string

	// Stdin is the interpreter's current standard input reader.
	Stdin io.Reader
	// Stdout is the interpreter's current standard output writer.
	Stdout io.Writer
	// Stderr is the interpreter's current standard error writer.
	Stderr io.Writer
}

type handlerCtxKey struct{}

// HandlerCtx returns the HandlerContext value stored in ctx, if any.
func HandlerCtx(ctx context.Context) HandlerContext {
	hc, ok := ctx.Value(handlerCtxKey{}).(HandlerContext)
	if !ok {
		panic("interp.HandlerCtx: no HandlerContext in ctx")
	}
	return hc
}

// IsExitStatus checks whether error contains an exit status and returns
// it.
func IsExitStatus(err error) (status uint8, ok bool) {
	var s ExitStatus
	if errors.As(err, &s) {
		return uint8(s), true
	}
	return 0, false
}
