// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gshell-dev/gsh/expand"
	"github.com/gshell-dev/gsh/syntax"
)

func (r *Runner) stmts(ctx context.Context, stmts []*syntax.Stmt) {
	for _, stmt := range stmts {
		r.stmt(ctx, stmt)
		if r.stop(ctx) {
			break
		}
	}
}

// stop reports whether the runner should halt the current statement list,
// due to context cancellation, the shell exiting, or non-local control
// flow such as break, continue, and return.
func (r *Runner) stop(ctx context.Context) bool {
	if r.fatalErr != nil || r.shellExited {
		return true
	}
	if err := ctx.Err(); err != nil {
		r.fatalErr = err
		return true
	}
	if r.returning {
		return true
	}
	if r.breakEnclosing > 0 || r.contnEnclosing > 0 {
		return true
	}
	return false
}

func (r *Runner) stmt(ctx context.Context, st *syntax.Stmt) {
	if r.stop(ctx) {
		return
	}
	if r.opts[optNoExec] {
		return
	}
	r.runPendingTraps(ctx)
	if st.Background {
		r.bgStmt(ctx, st)
		return
	}
	r.stmtSync(ctx, st)
	r.lastExit = r.exit
}

// bgStmt starts a statement as a background job in a subshell copy of the
// runner, without waiting for it.
func (r *Runner) bgStmt(ctx context.Context, st *syntax.Stmt) {
	r2 := r.Subshell()
	st2 := *st
	st2.Background = false
	job := r.jobs.add(stmtText(st), nil)
	r.bgPID = job.pid
	if r.interactive && r.opts[optMonitor] {
		r.errf("[%d] %d\n", job.id, job.pid)
	}
	go func() {
		r2.stmtSync(ctx, &st2)
		r.jobs.finish(job, r2.exit)
	}()
	r.exit = 0
	r.lastExit = 0
}

// stmtText renders a statement back to source for job listings and
// FUNCNAME-style diagnostics.
func stmtText(node syntax.Node) string {
	var sb strings.Builder
	if err := syntax.NewPrinter().Print(&sb, node); err != nil {
		return ""
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func (r *Runner) stmtSync(ctx context.Context, st *syntax.Stmt) {
	defer r.runPendingTraps(ctx)
	oldIn, oldOut, oldErr := r.stdin, r.stdout, r.stderr
	oldExtra := r.extraFds
	var closers []io.Closer
	for _, rd := range st.Redirs {
		cl, err := r.redir(ctx, rd)
		if err != nil {
			r.closeAll(closers)
			r.stdin, r.stdout, r.stderr = oldIn, oldOut, oldErr
			r.extraFds = oldExtra
			r.exit = 1
			r.errexitCheck(ctx)
			return
		}
		if cl != nil {
			closers = append(closers, cl)
		}
	}
	if st.Cmd == nil {
		r.exit = 0
	} else {
		r.cmd(ctx, st.Cmd)
	}
	if st.Negated {
		if r.exit == 0 {
			r.exit = 1
		} else {
			r.exit = 0
		}
	}
	r.closeAll(closers)
	if !r.keepRedirs() {
		r.stdin, r.stdout, r.stderr = oldIn, oldOut, oldErr
		r.extraFds = oldExtra
	}
	if !st.Negated {
		r.errexitCheck(ctx)
	}
}

// keepRedirs reports whether the last command asked for its redirections
// to stick to the shell itself, which only `exec` without arguments does.
func (r *Runner) keepRedirs() bool {
	if r.keepRedirsOnce {
		r.keepRedirsOnce = false
		return true
	}
	return false
}

func (r *Runner) closeAll(closers []io.Closer) {
	for _, c := range closers {
		c.Close()
	}
}

// errexitCheck runs the ERR trap after any untested command failure, and
// terminates the shell when errexit is also active. Once errexit has
// ended the shell, the shellExited guard keeps the enclosing statements'
// checks from firing the trap again for the same failure.
func (r *Runner) errexitCheck(ctx context.Context) {
	if r.exit == 0 || r.noErrExit || r.shellExited {
		return
	}
	r.runErrTrap(ctx)
	if r.opts[optErrExit] {
		r.shellExited = true
	}
}

func (r *Runner) cmd(ctx context.Context, cm syntax.Command) {
	if r.stop(ctx) {
		return
	}
	switch x := cm.(type) {
	case *syntax.Block:
		r.stmts(ctx, x.Stmts)
	case *syntax.Subshell:
		r2 := r.Subshell()
		r2.stmts(ctx, x.Stmts)
		r.exit = r2.exit
	case *syntax.CallExpr:
		r.call(ctx, x)
	case *syntax.BinaryCmd:
		switch x.Op {
		case syntax.AndStmt, syntax.OrStmt:
			oldNoErrExit := r.noErrExit
			r.noErrExit = true
			r.stmtSync(ctx, x.X)
			r.noErrExit = oldNoErrExit
			if r.stop(ctx) {
				return
			}
			if (r.exit == 0) == (x.Op == syntax.AndStmt) {
				r.stmtSync(ctx, x.Y)
			}
		case syntax.Pipe, syntax.PipeAll:
			r.pipeline(ctx, x)
		}
	case *syntax.IfClause:
		r.ifClause(ctx, x)
	case *syntax.WhileClause:
		r.whileClause(ctx, x)
	case *syntax.ForClause:
		r.forClause(ctx, x)
	case *syntax.CaseClause:
		r.caseClause(ctx, x)
	case *syntax.FuncDecl:
		r.setFunc(x.Name.Value, x.Body, stmtText(x))
		r.exit = 0
	case *syntax.ArithmCmd:
		n, err := expand.Arithm(r.ecfg, x.X)
		if err != nil {
			r.expandErr(err)
			return
		}
		if n == 0 {
			r.exit = 1
		} else {
			r.exit = 0
		}
	case *syntax.LetClause:
		var n int64
		for _, expr := range x.Exprs {
			var err error
			n, err = expand.Arithm(r.ecfg, expr)
			if err != nil {
				r.expandErr(err)
				return
			}
		}
		if n == 0 {
			r.exit = 1
		} else {
			r.exit = 0
		}
	case *syntax.TestClause:
		if r.bashTest(ctx, x.X, false) == "" && r.exit == 0 {
			// to preserve exit status code 2 for regex errors, etc
			r.exit = 1
		}
	case *syntax.DeclClause:
		r.declClause(ctx, x)
	default:
		panic(fmt.Sprintf("interp: unexpected command node %T", x))
	}
}

func (r *Runner) ifClause(ctx context.Context, ic *syntax.IfClause) {
	for ; ic != nil; ic = ic.Else {
		if len(ic.Cond) == 0 {
			// plain else
			r.stmts(ctx, ic.Then)
			return
		}
		oldNoErrExit := r.noErrExit
		r.noErrExit = true
		r.stmts(ctx, ic.Cond)
		r.noErrExit = oldNoErrExit
		if r.stop(ctx) {
			return
		}
		if r.exit == 0 {
			r.stmts(ctx, ic.Then)
			return
		}
	}
	r.exit = 0
}

func (r *Runner) whileClause(ctx context.Context, wc *syntax.WhileClause) {
	// the loop's status is that of the last body command, not of the
	// final condition check
	bodyExit := 0
	for !r.stop(ctx) {
		oldNoErrExit := r.noErrExit
		r.noErrExit = true
		r.stmts(ctx, wc.Cond)
		r.noErrExit = oldNoErrExit
		if (r.exit == 0) == wc.Until {
			break
		}
		stopped := r.loopStmts(ctx, wc.Do)
		bodyExit = r.exit
		if stopped {
			break
		}
	}
	r.exit = bodyExit
}

func (r *Runner) forClause(ctx context.Context, fc *syntax.ForClause) {
	switch loop := fc.Loop.(type) {
	case *syntax.WordIter:
		name := loop.Name.Value
		items := r.Params // for i; do ...
		if loop.InPos.IsValid() {
			items = r.fields(ctx, loop.Items...)
		}
		r.exit = 0
		for _, field := range items {
			r.setVarString(name, field)
			if r.loopStmts(ctx, fc.Do) || r.stop(ctx) {
				break
			}
		}
	case *syntax.CStyleLoop:
		if loop.Init != nil {
			if _, err := expand.Arithm(r.ecfg, loop.Init); err != nil {
				r.expandErr(err)
				return
			}
		}
		bodyExit := 0
		for !r.stop(ctx) {
			if loop.Cond != nil {
				cond, err := expand.Arithm(r.ecfg, loop.Cond)
				if err != nil {
					r.expandErr(err)
					return
				}
				if cond == 0 {
					break
				}
			}
			stopped := r.loopStmts(ctx, fc.Do)
			bodyExit = r.exit
			if stopped {
				break
			}
			if loop.Post != nil {
				if _, err := expand.Arithm(r.ecfg, loop.Post); err != nil {
					r.expandErr(err)
					return
				}
			}
		}
		r.exit = bodyExit
	}
}

// loopStmts runs a loop body once, returning true if the enclosing loop
// should stop due to break, continue with an outer target, or the shell
// halting.
func (r *Runner) loopStmts(ctx context.Context, stmts []*syntax.Stmt) bool {
	oldInLoop := r.inLoop
	r.inLoop = true
	defer func() { r.inLoop = oldInLoop }()
	r.stmts(ctx, stmts)
	if r.contnEnclosing > 0 {
		r.contnEnclosing--
		return r.contnEnclosing > 0
	}
	if r.breakEnclosing > 0 {
		r.breakEnclosing--
		return true
	}
	return r.returning || r.shellExited || r.fatalErr != nil
}

func (r *Runner) caseClause(ctx context.Context, cc *syntax.CaseClause) {
	subject := r.literal(ctx, cc.Word)
	r.exit = 0
	for i := 0; i < len(cc.Items); i++ {
		ci := cc.Items[i]
		matched := false
		for _, word := range ci.Patterns {
			pat := r.lonePattern(ctx, word)
			if match(pat, subject) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		r.stmts(ctx, ci.Stmts)
		for ci.Op == syntax.Fallthrough && i+1 < len(cc.Items) && !r.stop(ctx) {
			i++
			ci = cc.Items[i]
			r.stmts(ctx, ci.Stmts)
		}
		if ci.Op != syntax.Resume {
			return
		}
	}
}

func match(pat, name string) bool {
	ok, _ := patternMatch(pat, name)
	return ok
}

// call executes a simple command: assignments, then the argv resolution
// order of functions, builtins, suffix aliases, and external programs.
func (r *Runner) call(ctx context.Context, ce *syntax.CallExpr) {
	if len(ce.Args) == 0 {
		// pure assignment statement
		r.exit = 0
		r.lastExpandExit = 0
		for _, as := range ce.Assigns {
			name := as.Name.Value
			vr := r.assignVal(ctx, as, "")
			if as.Index != nil {
				r.setVarWithIndex(ctx, name, as.Index, vr)
			} else {
				r.setVar(name, vr)
			}
			if r.opts[optXTrace] {
				r.xtracef("%s=%s\n", name, vr.String())
			}
		}
		if len(ce.Assigns) > 0 && r.exit == 0 {
			r.exit = r.lastExpandExit
		}
		return
	}
	r.lastExpandExit = 0
	words := ce.Args
	if r.interactive {
		words = r.expandAliases(words)
	}
	fields := r.fields(ctx, words...)
	if len(fields) == 0 {
		// everything expanded to nothing; run the assignments only
		for _, as := range ce.Assigns {
			vr := r.assignVal(ctx, as, "")
			r.setVarWithIndex(ctx, as.Name.Value, as.Index, vr)
		}
		return
	}
	// apply temp assignment prefixes for the duration of the command
	if len(ce.Assigns) > 0 {
		oldCmdVars := r.cmdVars
		r.cmdVars = make(map[string]expand.Variable, len(ce.Assigns))
		for k, v := range oldCmdVars {
			r.cmdVars[k] = v
		}
		for _, as := range ce.Assigns {
			vr := r.assignVal(ctx, as, "")
			vr.Exported = true
			r.cmdVars[as.Name.Value] = vr
		}
		defer func() { r.cmdVars = oldCmdVars }()
	}
	if r.opts[optXTrace] {
		r.xtracef("%s\n", strings.Join(fields, " "))
	}
	r.runDebugTrap(ctx)
	name := fields[0]
	r.exec(ctx, name, fields)
}

// exec resolves and runs an argv. The resolution order is: shell
// functions, builtins, suffix aliases, and finally a program found in
// PATH via the exec handler.
func (r *Runner) exec(ctx context.Context, name string, fields []string) {
	if f, ok := r.Funcs[name]; ok {
		r.callFunc(ctx, name, f, fields[1:])
		return
	}
	if isBuiltin(name) {
		r.exit = r.builtin(ctx, name, fields[1:])
		return
	}
	if prefix, ok := r.lookupSufAlias(name); ok {
		fields = append([]string{prefix}, fields...)
		name = prefix
	}
	r.exit = r.execProgram(ctx, name, fields)
}

// lookupSufAlias matches argv[0] against the suffix alias table by file
// extension, as in `alias -s log=less`.
func (r *Runner) lookupSufAlias(name string) (string, bool) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return "", false
	}
	prefix, ok := r.sufAlias[name[i+1:]]
	return prefix, ok
}

func (r *Runner) callFunc(ctx context.Context, name string, f *Func, args []string) {
	oldParams := r.Params
	r.Params = args
	r.funcScopes = append(r.funcScopes, map[string]expand.Variable{})
	r.funcNames = append(r.funcNames, name)
	defer func() {
		r.Params = oldParams
		r.funcScopes = r.funcScopes[:len(r.funcScopes)-1]
		r.funcNames = r.funcNames[:len(r.funcNames)-1]
		r.returning = false
		r.runReturnTrap(ctx)
	}()
	r.stmtSync(ctx, f.Body)
}

// execProgram runs an external program via the exec handler chain.
func (r *Runner) execProgram(ctx context.Context, name string, fields []string) int {
	err := r.execHandler(r.handlerCtx(ctx), fields)
	switch err := err.(type) {
	case nil:
		return 0
	case ExitStatus:
		return int(err)
	default:
		if status, ok := IsExitStatus(err); ok {
			return int(status)
		}
		r.errf("gsh: %v\n", err)
		return 1
	}
}

// expandAliases rewrites the leading words of a command using the alias
// table, re-lexing replacements and blocking self-recursion.
func (r *Runner) expandAliases(words []*syntax.Word) []*syntax.Word {
	return r.expandAliasesRec(words, map[string]bool{})
}

func (r *Runner) expandAliasesRec(words []*syntax.Word, inProgress map[string]bool) []*syntax.Word {
	if len(words) == 0 {
		return words
	}
	lit := words[0].Lit()
	if lit == "" || inProgress[lit] {
		return words
	}
	al, ok := r.alias[lit]
	if !ok {
		return words
	}
	inProgress[lit] = true
	file, err := syntax.NewParser().ParseBytes([]byte(al.repl), "")
	if err != nil || len(file.Stmts) != 1 {
		return words
	}
	call, ok := file.Stmts[0].Cmd.(*syntax.CallExpr)
	if !ok || len(call.Assigns) > 0 {
		return words
	}
	repl := r.expandAliasesRec(call.Args, inProgress)
	rest := words[1:]
	if al.blank && len(rest) > 0 {
		rest = r.expandAliasesRec(rest, map[string]bool{})
	}
	return append(append([]*syntax.Word{}, repl...), rest...)
}

// Expansion helpers. Expansion errors surface as exit status 1 with a
// diagnostic, without stopping the whole shell unless fatal.

func (r *Runner) expandErr(err error) {
	if err == nil {
		return
	}
	switch err.(type) {
	case expand.UnsetParameterError:
		r.errf("gsh: %v\n", err)
		r.exit = 1
		if !r.interactive {
			r.shellExited = true
		}
	default:
		r.errf("gsh: %v\n", err)
		r.exit = 1
	}
	r.lastExpandExit = r.exit
}

func (r *Runner) fields(ctx context.Context, words ...*syntax.Word) []string {
	r.ectx = ctx
	fields, err := expand.Fields(r.ecfg, words...)
	if err != nil {
		r.expandErr(err)
		return nil
	}
	return fields
}

func (r *Runner) literal(ctx context.Context, word *syntax.Word) string {
	r.ectx = ctx
	s, err := expand.Literal(r.ecfg, word)
	if err != nil {
		r.expandErr(err)
		return ""
	}
	return s
}

func (r *Runner) document(ctx context.Context, word *syntax.Word) string {
	r.ectx = ctx
	s, err := expand.Document(r.ecfg, word)
	if err != nil {
		r.expandErr(err)
		return ""
	}
	return s
}

func (r *Runner) lonePattern(ctx context.Context, word *syntax.Word) string {
	r.ectx = ctx
	s, err := expand.Pattern(r.ecfg, word)
	if err != nil {
		r.expandErr(err)
		return ""
	}
	return s
}

// cmdSubst runs a command substitution in a subshell copy of the runner,
// capturing its standard output.
func (r *Runner) cmdSubst(w io.Writer, cs *syntax.CmdSubst) error {
	r2 := r.Subshell()
	r2.stdout = w
	r2.stmts(r.ectx, cs.Stmts)
	r.exit = r2.exit
	r.lastExpandExit = r2.exit
	return r2.fatalErr
}

// pipeline runs a multi-stage pipeline. All stages are started before any
// is waited for; every stage but the last runs in a subshell copy, while
// the last stage runs in the current shell so that builtins like read can
// mutate the parent's variables.
func (r *Runner) pipeline(ctx context.Context, b *syntax.BinaryCmd) {
	var stmts []*syntax.Stmt
	var ops []syntax.BinCmdOperator
	flattenPipe(b, &stmts, &ops)
	statuses := make([]int, len(stmts))
	var g errgroup.Group
	prevRead := r.stdin
	for i, st := range stmts[:len(stmts)-1] {
		pr, pw, err := os.Pipe()
		if err != nil {
			r.fatalErr = err
			return
		}
		r2 := r.Subshell()
		r2.stdin = prevRead
		r2.stdout = pw
		if ops[i] == syntax.PipeAll {
			r2.stderr = pw
		}
		// a stage failing on its own never triggers errexit or the ERR
		// trap; only the pipeline's overall status can, in the caller
		r2.noErrExit = true
		i, st := i, st
		stdinCloser, _ := r2.stdin.(io.Closer)
		if r2.stdin == r.stdin {
			stdinCloser = nil // not ours to close
		}
		g.Go(func() error {
			r2.stmtSync(ctx, st)
			statuses[i] = r2.exit
			pw.Close()
			if stdinCloser != nil {
				stdinCloser.Close()
			}
			return nil
		})
		prevRead = pr
	}
	oldIn := r.stdin
	r.stdin = prevRead
	last := stmts[len(stmts)-1]
	oldNoErrExit := r.noErrExit
	r.noErrExit = true
	r.stmtSync(ctx, last)
	r.noErrExit = oldNoErrExit
	statuses[len(stmts)-1] = r.exit
	r.stdin = oldIn
	// Close the read end before waiting, so that stages still writing
	// into a full pipe see a closed peer rather than blocking forever.
	if c, ok := prevRead.(io.Closer); ok && prevRead != oldIn {
		c.Close()
	}
	g.Wait()
	r.pipeStatus = statuses
	r.exit = statuses[len(statuses)-1]
	if r.opts[optPipeFail] {
		for _, st := range statuses {
			if st != 0 {
				r.exit = st
			}
		}
	}
}

// flattenPipe turns a right-leaning tree of pipe operators into the flat
// list of pipeline stages, with ops[i] joining stages i and i+1.
func flattenPipe(b *syntax.BinaryCmd, stmts *[]*syntax.Stmt, ops *[]syntax.BinCmdOperator) {
	*stmts = append(*stmts, b.X)
	*ops = append(*ops, b.Op)
	if next, ok := b.Y.Cmd.(*syntax.BinaryCmd); ok &&
		(next.Op == syntax.Pipe || next.Op == syntax.PipeAll) &&
		len(b.Y.Redirs) == 0 && !b.Y.Negated && !b.Y.Background {
		flattenPipe(next, stmts, ops)
		return
	}
	*stmts = append(*stmts, b.Y)
}

func (r *Runner) declClause(ctx context.Context, ds *syntax.DeclClause) {
	// The arguments cannot be expanded into plain strings, as assignment
	// values must not undergo field splitting. The builtin works on the
	// Assign nodes directly instead.
	r.exit = r.declBuiltin(ctx, ds.Variant.Value, ds.Args)
}

func (r *Runner) xtracef(format string, args ...any) {
	ps4 := r.getVar("PS4")
	if ps4 == "" {
		ps4 = "+ "
	}
	r.errf("%s", ps4)
	r.errf(format, args...)
}
