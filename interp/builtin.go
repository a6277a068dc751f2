// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package interp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gshell-dev/gsh/expand"
	"github.com/gshell-dev/gsh/syntax"
)

// isBuiltin returns true if the given word is a shell builtin.
func isBuiltin(name string) bool {
	switch name {
	case ":", "true", "false", "exit", "set", "shift", "unset",
		"echo", "printf", "break", "continue", "pwd", "cd",
		"wait", "builtin", "trap", "type", "source", ".", "command",
		"dirs", "pushd", "popd", "umask", "alias", "unalias",
		"fg", "bg", "jobs", "disown", "suspend", "kill", "getopts",
		"eval", "test", "[", "exec", "return", "read", "hash",
		"export", "readonly", "declare", "typeset", "local", "nameref",
		"let":
		return true
	}
	return false
}

// isSpecialBuiltin reports the POSIX special builtins, which are found
// before regular builtins and whose assignment prefixes persist.
func isSpecialBuiltin(name string) bool {
	switch name {
	case ":", ".", "break", "continue", "eval", "exec", "exit",
		"export", "readonly", "return", "set", "shift", "trap", "unset":
		return true
	}
	return false
}

// atoi is like strconv.ParseInt, but it ignores errors and trims
// whitespace, matching how shells treat numeric builtin operands.
func atoi(s string) int {
	s = strings.TrimSpace(s)
	n, _ := strconv.Atoi(s)
	return n
}

func (r *Runner) builtin(ctx context.Context, name string, args []string) int {
	failf := func(code int, format string, fargs ...any) int {
		r.errf("gsh: "+format, fargs...)
		return code
	}
	switch name {
	case ":", "true":
		return 0
	case "false":
		return 1
	case "exit":
		code := r.lastExit
		switch len(args) {
		case 0:
		case 1:
			n, err := strconv.Atoi(args[0])
			if err != nil {
				r.shellExited = true
				return failf(2, "exit: %s: numeric argument required\n", args[0])
			}
			code = n & 0xff
		default:
			return failf(1, "exit: too many arguments\n")
		}
		r.shellExited = true
		return code
	case "set":
		if err := Params(args...)(r); err != nil {
			return failf(2, "set: %v\n", err)
		}
		r.updateExpandOpts()
		return 0
	case "shift":
		n := 1
		switch len(args) {
		case 0:
		case 1:
			if n2, err := strconv.Atoi(args[0]); err == nil {
				n = n2
				break
			}
			fallthrough
		default:
			return failf(2, "shift: usage: shift [n]\n")
		}
		if n < 0 || n > len(r.Params) {
			return failf(1, "shift: shift count out of range\n")
		}
		r.Params = r.Params[n:]
		return 0
	case "unset":
		vars, funcs := true, false
	unsetOpts:
		for len(args) > 0 {
			switch args[0] {
			case "-v":
				vars, funcs = true, false
			case "-f":
				vars, funcs = false, true
			case "--":
				args = args[1:]
				break unsetOpts
			default:
				break unsetOpts
			}
			args = args[1:]
		}
		for _, arg := range args {
			name, idx := splitSubscript(arg)
			switch {
			case funcs:
				delete(r.Funcs, arg)
			case idx != "":
				r.unsetElem(ctx, name, idx)
			case vars && r.lookupVar(name).Declared():
				r.delVar(name)
			default:
				delete(r.Funcs, name)
			}
		}
		return r.exit
	case "echo":
		newline, interpret := true, false
	echoOpts:
		for len(args) > 0 {
			switch args[0] {
			case "-n":
				newline = false
			case "-e":
				interpret = true
			case "-E":
				interpret = false
			default:
				break echoOpts
			}
			args = args[1:]
		}
		for i, arg := range args {
			if i > 0 {
				r.out(" ")
			}
			if interpret {
				s, _, _ := expand.Format(arg, nil)
				r.out(s)
			} else {
				r.out(arg)
			}
		}
		if newline {
			r.out("\n")
		}
		return 0
	case "printf":
		if len(args) == 0 {
			return failf(2, "printf: usage: printf [-v var] format [arguments]\n")
		}
		var capture string
		doCapture := false
		if args[0] == "-v" {
			if len(args) < 3 {
				return failf(2, "printf: -v: option requires an argument\n")
			}
			capture, doCapture = args[1], true
			args = args[2:]
		}
		format, fmtArgs := args[0], args[1:]
		var sb strings.Builder
		for {
			s, consumed, err := expand.Format(format, fmtArgs)
			if err != nil {
				return failf(1, "printf: %v\n", err)
			}
			sb.WriteString(s)
			if consumed == 0 || consumed >= len(fmtArgs) {
				break
			}
			fmtArgs = fmtArgs[consumed:]
		}
		if doCapture {
			r.setVarString(capture, sb.String())
		} else {
			r.out(sb.String())
		}
		return 0
	case "break", "continue":
		if !r.inLoop {
			return failf(0, "%s: only meaningful in a loop\n", name)
		}
		n := 1
		if len(args) == 1 {
			if n2, err := strconv.Atoi(args[0]); err == nil {
				n = n2
			}
		}
		if n < 1 {
			return failf(1, "%s: loop count out of range\n", name)
		}
		if name == "break" {
			r.breakEnclosing = n
		} else {
			r.contnEnclosing = n
		}
		return 0
	case "return":
		if len(r.funcNames) == 0 && !r.inSource {
			return failf(1, "return: can only be done from a func or sourced script\n")
		}
		code := r.lastExit
		if len(args) >= 1 {
			code = atoi(args[0]) & 0xff
		}
		r.returning = true
		return code
	case "pwd":
		r.outf("%s\n", r.getVar("PWD"))
		return 0
	case "cd":
		path := ""
		switch len(args) {
		case 0:
		case 1:
			path = args[0]
		default:
			return failf(1, "cd: too many arguments\n")
		}
		return r.changeDir(path, true)
	case "eval":
		src := strings.Join(args, " ")
		file, err := syntax.NewParser().ParseBytes([]byte(src), "eval")
		if err != nil {
			return failf(2, "eval: %v\n", err)
		}
		r.stmts(ctx, file.Stmts)
		return r.exit
	case "source", ".":
		if len(args) < 1 {
			return failf(2, "%s: filename argument required\n", name)
		}
		return r.sourceFile(ctx, args[0], args[1:])
	case "command":
		show := false
		verbose := false
	commandOpts:
		for len(args) > 0 {
			switch args[0] {
			case "-v":
				show = true
			case "-V":
				show, verbose = true, true
			case "-p", "--":
			default:
				break commandOpts
			}
			args = args[1:]
		}
		if len(args) == 0 {
			return failf(2, "command: usage: command [-vV] name [arg ...]\n")
		}
		if show {
			return r.describeCommand(args[0], verbose)
		}
		// bypass functions
		if isBuiltin(args[0]) {
			return r.builtin(ctx, args[0], args[1:])
		}
		return r.execProgram(ctx, args[0], args)
	case "type":
		code := 0
		for _, arg := range args {
			if r.describeCommand(arg, true) != 0 {
				code = 1
			}
		}
		return code
	case "builtin":
		if len(args) < 1 {
			return 0
		}
		if !isBuiltin(args[0]) {
			return failf(1, "builtin: %s: not a shell builtin\n", args[0])
		}
		return r.builtin(ctx, args[0], args[1:])
	case "alias":
		return r.aliasBuiltin(args)
	case "unalias":
		suffix := false
		all := false
	unaliasOpts:
		for len(args) > 0 {
			switch args[0] {
			case "-s":
				suffix = true
			case "-a":
				all = true
			default:
				break unaliasOpts
			}
			args = args[1:]
		}
		if all {
			if suffix {
				r.sufAlias = nil
			} else {
				r.alias = nil
			}
			return 0
		}
		for _, arg := range args {
			if suffix {
				delete(r.sufAlias, arg)
			} else {
				delete(r.alias, arg)
			}
		}
		return 0
	case "trap":
		return r.trapBuiltin(ctx, args)
	case "read":
		return r.readBuiltin(ctx, args)
	case "getopts":
		return r.getoptsBuiltin(args)
	case "wait":
		return r.waitBuiltin(ctx, args)
	case "jobs":
		for _, j := range r.jobs.list() {
			r.outf("[%d]  %-8s %s\n", j.id, j.state, j.cmd)
			if j.state == jobDone {
				j.notified = true
			}
		}
		r.jobs.reap()
		return 0
	case "fg", "bg", "disown", "suspend", "kill":
		return r.jobBuiltin(ctx, name, args)
	case "hash":
		return r.hashBuiltin(args)
	case "umask":
		return r.umaskBuiltin(args)
	case "dirs":
		for i := len(r.dirStack) - 1; i >= 0; i-- {
			r.outf("%s", r.dirStack[i])
			if i > 0 {
				r.out(" ")
			}
		}
		r.out("\n")
		return 0
	case "pushd":
		if len(args) == 0 {
			if len(r.dirStack) < 2 {
				return failf(1, "pushd: no other directory\n")
			}
			n := len(r.dirStack)
			r.dirStack[n-1], r.dirStack[n-2] = r.dirStack[n-2], r.dirStack[n-1]
			return r.changeDir(r.dirStack[n-1], false)
		}
		if code := r.changeDir(args[0], false); code != 0 {
			return code
		}
		r.dirStack = append(r.dirStack, r.Dir)
		return 0
	case "popd":
		if len(r.dirStack) < 2 {
			return failf(1, "popd: directory stack empty\n")
		}
		r.dirStack = r.dirStack[:len(r.dirStack)-1]
		return r.changeDir(r.dirStack[len(r.dirStack)-1], false)
	case "test", "[":
		if name == "[" {
			if len(args) == 0 || args[len(args)-1] != "]" {
				return failf(2, "[: missing closing ]\n")
			}
			args = args[:len(args)-1]
		}
		return r.classicTest(args)
	case "exec":
		if len(args) == 0 {
			r.keepRedirsOnce = true
			return 0
		}
		return r.execReplace(ctx, args)
	case "export", "readonly", "declare", "typeset", "local", "nameref":
		// reached when called through `builtin` or with expanded
		// arguments; reconstruct assignments from the plain strings
		asgs := make([]*syntax.Assign, 0, len(args))
		for _, arg := range args {
			asgs = append(asgs, parseAssign(arg))
		}
		return r.declBuiltin(ctx, name, asgs)
	case "let":
		if len(args) == 0 {
			return failf(2, "let: expression expected\n")
		}
		var n int64
		for _, arg := range args {
			expr, err := syntax.NewParser().ParseArithm(arg)
			if err != nil || expr == nil {
				return failf(1, "let: %s: syntax error\n", arg)
			}
			if n, err = expand.Arithm(r.ecfg, expr); err != nil {
				return failf(1, "let: %v\n", err)
			}
		}
		if n == 0 {
			return 1
		}
		return 0
	default:
		panic(fmt.Sprintf("interp: unhandled builtin: %s", name))
	}
}

// parseAssign splits a plain "name=value" argument into an Assign node,
// used when declaration builtins receive already expanded words.
func parseAssign(arg string) *syntax.Assign {
	as := &syntax.Assign{}
	if strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "+") {
		as.Naked = true
		as.Value = litWord(arg)
		return as
	}
	name, val, ok := strings.Cut(arg, "=")
	if !ok || !syntax.ValidName(strings.TrimSuffix(name, "+")) {
		as.Naked = true
		if syntax.ValidName(arg) {
			as.Name = &syntax.Lit{Value: arg}
		} else {
			as.Value = litWord(arg)
		}
		return as
	}
	if strings.HasSuffix(name, "+") {
		as.Append = true
		name = strings.TrimSuffix(name, "+")
	}
	as.Name = &syntax.Lit{Value: name}
	as.Value = quotedLitWord(val)
	return as
}

func litWord(s string) *syntax.Word {
	return &syntax.Word{Parts: []syntax.WordPart{&syntax.Lit{Value: s}}}
}

// quotedLitWord builds a word that expands to exactly s, with no further
// word expansion applied.
func quotedLitWord(s string) *syntax.Word {
	return &syntax.Word{Parts: []syntax.WordPart{
		&syntax.SglQuoted{Value: s},
	}}
}

func splitSubscript(arg string) (name, idx string) {
	if i := strings.IndexByte(arg, '['); i > 0 && strings.HasSuffix(arg, "]") {
		return arg[:i], arg[i+1 : len(arg)-1]
	}
	return arg, ""
}

// unsetElem unsets one element of an array variable.
func (r *Runner) unsetElem(ctx context.Context, name, idx string) {
	vr := r.lookupVar(name)
	switch vr.Kind {
	case expand.Indexed:
		iw := litWord(idx)
		n, err := expand.Arithm(r.ecfg, iw)
		if err != nil || n < 0 || n >= int64(len(vr.List)) {
			return
		}
		list := append([]string(nil), vr.List...)
		list[n] = ""
		vr.List = list
		r.setVar(name, vr)
	case expand.Associative:
		m := make(map[string]string, len(vr.Map))
		for k, v := range vr.Map {
			m[k] = v
		}
		delete(m, strings.Trim(idx, `"'`))
		vr.Map = m
		r.setVar(name, vr)
	}
}

// changeDir implements cd and the directory-stack builtins. When
// updateOld is set, OLDPWD is updated, and "-" switches to it.
func (r *Runner) changeDir(path string, updateOld bool) int {
	prev := r.Dir
	switch path {
	case "":
		path = r.getVar("HOME")
		if path == "" {
			r.errf("gsh: cd: HOME not set\n")
			return 1
		}
	case "-":
		path = r.getVar("OLDPWD")
		if path == "" {
			r.errf("gsh: cd: OLDPWD not set\n")
			return 1
		}
		r.outf("%s\n", path)
	}
	dest := r.resolveDir(path)
	if dest == "" {
		r.errf("gsh: cd: %s: No such file or directory\n", path)
		return 1
	}
	r.Dir = dest
	if updateOld {
		r.setVarString("OLDPWD", prev)
	}
	r.setVarString("PWD", dest)
	return 0
}

// resolveDir turns a cd operand into an absolute directory, consulting
// CDPATH for relative paths the way the standard requires.
func (r *Runner) resolveDir(path string) string {
	try := func(dir string) string {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(r.Dir, dir)
		}
		dir = filepath.Clean(dir)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return ""
		}
		return dir
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "./") ||
		strings.HasPrefix(path, "../") || path == "." || path == ".." {
		return try(path)
	}
	for _, prefix := range filepath.SplitList(r.getVar("CDPATH")) {
		if prefix == "" {
			continue
		}
		if dir := try(filepath.Join(prefix, path)); dir != "" {
			return dir
		}
	}
	return try(path)
}

func (r *Runner) sourceFile(ctx context.Context, path string, args []string) int {
	f, err := r.open(ctx, path, os.O_RDONLY, 0)
	if err != nil {
		r.errf("gsh: %s: No such file or directory\n", path)
		return 1
	}
	defer f.Close()
	file, err := syntax.NewParser().Parse(f, path)
	if err != nil {
		r.errf("gsh: %v\n", err)
		return 2
	}
	oldParams := r.Params
	if len(args) > 0 {
		r.Params = args
	}
	oldInSource := r.inSource
	r.inSource = true
	r.stmts(ctx, file.Stmts)
	r.inSource = oldInSource
	if len(args) > 0 {
		r.Params = oldParams
	}
	r.returning = false
	r.runReturnTrap(ctx)
	return r.exit
}

func (r *Runner) describeCommand(name string, verbose bool) int {
	if al, ok := r.alias[name]; ok {
		if verbose {
			r.outf("%s is aliased to `%s'\n", name, al.repl)
		} else {
			r.outf("alias %s='%s'\n", name, al.repl)
		}
		return 0
	}
	if f, ok := r.Funcs[name]; ok {
		if verbose {
			r.outf("%s is a function\n", name)
			r.outf("%s\n", f.Src)
		} else {
			r.outf("%s\n", name)
		}
		return 0
	}
	if isBuiltin(name) {
		if verbose {
			r.outf("%s is a shell builtin\n", name)
		} else {
			r.outf("%s\n", name)
		}
		return 0
	}
	if path, err := LookPathDir(r.Dir, expandEnv{r}, name); err == nil {
		if verbose {
			r.outf("%s is %s\n", name, path)
		} else {
			r.outf("%s\n", path)
		}
		return 0
	}
	r.errf("gsh: type: %s: not found\n", name)
	return 1
}

func (r *Runner) aliasBuiltin(args []string) int {
	suffix := false
	if len(args) > 0 && args[0] == "-s" {
		suffix = true
		args = args[1:]
	}
	if len(args) == 0 {
		if suffix {
			for _, name := range sortedKeys(r.sufAlias) {
				r.outf("alias -s %s='%s'\n", name, r.sufAlias[name])
			}
		} else {
			names := make([]string, 0, len(r.alias))
			for name := range r.alias {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				r.outf("alias %s='%s'\n", name, r.alias[name].repl)
			}
		}
		return 0
	}
	code := 0
	for _, arg := range args {
		name, val, ok := strings.Cut(arg, "=")
		if !ok {
			if suffix {
				if v, ok := r.sufAlias[name]; ok {
					r.outf("alias -s %s='%s'\n", name, v)
					continue
				}
			} else if al, ok := r.alias[name]; ok {
				r.outf("alias %s='%s'\n", name, al.repl)
				continue
			}
			r.errf("gsh: alias: %s: not found\n", name)
			code = 1
			continue
		}
		if suffix {
			if r.sufAlias == nil {
				r.sufAlias = make(map[string]string)
			}
			r.sufAlias[name] = val
		} else {
			if r.alias == nil {
				r.alias = make(map[string]alias)
			}
			r.alias[name] = alias{
				repl:  val,
				blank: strings.HasSuffix(val, " ") || strings.HasSuffix(val, "\t"),
			}
		}
	}
	return code
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Runner) trapBuiltin(ctx context.Context, args []string) int {
	if len(args) > 0 && args[0] == "-p" {
		args = args[1:]
	}
	if len(args) == 0 {
		for _, name := range sortedKeys(r.traps) {
			r.outf("trap -- %s %s\n", syntax.Quote(r.traps[name]), name)
		}
		return 0
	}
	if args[0] == "-l" {
		r.printSignalList()
		return 0
	}
	cmd := args[0]
	reset := false
	names := args[1:]
	switch cmd {
	case "-":
		reset = true
	default:
		if len(args) == 1 {
			// `trap 2` resets signal 2
			if _, ok := normalizeSigName(cmd); ok {
				reset = true
				names = args
				cmd = ""
			}
		}
	}
	if len(names) == 0 {
		r.errf("gsh: trap: usage: trap [-lp] [arg] [signal ...]\n")
		return 2
	}
	code := 0
	for _, arg := range names {
		name, ok := normalizeSigName(arg)
		if !ok {
			r.errf("gsh: trap: %s: invalid signal specification\n", arg)
			code = 1
			continue
		}
		r.setTrap(name, cmd, reset)
	}
	return code
}

// normalizeSigName resolves a trap operand such as "2", "INT", "SIGINT",
// or "EXIT" to its canonical name.
func normalizeSigName(arg string) (string, bool) {
	up := strings.ToUpper(arg)
	switch up {
	case "EXIT", "ERR", "DEBUG", "RETURN":
		return up, true
	case "0":
		return "EXIT", true
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if _, ok := signalByNum(n); ok {
			return signalNames[n], true
		}
		return "", false
	}
	up = strings.TrimPrefix(up, "SIG")
	if _, _, ok := signalByName(up); ok {
		return up, true
	}
	return "", false
}

func (r *Runner) printSignalList() {
	for i, name := range signalNames {
		if name == "" {
			continue
		}
		r.outf("%2d) SIG%s", i, name)
		if i%4 == 0 {
			r.out("\n")
		} else {
			r.out("\t")
		}
	}
	r.out("\n")
}

func (r *Runner) readBuiltin(ctx context.Context, args []string) int {
	raw := false
	silent := false
	delim := byte('\n')
	maxChars := -1
	timeout := time.Duration(0)
	prompt := ""
	arrName := ""
	var names []string
readOpts:
	for len(args) > 0 {
		switch arg := args[0]; arg {
		case "-r":
			raw = true
		case "-s":
			silent = true
		case "-d", "-n", "-p", "-t", "-a":
			if len(args) < 2 {
				r.errf("gsh: read: %s: option requires an argument\n", arg)
				return 2
			}
			val := args[1]
			args = args[1:]
			switch arg {
			case "-d":
				if val == "" {
					delim = 0
				} else {
					delim = val[0]
				}
			case "-n":
				maxChars = atoi(val)
			case "-p":
				prompt = val
			case "-t":
				secs, err := strconv.ParseFloat(val, 64)
				if err != nil {
					r.errf("gsh: read: %s: invalid timeout\n", val)
					return 2
				}
				timeout = time.Duration(secs * float64(time.Second))
			case "-a":
				arrName = val
			}
		case "--":
			args = args[1:]
			break readOpts
		default:
			break readOpts
		}
		args = args[1:]
	}
	names = args
	_ = silent // without terminal control, -s has nothing to disable
	if prompt != "" {
		r.errf("%s", prompt)
	}
	if r.stdin == nil {
		return 1
	}
	line, err := r.readLine(ctx, delim, maxChars, timeout)
	if len(line) == 0 && err != nil {
		return 1
	}
	if arrName != "" {
		fields := expand.ReadFields(r.ecfg, string(line), -1, raw)
		r.setVar(arrName, expand.Variable{
			Set: true, Kind: expand.Indexed, List: fields,
		})
		return 0
	}
	if len(names) == 0 {
		names = []string{"REPLY"}
	}
	values := expand.ReadFields(r.ecfg, string(line), len(names), raw)
	for i, name := range names {
		val := ""
		if i < len(values) {
			val = values[i]
		}
		r.setVarString(name, val)
	}
	if err != nil {
		return 1
	}
	return 0
}

// readLine reads bytes from standard input until the delimiter, EOF, the
// optional character limit, or the optional timeout.
func (r *Runner) readLine(ctx context.Context, delim byte, maxChars int, timeout time.Duration) ([]byte, error) {
	type result struct {
		line []byte
		err  error
	}
	readOnce := func() ([]byte, error) {
		var line []byte
		esc := false
		buf := make([]byte, 1)
		for {
			n, err := r.stdin.Read(buf)
			if n == 1 {
				b := buf[0]
				switch {
				case b == delim && !esc:
					return line, nil
				default:
					line = append(line, b)
					esc = b == '\\' && !esc
				}
				if maxChars > 0 && len(line) >= maxChars {
					return line, nil
				}
			}
			if err != nil {
				return line, err
			}
			if err := ctx.Err(); err != nil {
				return line, err
			}
		}
	}
	if timeout <= 0 {
		return readOnce()
	}
	ch := make(chan result, 1)
	go func() {
		line, err := readOnce()
		ch <- result{line, err}
	}()
	select {
	case res := <-ch:
		return res.line, res.err
	case <-time.After(timeout):
		return nil, fmt.Errorf("read timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Runner) waitBuiltin(ctx context.Context, args []string) int {
	if len(args) == 0 {
		for _, j := range r.jobs.list() {
			if j.state != jobDone {
				select {
				case <-j.done:
				case <-ctx.Done():
					return 1
				}
			}
			j.notified = true
		}
		r.jobs.reap()
		return 0
	}
	code := 0
	for _, arg := range args {
		var j *job
		if strings.HasPrefix(arg, "%") {
			var err error
			if j, err = r.jobs.parseJobSpec(arg); err != nil {
				r.errf("gsh: wait: %v\n", err)
				code = 127
				continue
			}
		} else if pid, err := strconv.Atoi(arg); err == nil {
			j = r.jobs.byPID(pid)
		}
		if j == nil {
			r.errf("gsh: wait: %s: not a child of this shell\n", arg)
			code = 127
			continue
		}
		select {
		case <-j.done:
		case <-ctx.Done():
			return 1
		}
		j.notified = true
		code = j.exit
	}
	r.jobs.reap()
	return code
}

func (r *Runner) hashBuiltin(args []string) int {
	if len(args) == 0 {
		for _, name := range sortedKeys(r.hashCache) {
			r.outf("%s\t%s\n", name, r.hashCache[name])
		}
		return 0
	}
	if args[0] == "-r" {
		r.hashCache = nil
		return 0
	}
	code := 0
	for _, name := range args {
		path, err := LookPathDir(r.Dir, expandEnv{r}, name)
		if err != nil {
			r.errf("gsh: hash: %s: not found\n", name)
			code = 1
			continue
		}
		if r.hashCache == nil {
			r.hashCache = make(map[string]string)
		}
		r.hashCache[name] = path
	}
	return code
}

func (r *Runner) umaskBuiltin(args []string) int {
	if len(args) == 0 {
		mask := currentUmask()
		r.outf("%04o\n", mask)
		return 0
	}
	n, err := strconv.ParseUint(args[0], 8, 32)
	if err != nil {
		r.errf("gsh: umask: %s: invalid octal number\n", args[0])
		return 1
	}
	setUmask(int(n))
	return 0
}
