// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package interp

import (
	"context"
	"os"
	"regexp"
	"strconv"

	"github.com/gshell-dev/gsh/expand"
	"github.com/gshell-dev/gsh/pattern"
	"github.com/gshell-dev/gsh/syntax"
)

func patternMatch(pat, name string) (bool, error) {
	return pattern.Match(pat, name, 0)
}

// bashTest evaluates a [[ ... ]] expression, setting the exit status and
// returning the string value of the evaluated node, with the empty string
// meaning false.
func (r *Runner) bashTest(ctx context.Context, expr syntax.TestExpr, classic bool) string {
	truthy := func(b bool) string {
		if b {
			r.exit = 0
			return "1"
		}
		r.exit = 1
		return ""
	}
	switch x := expr.(type) {
	case *syntax.Word:
		s := r.literal(ctx, x)
		return truthy(s != "")
	case *syntax.ParenTest:
		return r.bashTest(ctx, x.X, classic)
	case *syntax.UnaryTest:
		if x.Op == syntax.TsNot {
			res := r.bashTest(ctx, x.X, classic)
			return truthy(res == "")
		}
		w, ok := x.X.(*syntax.Word)
		if !ok {
			return truthy(false)
		}
		return truthy(r.unaryTest(ctx, x.Op, r.literal(ctx, w)))
	case *syntax.BinaryTest:
		switch x.Op {
		case syntax.AndTest:
			if r.bashTest(ctx, x.X, classic) == "" {
				return truthy(false)
			}
			return truthy(r.bashTest(ctx, x.Y, classic) != "")
		case syntax.OrTest:
			if r.bashTest(ctx, x.X, classic) != "" {
				return truthy(true)
			}
			return truthy(r.bashTest(ctx, x.Y, classic) != "")
		case syntax.TsMatch, syntax.TsNoMatch, syntax.TsAssgn:
			lhs := r.literal(ctx, x.X.(*syntax.Word))
			rhs := r.lonePattern(ctx, x.Y.(*syntax.Word))
			matched, _ := patternMatch(rhs, lhs)
			return truthy(matched == (x.Op != syntax.TsNoMatch))
		case syntax.TsReMatch:
			lhs := r.literal(ctx, x.X.(*syntax.Word))
			rhs := r.literal(ctx, x.Y.(*syntax.Word))
			rx, err := regexp.Compile(rhs)
			if err != nil {
				r.errf("gsh: invalid regex: %v\n", err)
				r.exit = 2
				return ""
			}
			m := rx.FindStringSubmatch(lhs)
			if m == nil {
				r.rematch = nil
				return truthy(false)
			}
			r.rematch = m
			return truthy(true)
		}
		lhs := r.literal(ctx, x.X.(*syntax.Word))
		rhs := r.literal(ctx, x.Y.(*syntax.Word))
		return truthy(r.binTest(x.Op, lhs, rhs))
	}
	return truthy(false)
}

func (r *Runner) unaryTest(ctx context.Context, op syntax.UnTestOperator, x string) bool {
	switch op {
	case syntax.TsEmpStr:
		return x == ""
	case syntax.TsNempStr:
		return x != ""
	case syntax.TsOptSet:
		if opt := r.optByName(x); opt != nil {
			return *opt
		}
		return false
	case syntax.TsVarSet:
		name, idx := splitSubscript(x)
		if idx != "" {
			vr := r.lookupVar(name)
			s, err := r.elemValue(vr, idx)
			return err == nil && s != ""
		}
		return r.lookupVar(x).IsSet()
	case syntax.TsRefVar:
		return r.lookupVar(x).Kind == expand.NameRef
	case syntax.TsFdTerm:
		n, err := strconv.Atoi(x)
		return err == nil && r.fdIsTerminal(n)
	}
	info, err := r.stat(x, op != syntax.TsSmbLink)
	if err != nil {
		return false
	}
	mode := info.Mode()
	switch op {
	case syntax.TsExists:
		return true
	case syntax.TsRegFile:
		return mode.IsRegular()
	case syntax.TsDirect:
		return mode.IsDir()
	case syntax.TsCharSp:
		return mode&os.ModeCharDevice != 0
	case syntax.TsBlckSp:
		return mode&os.ModeDevice != 0 && mode&os.ModeCharDevice == 0
	case syntax.TsNmPipe:
		return mode&os.ModeNamedPipe != 0
	case syntax.TsSocket:
		return mode&os.ModeSocket != 0
	case syntax.TsSmbLink:
		return mode&os.ModeSymlink != 0
	case syntax.TsSticky:
		return mode&os.ModeSticky != 0
	case syntax.TsGIDSet:
		return mode&os.ModeSetgid != 0
	case syntax.TsUIDSet:
		return mode&os.ModeSetuid != 0
	case syntax.TsNoEmpty:
		return info.Size() > 0
	case syntax.TsRead:
		return r.accessible(x, 0o4)
	case syntax.TsWrite:
		return r.accessible(x, 0o2)
	case syntax.TsExec:
		return r.accessible(x, 0o1)
	case syntax.TsGrpOwn:
		return fileOwnedByGroup(info)
	case syntax.TsUsrOwn:
		return fileOwnedByUser(info)
	case syntax.TsModif:
		return info.ModTime().After(accessTime(info))
	}
	return false
}

func (r *Runner) binTest(op syntax.BinTestOperator, x, y string) bool {
	switch op {
	case syntax.TsBefore:
		return x < y
	case syntax.TsAfter:
		return x > y
	case syntax.TsEql:
		return atoi(x) == atoi(y)
	case syntax.TsNeq:
		return atoi(x) != atoi(y)
	case syntax.TsLeq:
		return atoi(x) <= atoi(y)
	case syntax.TsGeq:
		return atoi(x) >= atoi(y)
	case syntax.TsLss:
		return atoi(x) < atoi(y)
	case syntax.TsGtr:
		return atoi(x) > atoi(y)
	case syntax.TsNewer:
		xi, errX := r.stat(x, true)
		yi, errY := r.stat(y, true)
		if errX != nil || errY != nil {
			return errY != nil && errX == nil
		}
		return xi.ModTime().After(yi.ModTime())
	case syntax.TsOlder:
		xi, errX := r.stat(x, true)
		yi, errY := r.stat(y, true)
		if errX != nil || errY != nil {
			return errX != nil && errY == nil
		}
		return yi.ModTime().After(xi.ModTime())
	case syntax.TsDevIno:
		xi, errX := r.stat(x, true)
		yi, errY := r.stat(y, true)
		return errX == nil && errY == nil && os.SameFile(xi, yi)
	}
	return false
}

func (r *Runner) stat(path string, follow bool) (os.FileInfo, error) {
	if path != "" && path[0] != '/' {
		path = r.Dir + "/" + path
	}
	return r.statHandler(context.Background(), path, follow)
}

// classicTest evaluates the test/[ builtin's expression, which is given
// as plain strings after expansion. It follows the POSIX rules based on
// the number of arguments.
func (r *Runner) classicTest(args []string) int {
	result, err := r.classicTestExpr(args)
	if err != nil {
		r.errf("gsh: test: %v\n", err)
		return 2
	}
	if result {
		return 0
	}
	return 1
}

func (r *Runner) classicTestExpr(args []string) (bool, error) {
	switch len(args) {
	case 0:
		return false, nil
	case 1:
		return args[0] != "", nil
	}
	// handle ! by negating the rest
	if args[0] == "!" {
		res, err := r.classicTestExpr(args[1:])
		return !res, err
	}
	if len(args) == 2 {
		if op := classicUnaryOp(args[0]); op != 0 {
			return r.unaryTest(context.Background(), op, args[1]), nil
		}
		return false, errTestUsage(args[0])
	}
	if len(args) == 3 {
		if op := classicBinaryOp(args[1]); op != 0 {
			switch op {
			case syntax.TsMatch:
				return args[0] == args[2], nil
			case syntax.TsNoMatch:
				return args[0] != args[2], nil
			}
			return r.binTest(op, args[0], args[2]), nil
		}
		switch args[1] {
		case "-a":
			return args[0] != "" && args[2] != "", nil
		case "-o":
			return args[0] != "" || args[2] != "", nil
		}
		return false, errTestUsage(args[1])
	}
	// longer expressions: scan for -a and -o at the top level
	for i, arg := range args {
		switch arg {
		case "-a":
			left, err := r.classicTestExpr(args[:i])
			if err != nil {
				return false, err
			}
			if !left {
				return false, nil
			}
			return r.classicTestExpr(args[i+1:])
		case "-o":
			left, err := r.classicTestExpr(args[:i])
			if err != nil {
				return false, err
			}
			if left {
				return true, nil
			}
			return r.classicTestExpr(args[i+1:])
		}
	}
	return false, errTestUsage(args[0])
}

type testUsageError string

func (e testUsageError) Error() string { return string(e) + ": unexpected operator or operand" }

func errTestUsage(arg string) error { return testUsageError(arg) }

func classicUnaryOp(s string) syntax.UnTestOperator {
	switch s {
	case "-e", "-a":
		return syntax.TsExists
	case "-f":
		return syntax.TsRegFile
	case "-d":
		return syntax.TsDirect
	case "-c":
		return syntax.TsCharSp
	case "-b":
		return syntax.TsBlckSp
	case "-p":
		return syntax.TsNmPipe
	case "-S":
		return syntax.TsSocket
	case "-L", "-h":
		return syntax.TsSmbLink
	case "-k":
		return syntax.TsSticky
	case "-g":
		return syntax.TsGIDSet
	case "-u":
		return syntax.TsUIDSet
	case "-G":
		return syntax.TsGrpOwn
	case "-O":
		return syntax.TsUsrOwn
	case "-N":
		return syntax.TsModif
	case "-r":
		return syntax.TsRead
	case "-w":
		return syntax.TsWrite
	case "-x":
		return syntax.TsExec
	case "-s":
		return syntax.TsNoEmpty
	case "-t":
		return syntax.TsFdTerm
	case "-z":
		return syntax.TsEmpStr
	case "-n":
		return syntax.TsNempStr
	case "-o":
		return syntax.TsOptSet
	case "-v":
		return syntax.TsVarSet
	case "-R":
		return syntax.TsRefVar
	}
	return 0
}

func classicBinaryOp(s string) syntax.BinTestOperator {
	switch s {
	case "=", "==":
		return syntax.TsMatch
	case "!=":
		return syntax.TsNoMatch
	case "-eq":
		return syntax.TsEql
	case "-ne":
		return syntax.TsNeq
	case "-le":
		return syntax.TsLeq
	case "-ge":
		return syntax.TsGeq
	case "-lt":
		return syntax.TsLss
	case "-gt":
		return syntax.TsGtr
	case "-nt":
		return syntax.TsNewer
	case "-ot":
		return syntax.TsOlder
	case "-ef":
		return syntax.TsDevIno
	case "<":
		return syntax.TsBefore
	case ">":
		return syntax.TsAfter
	}
	return 0
}

// elemValue returns one element of an array variable by its raw
// subscript text.
func (r *Runner) elemValue(vr expand.Variable, idx string) (string, error) {
	switch vr.Kind {
	case expand.Indexed:
		n, err := expand.Arithm(r.ecfg, arithmWord(idx))
		if err != nil {
			return "", err
		}
		if n >= 0 && n < int64(len(vr.List)) {
			return vr.List[n], nil
		}
		return "", nil
	case expand.Associative:
		return vr.Map[idx], nil
	}
	return vr.String(), nil
}
