// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package expand

import (
	"fmt"
	"strings"

	"github.com/gshell-dev/gsh/syntax"
)

// Arithm expands an arithmetic expression to a signed 64-bit value.
// Variables are looked up in the configuration's environment, with unset
// names evaluating to zero. Assignment operators write back through the
// environment, which must then implement WriteEnviron.
func Arithm(cfg *Config, expr syntax.ArithmExpr) (int64, error) {
	cfg = prepareConfig(cfg)
	return cfg.arithm(expr, 0)
}

// ArithmError is returned for invalid arithmetic, such as a division by
// zero or a malformed number literal.
type ArithmError struct {
	Text string
}

func (e ArithmError) Error() string { return e.Text }

func arithmErrf(format string, args ...any) error {
	return ArithmError{Text: fmt.Sprintf(format, args...)}
}

// maxArithRecursion bounds how deeply variables may reference other
// variables within arithmetic expressions, so that loops like a=b b=a do
// not hang the program.
const maxArithRecursion = 100

func (cfg *Config) arithm(expr syntax.ArithmExpr, depth int) (int64, error) {
	if depth > maxArithRecursion {
		return 0, arithmErrf("arithmetic expression recursion limit reached")
	}
	switch x := expr.(type) {
	case *syntax.Word:
		str, err := Literal(cfg, x)
		if err != nil {
			return 0, err
		}
		return cfg.arithmVal(str, depth)
	case *syntax.ParenArithm:
		return cfg.arithm(x.X, depth)
	case *syntax.UnaryArithm:
		if x.Op == syntax.Inc || x.Op == syntax.Dec {
			name, err := cfg.arithmName(x.X)
			if err != nil {
				return 0, err
			}
			old, err := cfg.arithmVal(cfg.arithmGetVar(name), depth)
			if err != nil {
				return 0, err
			}
			val := old
			if x.Op == syntax.Inc {
				val++
			} else {
				val--
			}
			if err := cfg.arithmSetVar(name, val); err != nil {
				return 0, err
			}
			if x.Post {
				return old, nil
			}
			return val, nil
		}
		val, err := cfg.arithm(x.X, depth)
		if err != nil {
			return 0, err
		}
		switch x.Op {
		case syntax.Not:
			return b2i(val == 0), nil
		case syntax.BitNegation:
			return ^val, nil
		case syntax.Plus:
			return val, nil
		default: // syntax.Minus
			return -val, nil
		}
	case *syntax.BinaryArithm:
		switch x.Op {
		case syntax.Assgn, syntax.AddAssgn, syntax.SubAssgn,
			syntax.MulAssgn, syntax.QuoAssgn, syntax.RemAssgn,
			syntax.AndAssgn, syntax.OrAssgn, syntax.XorAssgn,
			syntax.ShlAssgn, syntax.ShrAssgn:
			return cfg.assgnArithm(x, depth)
		case syntax.AndArit:
			left, err := cfg.arithm(x.X, depth)
			if err != nil {
				return 0, err
			}
			if left == 0 {
				// short-circuit without evaluating the right side
				return 0, nil
			}
			right, err := cfg.arithm(x.Y, depth)
			if err != nil {
				return 0, err
			}
			return b2i(right != 0), nil
		case syntax.OrArit:
			left, err := cfg.arithm(x.X, depth)
			if err != nil {
				return 0, err
			}
			if left != 0 {
				return 1, nil
			}
			right, err := cfg.arithm(x.Y, depth)
			if err != nil {
				return 0, err
			}
			return b2i(right != 0), nil
		case syntax.Ternary:
			cond, err := cfg.arithm(x.X, depth)
			if err != nil {
				return 0, err
			}
			b2, ok := x.Y.(*syntax.BinaryArithm)
			if !ok || b2.Op != syntax.TernColon {
				return 0, arithmErrf("ternary operator missing : after ?")
			}
			if cond != 0 {
				return cfg.arithm(b2.X, depth)
			}
			return cfg.arithm(b2.Y, depth)
		case syntax.TernColon:
			return 0, arithmErrf("ternary operator missing ? before :")
		case syntax.Comma:
			if _, err := cfg.arithm(x.X, depth); err != nil {
				return 0, err
			}
			return cfg.arithm(x.Y, depth)
		}
		left, err := cfg.arithm(x.X, depth)
		if err != nil {
			return 0, err
		}
		right, err := cfg.arithm(x.Y, depth)
		if err != nil {
			return 0, err
		}
		return binArithm(x.Op, left, right)
	default:
		panic(fmt.Sprintf("expand: unexpected arithm expr: %T", x))
	}
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// arithmName extracts the variable name within an expression used as an
// assignment or increment target, such as "x" or "arr[3]".
func (cfg *Config) arithmName(expr syntax.ArithmExpr) (string, error) {
	w, ok := expr.(*syntax.Word)
	if !ok {
		return "", arithmErrf("assignment requires a variable name")
	}
	lit, err := Literal(cfg, w)
	if err != nil {
		return "", err
	}
	name := lit
	if i := strings.IndexByte(name, '['); i > 0 && strings.HasSuffix(name, "]") {
		name = name[:i]
	}
	if !syntax.ValidName(name) {
		return "", arithmErrf("%s: not a valid identifier", lit)
	}
	return lit, nil
}

// arithmGetVar returns a variable's raw string value, resolving an
// optional "name[index]" form.
func (cfg *Config) arithmGetVar(lit string) string {
	name := lit
	idx := ""
	if i := strings.IndexByte(name, '['); i > 0 && strings.HasSuffix(name, "]") {
		idx = name[i+1 : len(name)-1]
		name = name[:i]
	}
	vr := cfg.Env.Get(name)
	_, vr = vr.Resolve(cfg.Env)
	if idx == "" {
		return vr.String()
	}
	word := &syntax.Word{Parts: []syntax.WordPart{&syntax.Lit{Value: idx}}}
	s, err := cfg.varInd(vr, word)
	if err != nil {
		return ""
	}
	return s
}

func (cfg *Config) arithmSetVar(lit string, val int64) error {
	name := lit
	if i := strings.IndexByte(name, '['); i > 0 && strings.HasSuffix(name, "]") {
		// assigning to an array element is done via the environment
		// directly, as the index may need arithmetic evaluation
		idx, err := cfg.arithmVal(lit[i+1:len(lit)-1], 0)
		if err != nil {
			return err
		}
		name = name[:i]
		wenv, ok := cfg.Env.(WriteEnviron)
		if !ok {
			return fmt.Errorf("set variable %s in read-only environment", name)
		}
		vr := cfg.Env.Get(name)
		if vr.Kind != Indexed {
			vr = Variable{Set: true, Kind: Indexed}
		}
		for int64(len(vr.List)) <= idx {
			vr.List = append(vr.List, "")
		}
		vr.List[idx] = fmt.Sprintf("%d", val)
		return wenv.Set(name, vr)
	}
	return cfg.envSet(name, fmt.Sprintf("%d", val))
}

// arithmVal resolves an arithmetic word value: a number literal in any of
// the supported bases, or a variable name to be resolved recursively.
func (cfg *Config) arithmVal(str string, depth int) (int64, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return 0, nil
	}
	if syntax.ValidName(str) {
		if cfg.NoUnset && !cfg.Env.Get(str).IsSet() {
			return 0, arithmErrf("%s: unbound variable", str)
		}
		return cfg.arithmVarRef(cfg.arithmGetVar(str), depth)
	}
	if i := strings.IndexByte(str, '['); i > 0 && strings.HasSuffix(str, "]") &&
		syntax.ValidName(str[:i]) {
		return cfg.arithmVarRef(cfg.arithmGetVar(str), depth)
	}
	if n, err := parseArithNum(str); err == nil {
		return n, nil
	}
	// the string is itself an expression, such as an array index "i+1"
	return cfg.arithmVarRef(str, depth)
}

// arithmVarRef evaluates a variable's value within an arithmetic
// expression. Values which are themselves expressions are parsed and
// evaluated recursively, so that `a=1+2; echo $((a*2))` prints 6.
func (cfg *Config) arithmVarRef(val string, depth int) (int64, error) {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0, nil
	}
	if n, err := parseArithNum(val); err == nil {
		return n, nil
	}
	expr, err := syntax.NewParser().ParseArithm(val)
	if err != nil || expr == nil {
		return 0, arithmErrf("invalid arithmetic value: %q", val)
	}
	if w, ok := expr.(*syntax.Word); ok && w.Lit() == val {
		// parsing made no progress; avoid recursing forever
		if !syntax.ValidName(val) {
			return 0, arithmErrf("invalid arithmetic value: %q", val)
		}
	}
	return cfg.arithm(expr, depth+1)
}

// parseArithNum parses a number literal with the shell's base syntax:
// decimal, leading-zero octal, 0x hexadecimal, and explicit base#digits
// with bases from 2 to 64.
func parseArithNum(str string) (int64, error) {
	neg := false
	s := str
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if s == "" {
		return 0, arithmErrf("invalid number: %q", str)
	}
	var n uint64
	var err error
	switch {
	case strings.Contains(s, "#"):
		baseStr, digits, _ := strings.Cut(s, "#")
		base, berr := parseUint(baseStr, 10)
		if berr != nil || base < 2 || base > 64 {
			return 0, arithmErrf("invalid arithmetic base: %q", baseStr)
		}
		n, err = parseUint(digits, base)
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		n, err = parseUint(s[2:], 16)
	case len(s) > 1 && s[0] == '0':
		n, err = parseUint(s[1:], 8)
	default:
		n, err = parseUint(s, 10)
	}
	if err != nil {
		return 0, arithmErrf("invalid number: %q", str)
	}
	// two's complement wrap-around is intentional for 64-bit overflow
	v := int64(n)
	if neg {
		v = -v
	}
	return v, nil
}

func parseUint(s string, base uint64) (uint64, error) {
	if s == "" {
		return 0, arithmErrf("empty number")
	}
	var n uint64
	for i := 0; i < len(s); i++ {
		d, ok := digitVal(s[i], base)
		if !ok {
			return 0, arithmErrf("invalid digit %q", s[i])
		}
		n = n*base + d
	}
	return n, nil
}

// digitVal maps a digit byte to its value in the given base. For bases
// above 10, lowercase letters come first, then uppercase, then '@' and
// '_', matching the shell's base#digits notation up to base 64.
func digitVal(b byte, base uint64) (uint64, bool) {
	var d uint64
	switch {
	case b >= '0' && b <= '9':
		d = uint64(b - '0')
	case b >= 'a' && b <= 'z':
		d = uint64(b-'a') + 10
	case b >= 'A' && b <= 'Z':
		d = uint64(b-'A') + 36
		if base <= 36 {
			// bases up to 36 treat letters case-insensitively
			d = uint64(b-'A') + 10
		}
	case b == '@':
		d = 62
	case b == '_':
		d = 63
	default:
		return 0, false
	}
	return d, d < base
}

func (cfg *Config) assgnArithm(b *syntax.BinaryArithm, depth int) (int64, error) {
	name, err := cfg.arithmName(b.X)
	if err != nil {
		return 0, err
	}
	val, err := cfg.arithmVal(cfg.arithmGetVar(name), depth)
	if err != nil {
		return 0, err
	}
	arg, err := cfg.arithm(b.Y, depth)
	if err != nil {
		return 0, err
	}
	switch b.Op {
	case syntax.Assgn:
		val = arg
	case syntax.AddAssgn:
		val += arg
	case syntax.SubAssgn:
		val -= arg
	case syntax.MulAssgn:
		val *= arg
	case syntax.QuoAssgn:
		if arg == 0 {
			return 0, arithmErrf("division by zero")
		}
		val /= arg
	case syntax.RemAssgn:
		if arg == 0 {
			return 0, arithmErrf("division by zero")
		}
		val %= arg
	case syntax.AndAssgn:
		val &= arg
	case syntax.OrAssgn:
		val |= arg
	case syntax.XorAssgn:
		val ^= arg
	case syntax.ShlAssgn:
		val <<= uint64(arg)
	default: // syntax.ShrAssgn
		val >>= uint64(arg)
	}
	if err := cfg.arithmSetVar(name, val); err != nil {
		return 0, err
	}
	return val, nil
}

func intPow(a, b int64) int64 {
	p := int64(1)
	for b > 0 {
		if b&1 != 0 {
			p *= a
		}
		b >>= 1
		a *= a
	}
	return p
}

func binArithm(op syntax.BinAritOperator, x, y int64) (int64, error) {
	switch op {
	case syntax.Add:
		return x + y, nil
	case syntax.Sub:
		return x - y, nil
	case syntax.Mul:
		return x * y, nil
	case syntax.Quo:
		if y == 0 {
			return 0, arithmErrf("division by zero")
		}
		return x / y, nil
	case syntax.Rem:
		if y == 0 {
			return 0, arithmErrf("division by zero")
		}
		return x % y, nil
	case syntax.Pow:
		if y < 0 {
			return 0, arithmErrf("exponent less than 0")
		}
		return intPow(x, y), nil
	case syntax.Eql:
		return b2i(x == y), nil
	case syntax.Gtr:
		return b2i(x > y), nil
	case syntax.Lss:
		return b2i(x < y), nil
	case syntax.Neq:
		return b2i(x != y), nil
	case syntax.Leq:
		return b2i(x <= y), nil
	case syntax.Geq:
		return b2i(x >= y), nil
	case syntax.And:
		return x & y, nil
	case syntax.Or:
		return x | y, nil
	case syntax.Xor:
		return x ^ y, nil
	case syntax.Shr:
		return x >> uint64(y), nil
	case syntax.Shl:
		return x << uint64(y), nil
	default:
		return 0, arithmErrf("unexpected arithmetic operator: %s", op.String())
	}
}
