// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package interp

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gshell-dev/gsh/expand"
	"github.com/gshell-dev/gsh/syntax"
)

// lookupVar resolves a variable or special parameter by name, walking the
// temp-assignment overlay, then the function scope stack from the
// innermost frame outwards, then the global variables, and finally the
// starting environment.
func (r *Runner) lookupVar(name string) expand.Variable {
	if name == "" {
		panic("interp: variable name must not be empty")
	}
	strVar := func(s string) expand.Variable {
		return expand.Variable{Set: true, Kind: expand.String, Str: s}
	}
	listVar := func(l []string) expand.Variable {
		return expand.Variable{Set: true, Kind: expand.Indexed, List: l}
	}
	switch name {
	case "#":
		return strVar(strconv.Itoa(len(r.Params)))
	case "@", "*":
		return listVar(r.Params)
	case "?":
		return strVar(strconv.Itoa(r.lastExit))
	case "$":
		return strVar(strconv.Itoa(os.Getpid()))
	case "!":
		if r.bgPID == 0 {
			return expand.Variable{}
		}
		return strVar(strconv.Itoa(r.bgPID))
	case "-":
		var sb strings.Builder
		for i, opt := range shellOptsTable {
			if opt.flag != 0 && r.opts[i] {
				sb.WriteByte(opt.flag)
			}
		}
		return strVar(sb.String())
	case "0":
		if r.filename != "" {
			return strVar(r.filename)
		}
		return strVar("gsh")
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		i := int(name[0] - '1')
		if i < len(r.Params) {
			return strVar(r.Params[i])
		}
		return expand.Variable{}
	case "PPID":
		return strVar(strconv.Itoa(os.Getppid()))
	case "BASHPID":
		return strVar(strconv.Itoa(os.Getpid()))
	case "UID":
		return strVar(strconv.Itoa(os.Getuid()))
	case "EUID":
		return strVar(strconv.Itoa(os.Geteuid()))
	case "HOSTNAME":
		if host, err := os.Hostname(); err == nil {
			return strVar(host)
		}
	case "RANDOM":
		return strVar(strconv.Itoa(r.rand.Intn(32768)))
	case "SECONDS":
		secs := int64(time.Since(r.startTime).Seconds())
		return strVar(strconv.FormatInt(secs, 10))
	case "PIPESTATUS":
		strs := make([]string, len(r.pipeStatus))
		for i, st := range r.pipeStatus {
			strs[i] = strconv.Itoa(st)
		}
		if len(strs) == 0 {
			strs = []string{strconv.Itoa(r.lastExit)}
		}
		return listVar(strs)
	case "BASH_REMATCH":
		return listVar(r.rematch)
	case "FUNCNAME":
		if len(r.funcNames) == 0 {
			return expand.Variable{}
		}
		names := make([]string, len(r.funcNames))
		for i, fn := range r.funcNames {
			names[len(names)-1-i] = fn
		}
		return listVar(names)
	case "DIRSTACK":
		stack := make([]string, len(r.dirStack))
		for i, dir := range r.dirStack {
			stack[len(stack)-1-i] = dir
		}
		return listVar(stack)
	}
	if vr, ok := r.cmdVars[name]; ok {
		return vr
	}
	for i := len(r.funcScopes) - 1; i >= 0; i-- {
		if vr, ok := r.funcScopes[i][name]; ok {
			return vr
		}
	}
	if vr, ok := r.Vars[name]; ok {
		return vr
	}
	return r.Env.Get(name)
}

func (r *Runner) getVar(name string) string {
	vr := r.lookupVar(name)
	_, vr = vr.Resolve(expandEnv{r})
	return vr.String()
}

// delVar unsets a variable. The innermost binding is removed, which may
// uncover an outer binding of the same name.
func (r *Runner) delVar(name string) {
	if cur := r.lookupVar(name); cur.ReadOnly {
		r.errf("gsh: %s: readonly variable\n", name)
		r.exit = 1
		return
	}
	if _, ok := r.cmdVars[name]; ok {
		delete(r.cmdVars, name)
		return
	}
	for i := len(r.funcScopes) - 1; i >= 0; i-- {
		if _, ok := r.funcScopes[i][name]; ok {
			delete(r.funcScopes[i], name)
			return
		}
	}
	if _, ok := r.Vars[name]; ok {
		delete(r.Vars, name)
		return
	}
	// mask a variable that only exists in the starting environment
	if r.Env.Get(name).IsSet() {
		r.Vars[name] = expand.Variable{}
	}
}

func (r *Runner) setVarString(name, value string) {
	r.setVar(name, expand.Variable{Set: true, Kind: expand.String, Str: value})
}

// setVarErr is like setVar, but readonly violations surface as errors
// instead of diagnostics, for use by the expander.
func (r *Runner) setVarErr(name string, vr expand.Variable) error {
	if cur := r.lookupVar(name); cur.ReadOnly {
		return fmt.Errorf("%s: readonly variable", name)
	}
	r.setVarInternal(name, vr, false)
	return nil
}

func (r *Runner) setVar(name string, vr expand.Variable) {
	if err := r.setVarErr(name, vr); err != nil {
		r.errf("gsh: %v\n", err)
		r.exit = 1
	}
}

// setVarInternal stores a binding in the innermost frame already holding
// the name, the current local frame if asLocal is set, or the globals.
// Attribute transforms for integer and case attributes are applied here.
func (r *Runner) setVarInternal(name string, vr expand.Variable, asLocal bool) {
	cur := r.lookupVar(name)
	vr = applyAttrs(cur, vr)
	if r.opts[optAllExport] && vr.Kind == expand.String {
		vr.Exported = true
	}
	if vr.Integer && vr.Kind == expand.String {
		if n, err := expand.Arithm(r.ecfg, arithmWord(vr.Str)); err == nil {
			vr.Str = strconv.FormatInt(n, 10)
		}
	}
	if vr.Kind == expand.String {
		if vr.Lowercase {
			vr.Str = strings.ToLower(vr.Str)
		}
		if vr.Uppercase {
			vr.Str = strings.ToUpper(vr.Str)
		}
	}
	if asLocal && len(r.funcScopes) > 0 {
		scope := r.funcScopes[len(r.funcScopes)-1]
		vr.Local = true
		scope[name] = vr
		return
	}
	if _, ok := r.cmdVars[name]; ok {
		r.cmdVars[name] = vr
		return
	}
	for i := len(r.funcScopes) - 1; i >= 0; i-- {
		if _, ok := r.funcScopes[i][name]; ok {
			r.funcScopes[i][name] = vr
			return
		}
	}
	if r.Vars == nil {
		r.Vars = make(map[string]expand.Variable)
	}
	r.Vars[name] = vr
}

// applyAttrs merges the attributes of an existing binding into its
// replacement value, so that `declare -i n; n=2+3` keeps n an integer.
func applyAttrs(cur, vr expand.Variable) expand.Variable {
	if !cur.Declared() && !cur.Integer && !cur.Lowercase && !cur.Uppercase {
		return vr
	}
	vr.Exported = vr.Exported || cur.Exported
	vr.Integer = vr.Integer || cur.Integer
	vr.Lowercase = vr.Lowercase || cur.Lowercase
	vr.Uppercase = vr.Uppercase || cur.Uppercase
	vr.Local = vr.Local || cur.Local
	if vr.Kind == expand.String && cur.Kind == expand.Indexed {
		// assigning a string to an indexed array sets element zero
		list := append([]string(nil), cur.List...)
		if len(list) == 0 {
			list = []string{""}
		}
		list[0] = vr.Str
		vr.Kind, vr.List, vr.Str = expand.Indexed, list, ""
	}
	return vr
}

func arithmWord(s string) syntax.ArithmExpr {
	return &syntax.Word{Parts: []syntax.WordPart{&syntax.Lit{Value: s}}}
}

// eachVar iterates over all visible variables, innermost bindings first.
func (r *Runner) eachVar(fn func(name string, vr expand.Variable) bool) {
	seen := make(map[string]bool)
	visit := func(name string, vr expand.Variable) bool {
		if seen[name] {
			return true
		}
		seen[name] = true
		return fn(name, vr)
	}
	for name, vr := range r.cmdVars {
		if !visit(name, vr) {
			return
		}
	}
	for i := len(r.funcScopes) - 1; i >= 0; i-- {
		for name, vr := range r.funcScopes[i] {
			if !visit(name, vr) {
				return
			}
		}
	}
	for name, vr := range r.Vars {
		if !visit(name, vr) {
			return
		}
	}
	r.Env.Each(func(name string, vr expand.Variable) bool {
		if seen[name] {
			return true
		}
		return fn(name, vr)
	})
}

// assignVal computes the value for an assignment node, handling appends
// and array literals. valType is a declare flag such as "-a" or "-A"
// forcing a value kind, or empty.
func (r *Runner) assignVal(ctx context.Context, as *syntax.Assign, valType string) expand.Variable {
	prev := r.lookupVar(as.Name.Value)
	if as.Naked && as.Value == nil && as.Array == nil {
		return prev
	}
	if as.Value != nil {
		s := r.literal(ctx, as.Value)
		if !as.Append || !prev.IsSet() {
			return expand.Variable{Set: true, Kind: expand.String, Str: s}
		}
		switch prev.Kind {
		case expand.String, expand.Unknown:
			return expand.Variable{Set: true, Kind: expand.String, Str: prev.Str + s}
		case expand.Indexed:
			list := append([]string(nil), prev.List...)
			if len(list) == 0 {
				list = append(list, "")
			}
			list[0] += s
			return expand.Variable{Set: true, Kind: expand.Indexed, List: list}
		}
		return expand.Variable{Set: true, Kind: expand.String, Str: s}
	}
	if as.Array == nil {
		// e.g. "declare foo" without a value
		return prev
	}
	elems := as.Array.Elems
	if valType == "" {
		if prev.Kind == expand.Associative {
			valType = "-A"
		} else {
			valType = "-a"
		}
	}
	if valType == "-A" {
		amap := make(map[string]string, len(elems))
		if as.Append && prev.Kind == expand.Associative {
			for k, v := range prev.Map {
				amap[k] = v
			}
		}
		for _, elem := range elems {
			if elem.Index == nil {
				r.errf("gsh: %s: assoc array elements need a key\n", as.Name.Value)
				r.exit = 1
				continue
			}
			k := r.assocIndex(ctx, elem.Index)
			amap[k] = r.literal(ctx, elem.Value)
		}
		return expand.Variable{Set: true, Kind: expand.Associative, Map: amap}
	}
	// indexed array
	var list []string
	if as.Append && prev.Kind == expand.Indexed {
		list = append(list, prev.List...)
	} else if as.Append && prev.IsSet() && prev.Kind == expand.String {
		list = append(list, prev.Str)
	}
	index := len(list)
	for _, elem := range elems {
		if elem.Index != nil {
			if k, err := expand.Arithm(r.ecfg, elem.Index); err == nil {
				index = int(k)
			}
		}
		for len(list) < index+1 {
			list = append(list, "")
		}
		list[index] = r.literal(ctx, elem.Value)
		index++
	}
	return expand.Variable{Set: true, Kind: expand.Indexed, List: list}
}

// assocIndex evaluates an index expression as an associative array key,
// honoring quotes in the raw subscript text.
func (r *Runner) assocIndex(ctx context.Context, idx syntax.ArithmExpr) string {
	w, ok := idx.(*syntax.Word)
	if !ok {
		return ""
	}
	s := r.literal(ctx, w)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') ||
			(s[0] == '\'' && s[len(s)-1] == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	return s
}

// setVarWithIndex assigns to a possibly indexed name, as in a[3]=x or
// a[key]=x.
func (r *Runner) setVarWithIndex(ctx context.Context, name string, index syntax.ArithmExpr, vr expand.Variable) {
	if index == nil {
		r.setVar(name, vr)
		return
	}
	cur := r.lookupVar(name)
	if cur.ReadOnly {
		r.errf("gsh: %s: readonly variable\n", name)
		r.exit = 1
		return
	}
	valStr := vr.Str
	if cur.Kind == expand.Associative {
		amap := make(map[string]string, len(cur.Map)+1)
		for k, v := range cur.Map {
			amap[k] = v
		}
		amap[r.assocIndex(ctx, index)] = valStr
		cur.Map = amap
		cur.Set = true
		r.setVarInternal(name, cur, false)
		return
	}
	list := append([]string(nil), cur.List...)
	if cur.Kind == expand.String && cur.Str != "" {
		list = append(list, cur.Str)
	}
	k64, err := expand.Arithm(r.ecfg, index)
	if err != nil {
		r.errf("gsh: %v\n", err)
		r.exit = 1
		return
	}
	k := int(k64)
	if k < 0 {
		k += len(list)
		if k < 0 {
			r.errf("gsh: %s: bad array subscript\n", name)
			r.exit = 1
			return
		}
	}
	for len(list) < k+1 {
		list = append(list, "")
	}
	list[k] = valStr
	r.setVarInternal(name, expand.Variable{
		Set: true, Kind: expand.Indexed, List: list,
		Exported: cur.Exported, ReadOnly: cur.ReadOnly,
		Integer: cur.Integer, Lowercase: cur.Lowercase, Uppercase: cur.Uppercase,
	}, false)
}

func (r *Runner) setFunc(name string, body *syntax.Stmt, src string) {
	if r.Funcs == nil {
		r.Funcs = make(map[string]*Func, 4)
	}
	r.Funcs[name] = &Func{Body: body, Src: src}
}
