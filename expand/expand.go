// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

// Package expand implements the word expansion pipeline of the shell:
// brace expansion, tilde expansion, parameter and arithmetic and command
// substitution, field splitting, pathname expansion, and quote removal.
package expand

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/gshell-dev/gsh/pattern"
	"github.com/gshell-dev/gsh/syntax"
)

// A Config specifies details about how shell expansion should be
// performed. The zero value is a valid configuration.
type Config struct {
	// Env is used to get and set environment variables when performing
	// shell expansions. Some special parameters are also expanded via this
	// interface, such as:
	//
	//   * "#", "@", "*", "0"-"9" for the shell's parameters
	//   * "?", "$", "PPID" for the shell's status and process
	//   * "HOME foo" to retrieve user foo's home directory (if unset,
	//     os/user is used)
	Env Environ

	// CmdSubst expands a command substitution node, writing its standard
	// output to the provided io.Writer.
	//
	// If nil, encountering a command substitution will result in an
	// UnexpectedCommandError.
	CmdSubst func(io.Writer, *syntax.CmdSubst) error

	// ProcSubst expands a process substitution node.
	//
	// Note that this feature is a work in progress, and the signature of
	// this field might change until #451 is completely fixed.
	ProcSubst func(*syntax.ProcSubst) (string, error)

	// ReadDir is used for file path globbing. If nil, globbing is
	// disabled. Use os.ReadDir to use the filesystem directly.
	ReadDir func(string) ([]fs.DirEntry, error)

	// NoGlob corresponds to the shell option that disables globbing.
	NoGlob bool
	// GlobStar corresponds to the shell option that allows globbing with
	// "**".
	GlobStar bool
	// NoCaseGlob corresponds to the shell option that causes case-insensitive
	// pattern matching in pathname expansion.
	NoCaseGlob bool
	// NoUnset corresponds to the shell option that treats unset variables
	// as errors.
	NoUnset bool

	bufferAlloc bytes.Buffer // TODO: use strings.Builder
	fieldAlloc  [4]fieldPart
	fieldsAlloc [4][]fieldPart

	ifs string
	// A pointer to a parameter expansion node, if we're inside one.
	// Necessary for ${LINENO}.
	curParam *syntax.ParamExp
}

// UnexpectedCommandError is returned if a command substitution is
// encountered when Config.CmdSubst is nil.
type UnexpectedCommandError struct {
	Node *syntax.CmdSubst
}

func (u UnexpectedCommandError) Error() string {
	return fmt.Sprintf("unexpected command substitution at %d:%d",
		u.Node.Pos().Line(), u.Node.Pos().Col())
}

// UnsetParameterError is returned if a parameter is unset with the NoUnset
// option, or if a parameter expansion of the ${NAME:?msg} form fails.
type UnsetParameterError struct {
	Node    *syntax.ParamExp
	Message string
}

func (u UnsetParameterError) Error() string {
	return fmt.Sprintf("%s: %s", u.Node.Param.Value, u.Message)
}

func prepareConfig(cfg *Config) *Config {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Env == nil {
		cfg.Env = FuncEnviron(func(string) string { return "" })
	}
	cfg.ifs = " \t\n"
	if vr := cfg.Env.Get("IFS"); vr.IsSet() {
		cfg.ifs = vr.String()
	}
	return cfg
}

func (cfg *Config) ifsRune(r rune) bool {
	for _, r2 := range cfg.ifs {
		if r == r2 {
			return true
		}
	}
	return false
}

func (cfg *Config) ifsJoin(strs []string) string {
	sep := ""
	if cfg.ifs != "" {
		sep = cfg.ifs[:1]
	}
	return strings.Join(strs, sep)
}

func (cfg *Config) strBuilder() *bytes.Buffer {
	b := &cfg.bufferAlloc
	b.Reset()
	return b
}

func (cfg *Config) envGet(name string) string {
	return cfg.Env.Get(name).String()
}

func (cfg *Config) envSet(name, value string) error {
	wenv, ok := cfg.Env.(WriteEnviron)
	if !ok {
		return fmt.Errorf("set variable %s in read-only environment", name)
	}
	return wenv.Set(name, Variable{Set: true, Kind: String, Str: value})
}

// Literal expands a single shell word. It is similar to Fields, but the
// word will not be split in any way, and the result will be a single
// string.
func Literal(cfg *Config, word *syntax.Word) (string, error) {
	if word == nil {
		return "", nil
	}
	cfg = prepareConfig(cfg)
	field, err := cfg.wordField(word.Parts, quoteNone)
	if err != nil {
		return "", err
	}
	return cfg.fieldJoin(field), nil
}

// Document expands a single shell word as if it were within double
// quotes. It is simpler and more efficient than Literal. Used for
// here-document bodies.
func Document(cfg *Config, word *syntax.Word) (string, error) {
	if word == nil {
		return "", nil
	}
	cfg = prepareConfig(cfg)
	field, err := cfg.wordField(word.Parts, quoteDouble)
	if err != nil {
		return "", err
	}
	return cfg.fieldJoin(field), nil
}

// Pattern expands a single shell word as a pattern, using
// pattern.QuoteMeta on any non-quoted parts of the input word. The
// result can be used with the pattern package.
func Pattern(cfg *Config, word *syntax.Word) (string, error) {
	cfg = prepareConfig(cfg)
	field, err := cfg.wordField(word.Parts, quoteNone)
	if err != nil {
		return "", err
	}
	buf := cfg.strBuilder()
	for _, part := range field {
		if part.quote > quoteNone {
			buf.WriteString(pattern.QuoteMeta(part.val, 0))
		} else {
			buf.WriteString(part.val)
		}
	}
	return buf.String(), nil
}

// Fields expands a number of words as if they were arguments in a shell
// command. This includes brace expansion, tilde expansion, parameter and
// command and arithmetic substitution, field splitting, and globbing.
func Fields(cfg *Config, words ...*syntax.Word) ([]string, error) {
	cfg = prepareConfig(cfg)
	fields := make([]string, 0, len(words))
	dir := cfg.envGet("PWD")
	for _, word := range Braces(words...) {
		wfields, err := cfg.wordFields(word.Parts)
		if err != nil {
			return nil, err
		}
		for _, field := range wfields {
			path, doGlob := cfg.escapedGlobField(field)
			if doGlob && !cfg.NoGlob {
				matches, err := cfg.glob(dir, path)
				var perr *pattern.SyntaxError
				switch {
				case errors.As(err, &perr):
					// malformed patterns simply match themselves
				case err != nil:
					return nil, err
				case len(matches) > 0:
					fields = append(fields, matches...)
					continue
				}
			}
			fields = append(fields, cfg.fieldJoin(field))
		}
	}
	return fields, nil
}

type fieldPart struct {
	val   string
	quote quoteLevel
}

type quoteLevel uint

const (
	quoteNone quoteLevel = iota
	quoteDouble
	quoteSingle
)

func (cfg *Config) fieldJoin(parts []fieldPart) string {
	switch len(parts) {
	case 0:
		return ""
	case 1: // short-cut without a string copy
		return parts[0].val
	}
	buf := cfg.strBuilder()
	for _, part := range parts {
		buf.WriteString(part.val)
	}
	return buf.String()
}

func (cfg *Config) escapedGlobField(parts []fieldPart) (escaped string, glob bool) {
	buf := cfg.strBuilder()
	for _, part := range parts {
		if part.quote > quoteNone {
			buf.WriteString(pattern.QuoteMeta(part.val, 0))
			continue
		}
		buf.WriteString(part.val)
		if pattern.HasMeta(part.val, 0) {
			glob = true
		}
	}
	if glob { // only copy the string if it will be used
		escaped = buf.String()
	}
	return escaped, glob
}

// wordField expands a word into a single field, in a context where no
// splitting or globbing will happen.
func (cfg *Config) wordField(wps []syntax.WordPart, ql quoteLevel) ([]fieldPart, error) {
	var field []fieldPart
	for i, wp := range wps {
		switch x := wp.(type) {
		case *syntax.Lit:
			s := x.Value
			if i == 0 && ql == quoteNone {
				s = cfg.expandUser(s)
			}
			if ql == quoteDouble && strings.Contains(s, "\\") {
				buf := cfg.strBuilder()
				for i := 0; i < len(s); i++ {
					b := s[i]
					if b == '\\' && i+1 < len(s) {
						switch s[i+1] {
						case '"', '\\', '$', '`': // special chars
							continue
						}
					}
					buf.WriteByte(b)
				}
				s = buf.String()
			}
			if i := strings.IndexByte(s, '\\'); i >= 0 && ql == quoteNone {
				buf := cfg.strBuilder()
				for i := 0; i < len(s); i++ {
					b := s[i]
					if b == '\\' {
						if i++; i >= len(s) {
							break
						}
						b = s[i]
					}
					buf.WriteByte(b)
				}
				s = buf.String()
			}
			field = append(field, fieldPart{val: s})
		case *syntax.SglQuoted:
			fp := fieldPart{quote: quoteSingle, val: x.Value}
			if x.Dollar {
				fp.val, _, _ = Format(fp.val, nil)
			}
			field = append(field, fp)
		case *syntax.DblQuoted:
			dfield, err := cfg.wordField(x.Parts, quoteDouble)
			if err != nil {
				return nil, err
			}
			for _, part := range dfield {
				part.quote = quoteDouble
				field = append(field, part)
			}
		case *syntax.ParamExp:
			val, err := cfg.paramExp(x)
			if err != nil {
				return nil, err
			}
			field = append(field, fieldPart{quote: ql, val: val})
		case *syntax.CmdSubst:
			val, err := cfg.cmdSubst(x)
			if err != nil {
				return nil, err
			}
			field = append(field, fieldPart{quote: ql, val: val})
		case *syntax.ArithmExp:
			n, err := Arithm(cfg, x.X)
			if err != nil {
				return nil, err
			}
			field = append(field, fieldPart{quote: ql, val: strconv.FormatInt(n, 10)})
		case *syntax.ProcSubst:
			path, err := cfg.procSubst(x)
			if err != nil {
				return nil, err
			}
			field = append(field, fieldPart{val: path})
		default:
			panic(fmt.Sprintf("expand: unexpected word part type %T", x))
		}
	}
	return field, nil
}

// wordFields expands a word into any number of fields, in a context where
// unquoted expansion results undergo field splitting.
func (cfg *Config) wordFields(wps []syntax.WordPart) ([][]fieldPart, error) {
	fields := cfg.fieldsAlloc[:0]
	curField := cfg.fieldAlloc[:0]
	allowEmpty := false
	flush := func() {
		if len(curField) == 0 {
			return
		}
		fields = append(fields, curField)
		curField = nil
	}
	splitAdd := func(val string) {
		fieldStart := -1
		for i, r := range val {
			if cfg.ifsRune(r) {
				if fieldStart >= 0 { // ending a field
					curField = append(curField, fieldPart{val: val[fieldStart:i]})
					fieldStart = -1
				}
				flush()
			} else {
				if fieldStart < 0 { // starting a new field
					fieldStart = i
				}
			}
		}
		if fieldStart >= 0 { // ending a field without flushing
			curField = append(curField, fieldPart{val: val[fieldStart:]})
		}
	}
	for i, wp := range wps {
		switch x := wp.(type) {
		case *syntax.Lit:
			s := x.Value
			if i == 0 {
				s = cfg.expandUser(s)
			}
			if strings.IndexByte(s, '\\') >= 0 {
				buf := cfg.strBuilder()
				for i := 0; i < len(s); i++ {
					b := s[i]
					if b == '\\' {
						if i++; i >= len(s) {
							break
						}
						curField = append(curField, fieldPart{val: buf.String()})
						buf.Reset()
						curField = append(curField, fieldPart{
							quote: quoteSingle,
							val:   string(s[i]),
						})
						continue
					}
					buf.WriteByte(b)
				}
				if buf.Len() > 0 {
					curField = append(curField, fieldPart{val: buf.String()})
				}
			} else {
				curField = append(curField, fieldPart{val: s})
			}
		case *syntax.SglQuoted:
			allowEmpty = true
			fp := fieldPart{quote: quoteSingle, val: x.Value}
			if x.Dollar {
				fp.val, _, _ = Format(fp.val, nil)
			}
			curField = append(curField, fp)
		case *syntax.DblQuoted:
			if len(x.Parts) == 1 {
				pe, _ := x.Parts[0].(*syntax.ParamExp)
				if elems := cfg.quotedElemFields(pe); elems != nil {
					// "$@" with no parameters expands to zero
					// fields, not one empty field
					for i, elem := range elems {
						if i > 0 {
							flush()
						}
						curField = append(curField, fieldPart{
							quote: quoteDouble,
							val:   elem,
						})
					}
					if len(elems) > 0 {
						allowEmpty = true
					}
					continue
				}
			}
			allowEmpty = true
			dfield, err := cfg.wordField(x.Parts, quoteDouble)
			if err != nil {
				return nil, err
			}
			for _, part := range dfield {
				part.quote = quoteDouble
				curField = append(curField, part)
			}
		case *syntax.ParamExp:
			val, err := cfg.paramExp(x)
			if err != nil {
				return nil, err
			}
			splitAdd(val)
		case *syntax.CmdSubst:
			val, err := cfg.cmdSubst(x)
			if err != nil {
				return nil, err
			}
			splitAdd(val)
		case *syntax.ArithmExp:
			n, err := Arithm(cfg, x.X)
			if err != nil {
				return nil, err
			}
			curField = append(curField, fieldPart{val: strconv.FormatInt(n, 10)})
		case *syntax.ProcSubst:
			path, err := cfg.procSubst(x)
			if err != nil {
				return nil, err
			}
			curField = append(curField, fieldPart{val: path})
		default:
			panic(fmt.Sprintf("expand: unexpected word part type %T", x))
		}
	}
	if len(curField) == 0 && allowEmpty {
		// the word is empty but quoted, as in "" or ''
		fields = append(fields, curField)
		return fields, nil
	}
	flush()
	return fields, nil
}

// quotedElemFields returns the list of elements resulting from a quoted
// parameter expansion which should be treated especially, like "$@" and
// "${foo[@]}". A nil slice is returned when the expansion is not one of
// those special cases.
func (cfg *Config) quotedElemFields(pe *syntax.ParamExp) []string {
	if pe == nil || pe.Length || pe.Repl != nil || pe.Exp != nil ||
		pe.Slice != nil {
		return nil
	}
	name := pe.Param.Value
	if pe.Excl {
		switch pe.Names {
		case syntax.NamesPrefixWords: // "${!prefix@}"
			return cfg.namesByPrefix(pe.Param.Value)
		case syntax.NamesPrefix:
			return nil
		}
		switch nodeLit(pe.Index) {
		case "@": // "${!name[@]}"
			switch vr := cfg.Env.Get(name); vr.Kind {
			case Indexed:
				keys := make([]string, 0, len(vr.List))
				for i := range vr.List {
					keys = append(keys, strconv.Itoa(i))
				}
				return keys
			case Associative:
				keys := make([]string, 0, len(vr.Map))
				for k := range vr.Map {
					keys = append(keys, k)
				}
				return keys
			}
		}
		return nil
	}
	switch name {
	case "*": // "$*"
		return []string{cfg.ifsJoin(cfg.positionals())}
	case "@": // "$@"
		return cfg.positionals()
	}
	switch nodeLit(pe.Index) {
	case "@": // "${name[@]}"
		switch vr := cfg.Env.Get(name); vr.Kind {
		case Indexed:
			if vr.List == nil {
				return []string{}
			}
			return vr.List
		case Associative:
			elems := make([]string, 0, len(vr.Map))
			for _, v := range vr.Map {
				elems = append(elems, v)
			}
			return elems
		default:
			return []string{}
		}
	case "*": // "${name[*]}"
		if vr := cfg.Env.Get(name); vr.Kind == Indexed {
			return []string{cfg.ifsJoin(vr.List)}
		}
	}
	return nil
}

func (cfg *Config) positionals() []string {
	vr := cfg.Env.Get("@")
	if vr.Kind == Indexed {
		if vr.List == nil {
			return []string{}
		}
		return vr.List
	}
	return []string{}
}

func (cfg *Config) cmdSubst(cs *syntax.CmdSubst) (string, error) {
	if cfg.CmdSubst == nil {
		return "", UnexpectedCommandError{Node: cs}
	}
	buf := cfg.strBuilder()
	if err := cfg.CmdSubst(buf, cs); err != nil {
		return "", err
	}
	out := buf.Bytes()
	// strip trailing newlines, and drop interior NUL bytes
	out = bytes.TrimRight(out, "\n")
	if bytes.IndexByte(out, 0) >= 0 {
		out = bytes.ReplaceAll(out, []byte{0}, nil)
	}
	return string(out), nil
}

func (cfg *Config) procSubst(ps *syntax.ProcSubst) (string, error) {
	if cfg.ProcSubst == nil {
		return "", fmt.Errorf("process substitution is unsupported here")
	}
	return cfg.ProcSubst(ps)
}

// expandUser performs tilde expansion on the leading portion of a word.
func (cfg *Config) expandUser(field string) string {
	if len(field) == 0 || field[0] != '~' {
		return field
	}
	name := field[1:]
	rest := ""
	if i := strings.Index(name, "/"); i >= 0 {
		rest = name[i:]
		name = name[:i]
	}
	switch name {
	case "":
		if vr := cfg.Env.Get("HOME"); vr.IsSet() {
			return vr.String() + rest
		}
		return field
	case "+":
		if vr := cfg.Env.Get("PWD"); vr.IsSet() {
			return vr.String() + rest
		}
		return field
	case "-":
		if vr := cfg.Env.Get("OLDPWD"); vr.IsSet() {
			return vr.String() + rest
		}
		return field
	}
	if vr := cfg.Env.Get("HOME " + name); vr.IsSet() {
		// the environment can provide other users' home directories
		return vr.String() + rest
	}
	if dir := userHomeDir(name); dir != "" {
		return dir + rest
	}
	return field
}

// pathJoin2 is a simpler version of filepath.Join without cleaning the
// result, since that's needed for globbing.
func pathJoin2(elem1, elem2 string) string {
	if elem1 == "" {
		return elem2
	}
	if strings.HasSuffix(elem1, "/") {
		return elem1 + elem2
	}
	return elem1 + "/" + elem2
}

// pathSplit splits a file path on forward slashes into its elements,
// retaining empty ones, so that splitting "/foo/bar" results in three
// elements, with the first being empty to denote an absolute path.
func pathSplit(path string) []string {
	return strings.Split(path, "/")
}

func (cfg *Config) glob(base, pat string) ([]string, error) {
	parts := pathSplit(pat)
	matches := []string{""}
	glob := false
	for i, part := range parts {
		switch {
		case part == "", part == ".", part == "..":
			var newMatches []string
			for _, dir := range matches {
				// TODO(v4): use a type like pathJoin?
				if i == 0 {
					// id est "/"
					dir = part + "/"
				} else {
					dir = pathJoin2(dir, part)
				}
				newMatches = append(newMatches, dir)
			}
			matches = newMatches
		case !pattern.HasMeta(part, 0):
			var newMatches []string
			for _, dir := range matches {
				match := dir
				if !filepath.IsAbs(match) {
					match = filepath.Join(base, match)
				}
				match = pathJoin2(match, unescapePat(part))
				// We can't use ReadDir on the parent and match the
				// directory entry by name, because short paths on
				// Windows break that. Our only option is to
				// check if the path exists.
				if _, err := cfg.Stat(match); err == nil {
					newMatches = append(newMatches, pathJoin2(dir, unescapePat(part)))
				}
			}
			matches = newMatches
		default:
			glob = true
			var newMatches []string
			for _, dir := range matches {
				var err error
				newMatches, err = cfg.globDir(base, dir, part, newMatches)
				if err != nil {
					return nil, err
				}
			}
			matches = newMatches
		}
	}
	if !glob {
		return nil, nil
	}
	return matches, nil
}

// unescapePat removes the backslash escapes that QuoteMeta introduced in
// a pattern path element with no remaining metacharacters.
func unescapePat(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// Stat is a helper used by glob to check whether a file exists. It uses
// ReadDir on the parent directory; an error reading the parent is
// returned as is, and a nil ReadDir reports fs.ErrNotExist.
func (cfg *Config) Stat(path string) (fs.DirEntry, error) {
	if cfg.ReadDir == nil {
		return nil, fs.ErrNotExist
	}
	dir, name := filepath.Split(path)
	infos, err := cfg.ReadDir(filepath.Clean(dir))
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.Name() == name {
			return info, nil
		}
	}
	return nil, fs.ErrNotExist
}

func (cfg *Config) globDir(base, dir, part string, matches []string) ([]string, error) {
	if cfg.ReadDir == nil {
		return nil, nil
	}
	fullDir := dir
	if !filepath.IsAbs(dir) {
		fullDir = filepath.Join(base, dir)
	}
	if fullDir == "" {
		fullDir = "."
	}
	infos, err := cfg.ReadDir(fullDir)
	if err != nil {
		// not a directory; no matches
		return matches, nil
	}
	mode := pattern.Filenames | pattern.EntireString
	if cfg.NoCaseGlob {
		mode |= pattern.NoGlobCase
	}
	expr, err := pattern.Regexp(part, mode)
	if err != nil {
		return nil, err
	}
	rx, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		name := info.Name()
		if rx.MatchString(name) {
			matches = append(matches, pathJoin2(dir, name))
		}
	}
	return matches, nil
}

// ReadFields splits and returns n fields from s, to be used by the "read"
// shell builtin. If raw is set, backslash handling is not done.
//
// n(-1) means any number of fields; for n > 0, the last field will
// contain the remaining input with only the trailing IFS characters
// removed.
func ReadFields(cfg *Config, s string, n int, raw bool) []string {
	cfg = prepareConfig(cfg)
	type pos struct {
		start, end int
	}
	var fpos []pos

	runes := make([]rune, 0, len(s))
	infield := false
	esc := false
	for _, r := range s {
		if infield {
			if cfg.ifsRune(r) && (raw || !esc) {
				fpos[len(fpos)-1].end = len(runes)
				infield = false
			}
		} else {
			if !cfg.ifsRune(r) && (raw || !esc) {
				fpos = append(fpos, pos{start: len(runes), end: -1})
				infield = true
			}
		}
		if r == '\\' {
			if raw || esc {
				runes = append(runes, r)
			}
			esc = !esc
			continue
		}
		runes = append(runes, r)
		esc = false
	}
	if len(fpos) == 0 {
		return nil
	}
	if infield {
		fpos[len(fpos)-1].end = len(runes)
	}

	switch {
	case n == 1:
		// include the whole string in one field, with leading and
		// trailing IFS characters removed
		fpos[0].end = fpos[len(fpos)-1].end
		fpos = fpos[:1]
	case n > 1 && n < len(fpos):
		// include the remaining of the string in the last field
		fpos[n-1].end = fpos[len(fpos)-1].end
		fpos = fpos[:n]
	}

	var fields = make([]string, len(fpos))
	for i, p := range fpos {
		fields[i] = string(runes[p.start:p.end])
	}
	return fields
}
