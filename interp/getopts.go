// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

package interp

import (
	"strconv"
	"strings"
)

// getoptsState tracks the position within a single option argument for
// combined options such as -abc, spanning calls to the getopts builtin.
type getoptsState struct {
	argIndex int // index within the current argument, past the '-'
}

// getoptsBuiltin implements the POSIX getopts builtin, driving OPTIND and
// OPTARG over the positional parameters or an explicit argument list.
func (r *Runner) getoptsBuiltin(args []string) int {
	if len(args) < 2 {
		r.errf("gsh: getopts: usage: getopts optstring name [arg ...]\n")
		return 2
	}
	optspec, name := args[0], args[1]
	operands := r.Params
	if len(args) > 2 {
		operands = args[2:]
	}
	silent := strings.HasPrefix(optspec, ":")
	if silent {
		optspec = optspec[1:]
	}
	optind, _ := strconv.Atoi(r.getVar("OPTIND"))
	if optind < 1 {
		optind = 1
		r.optState.argIndex = 0
	}
	fail := func() int {
		r.setVarString(name, "?")
		return 1
	}
	for {
		if optind > len(operands) {
			return fail()
		}
		arg := operands[optind-1]
		if r.optState.argIndex == 0 {
			if arg == "--" {
				r.setVarString("OPTIND", strconv.Itoa(optind+1))
				return fail()
			}
			if len(arg) < 2 || arg[0] != '-' {
				return fail()
			}
			r.optState.argIndex = 1
		}
		opt := arg[r.optState.argIndex]
		r.optState.argIndex++
		if r.optState.argIndex >= len(arg) {
			r.optState.argIndex = 0
			optind++
		}
		i := strings.IndexByte(optspec, opt)
		if i < 0 || opt == ':' {
			if !silent {
				r.errf("gsh: getopts: illegal option -- %c\n", opt)
				r.delVar("OPTARG")
			} else {
				r.setVarString("OPTARG", string(opt))
			}
			r.setVarString(name, "?")
			r.setVarString("OPTIND", strconv.Itoa(optind))
			return 0
		}
		if i+1 < len(optspec) && optspec[i+1] == ':' {
			// option takes an argument
			var optarg string
			if r.optState.argIndex > 0 {
				optarg = arg[r.optState.argIndex:]
				r.optState.argIndex = 0
				optind++
			} else if optind <= len(operands) {
				optarg = operands[optind-1]
				optind++
			} else {
				r.setVarString("OPTIND", strconv.Itoa(optind))
				if silent {
					r.setVarString(name, ":")
					r.setVarString("OPTARG", string(opt))
				} else {
					r.errf("gsh: getopts: option requires an argument -- %c\n", opt)
					r.setVarString(name, "?")
					r.delVar("OPTARG")
				}
				return 0
			}
			r.setVarString("OPTARG", optarg)
		} else {
			r.delVar("OPTARG")
		}
		r.setVarString(name, string(opt))
		r.setVarString("OPTIND", strconv.Itoa(optind))
		return 0
	}
}
