// Copyright (c) 2026, The gsh Authors
// See LICENSE for licensing information

// gsh is a POSIX-compatible shell with selected bash extensions, built on
// the syntax and interp packages.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/gshell-dev/gsh/interp"
	"github.com/gshell-dev/gsh/rcfile"
	"github.com/gshell-dev/gsh/syntax"
)

var version = "(devel)"

var (
	command     = flag.StringP("command", "c", "", "run the given command string")
	fromStdin   = flag.BoolP("stdin", "s", false, "read commands from standard input")
	interactive = flag.BoolP("interactive", "i", false, "force interactive behavior")
	login       = flag.BoolP("login", "l", false, "behave as a login shell")

	optErrexit = flag.BoolP("errexit", "e", false, "exit on the first command failure")
	optNounset = flag.BoolP("nounset", "u", false, "error on expanding unset variables")
	optXtrace  = flag.BoolP("xtrace", "x", false, "print commands before running them")
	optNoexec  = flag.BoolP("noexec", "n", false, "parse without executing")
	optVerbose = flag.BoolP("verbose", "v", false, "print input lines as they are read")
	optNoglob  = flag.BoolP("noglob", "f", false, "disable pathname expansion")
	optNames   = flag.StringArrayP("option", "o", nil, "set a long option by name")

	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() { os.Exit(main1()) }

func main1() int {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: gsh [options] [script [args...]]\n")
		fmt.Fprintf(os.Stderr, "       gsh [options] -c command [name [args...]]\n")
		fmt.Fprintf(os.Stderr, "       gsh [options] -s\n\n")
		flag.PrintDefaults()
	}
	// arguments after the script name belong to the script, not to gsh
	flag.CommandLine.SetInterspersed(false)
	flag.Parse()
	if *showVersion {
		fmt.Println(version)
		return 0
	}
	status, err := runAll()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return status
}

func shellParams() []string {
	var params []string
	if *optErrexit {
		params = append(params, "-e")
	}
	if *optNounset {
		params = append(params, "-u")
	}
	if *optXtrace {
		params = append(params, "-x")
	}
	if *optNoexec {
		params = append(params, "-n")
	}
	if *optVerbose {
		params = append(params, "-v")
	}
	if *optNoglob {
		params = append(params, "-f")
	}
	for _, name := range *optNames {
		params = append(params, "-o", name)
	}
	return params
}

func bumpShlvl() {
	n, _ := strconv.Atoi(os.Getenv("SHLVL"))
	os.Setenv("SHLVL", strconv.Itoa(n+1))
}

func runAll() (int, error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	bumpShlvl()

	stdinTerm := term.IsTerminal(int(os.Stdin.Fd()))
	interactiveMode := *interactive || (*command == "" && flag.NArg() == 0 &&
		!*fromStdin && stdinTerm)

	runner, err := interp.New(
		interp.Interactive(interactiveMode),
		interp.StdIO(os.Stdin, os.Stdout, os.Stderr),
	)
	if err != nil {
		return 1, err
	}
	if params := shellParams(); len(params) > 0 {
		if err := interp.Params(params...)(runner); err != nil {
			return 2, err
		}
	}
	if interactiveMode {
		if stdinTerm {
			interp.Params("-o", "monitor")(runner)
		}
		loadStartupFiles(ctx, runner)
	}
	if *login {
		sourceIfReadable(ctx, runner, os.Getenv("HOME")+"/.profile")
	}

	switch {
	case *command != "":
		name := "gsh"
		if flag.NArg() > 0 {
			name = flag.Arg(0)
			interp.Params(append([]string{"--"}, flag.Args()[1:]...)...)(runner)
		}
		return run(ctx, runner, strings.NewReader(*command), name)
	case flag.NArg() > 0 && !*fromStdin:
		path := flag.Arg(0)
		f, err := os.Open(path)
		if err != nil {
			return 127, fmt.Errorf("gsh: %s: No such file or directory", path)
		}
		defer f.Close()
		if flag.NArg() > 1 {
			interp.Params(append([]string{"--"}, flag.Args()[1:]...)...)(runner)
		}
		return run(ctx, runner, f, path)
	case interactiveMode:
		return runInteractive(ctx, runner, os.Stdin, os.Stderr)
	default:
		return run(ctx, runner, os.Stdin, "gsh")
	}
}

func run(ctx context.Context, runner *interp.Runner, reader io.Reader, name string) (int, error) {
	parser := syntax.NewParser()
	file, err := parser.Parse(reader, name)
	if err != nil {
		return 2, err
	}
	rerr := runner.Run(ctx, file)
	runner.RunExitTrap(ctx)
	return exitStatus(rerr), nil
}

// runInteractive reads one logical command unit at a time: it keeps
// reading continuation lines for as long as the parser reports that the
// input is incomplete, such as within an open quote or an unfinished
// here-document.
func runInteractive(ctx context.Context, runner *interp.Runner, stdin io.Reader, prompts io.Writer) (int, error) {
	parser := syntax.NewParser()
	lines := newLineReader(stdin)
	status := 0
	for {
		fmt.Fprint(prompts, prompt(runner, "PS1", "$ "))
		var buf strings.Builder
		for {
			line, err := lines.next()
			if err != nil {
				if buf.Len() == 0 && err == io.EOF {
					runner.RunExitTrap(ctx)
					return status, nil
				}
				return 2, err
			}
			buf.WriteString(line)
			buf.WriteString("\n")
			file, perr := parser.ParseBytes([]byte(buf.String()), "gsh")
			if perr != nil {
				if syntax.IsIncomplete(perr) {
					fmt.Fprint(prompts, prompt(runner, "PS2", "> "))
					continue
				}
				fmt.Fprintln(os.Stderr, perr)
				break
			}
			if err := runner.Run(ctx, file); err != nil {
				if s, ok := interp.IsExitStatus(err); ok {
					status = int(s)
				} else {
					fmt.Fprintln(os.Stderr, err)
					status = 1
				}
			} else {
				status = 0
			}
			break
		}
		if runner.Exited() {
			runner.RunExitTrap(ctx)
			return status, nil
		}
	}
}

// lineReader reads input line by line, so that no bytes past the current
// logical command are consumed.
type lineReader struct {
	r io.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: r}
}

func (lr *lineReader) next() (string, error) {
	var line []byte
	b := make([]byte, 1)
	for {
		n, err := lr.r.Read(b)
		if n > 0 {
			if b[0] == '\n' {
				return string(line), nil
			}
			line = append(line, b[0])
		}
		if err != nil {
			if len(line) > 0 && err == io.EOF {
				return string(line), nil
			}
			return "", err
		}
	}
}

func prompt(runner *interp.Runner, name, fallback string) string {
	if vr := runner.Vars[name]; vr.IsSet() {
		return vr.String()
	}
	if s := os.Getenv(name); s != "" {
		return s
	}
	return fallback
}

// loadStartupFiles sources the TOML rc file, plus the file named by ENV
// as POSIX specifies for interactive startup.
func loadStartupFiles(ctx context.Context, runner *interp.Runner) {
	if path := rcfile.DefaultPath(); path != "" {
		cfg, err := rcfile.Load(path)
		switch {
		case errors.Is(err, rcfile.ErrNotFound):
		case err != nil:
			fmt.Fprintf(os.Stderr, "gsh: %v\n", err)
		default:
			if err := cfg.Apply(ctx, runner); err != nil {
				fmt.Fprintf(os.Stderr, "gsh: %v\n", err)
			}
		}
	}
	if env := os.Getenv("ENV"); env != "" {
		sourceIfReadable(ctx, runner, env)
	}
}

func sourceIfReadable(ctx context.Context, runner *interp.Runner, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	file, err := syntax.NewParser().Parse(f, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gsh: %v\n", err)
		return
	}
	runner.Run(ctx, file)
}

func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	if status, ok := interp.IsExitStatus(err); ok {
		return int(status)
	}
	fmt.Fprintf(os.Stderr, "gsh: %v\n", err)
	return 1
}

