package shell

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// Shell is the interactive REPL driver (spec.md §4.7): it reads a line,
// parses it into a Pipeline, dispatches built-ins in-process or hands
// the Pipeline to an Executor, and records the resulting status.
type Shell struct {
	RL     *readline.Instance
	Env    Environment
	Exec   *Executor
	Stdout io.Writer
	Stderr io.Writer
}

// New builds a Shell reading from the process's own stdin/stdout. No
// history file, no completer, no aliases: spec.md's Non-goals exclude
// all three, so the teacher's history/completion wiring in New is
// dropped rather than carried over unused.
func New() (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Stdin:           os.Stdin,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	return &Shell{
		RL:     rl,
		Env:    OSEnvironment{},
		Exec:   &Executor{},
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}, nil
}

// prompt returns "$ " when stdin is a terminal, and "" otherwise, so
// piped/scripted input produces no prompt noise (spec.md §4.7).
func (sh *Shell) prompt() string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return "$ "
	}
	return ""
}

// Run is the read-parse-execute-record loop. It returns the status the
// process should exit with.
func (sh *Shell) Run() int {
	defer sh.RL.Close()

	for {
		sh.RL.SetPrompt(sh.prompt())

		line, err := sh.RL.Readline()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				fmt.Fprintln(sh.Stdout)
				return 0
			}
			fmt.Fprintf(sh.Stderr, "dsh: %v\n", &UnrecoverableError{Err: err})
			return 1
		}

		pipeline, perr := ParsePipeline(line)
		if perr != nil {
			fmt.Fprintf(sh.Stderr, "%v\n", perr)
			RecordStatus(sh.Env, 2)
			continue
		}
		if pipeline == nil {
			continue
		}

		status, exit, done := sh.execute(pipeline)
		RecordStatus(sh.Env, status)
		if done {
			return exit
		}
	}
}

// execute runs one parsed pipeline. A single-stage built-in with no
// redirections runs in-process (spec.md §4.5: no fork needed when there
// is nothing downstream to pipe into and no fd to redirect); everything
// else — external commands, multi-stage pipelines, and a built-in that
// redirects its input or output — goes through the Executor, which
// re-execs the binary for any built-in stage it meets along the way.
func (sh *Shell) execute(pipeline Pipeline) (status int, exitCode int, done bool) {
	if len(pipeline) == 1 && len(pipeline[0].Argv) > 0 && IsBuiltin(pipeline[0].Argv[0]) && !hasRedirection(pipeline[0]) {
		fn := Builtins[pipeline[0].Argv[0]]
		streams := &ExecStreams{Stdin: os.Stdin, Stdout: sh.Stdout, Stderr: sh.Stderr}
		argv := ExpandGlobs(pipeline[0].Argv)
		st, err := fn(sh.Env, streams, argv)
		var exitErr *ErrExit
		if errors.As(err, &exitErr) {
			return exitErr.Status, exitErr.Status, true
		}
		return st, 0, false
	}

	st, err := sh.Exec.Run(pipeline)
	if err != nil {
		fmt.Fprintf(sh.Stderr, "%v\n", err)
	}
	return st, 0, false
}

func hasRedirection(spec *CommandSpec) bool {
	return spec.InputFile != "" || spec.OutputFile != ""
}
