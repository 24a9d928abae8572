// Command dsh is an interactive, POSIX-flavored command shell: it
// tokenizes a line, builds a pipeline of commands connected by pipes
// and redirections, resolves glob patterns, and runs the result either
// as an in-process built-in or as a tree of cooperating OS processes.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mikaelmansson/dsh/internal/shell"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == shell.ReexecFlag {
		os.Exit(runBuiltin(os.Args[2:]))
	}

	sh, err := shell.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dsh: %v\n", err)
		os.Exit(1)
	}
	os.Exit(sh.Run())
}

// runBuiltin dispatches a re-exec'd built-in invocation (see
// shell.ReexecFlag): a built-in command sitting in a multi-stage
// pipeline runs here, in a freshly started child process, wired to the
// stdio the Executor already set up via os/exec.
func runBuiltin(argv []string) int {
	if len(argv) == 0 {
		fmt.Fprintln(os.Stderr, "dsh: missing built-in name")
		return 1
	}
	fn, ok := shell.Builtins[argv[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "dsh: %s: not a built-in\n", argv[0])
		return 1
	}
	streams := &shell.ExecStreams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	status, err := fn(shell.OSEnvironment{}, streams, argv)
	var exitErr *shell.ErrExit
	if errors.As(err, &exitErr) {
		return exitErr.Status
	}
	return status
}
