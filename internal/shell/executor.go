package shell

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// ReexecFlag is the hidden flag cmd/dsh recognizes to dispatch straight
// into a named built-in instead of starting the REPL. It is how a
// built-in gets "forked" for a multi-stage pipeline stage: spec.md §9
// says pipe-stage built-ins run in a child; a Go binary has no external
// program to execvp for its own built-ins, so it re-execs itself
// (mvdan-sh's DefaultExecHandler resolves external programs the same
// way — this just does it for the one-binary built-in case too).
const ReexecFlag = "-dsh-builtin-exec"

// Executor runs a Pipeline as a sequence of cooperating OS processes
// connected by anonymous pipes (spec.md §4.4).
type Executor struct{}

// stage tracks one pipeline position across the creation loop: either
// a started child to reap later, or a status already decided in-line
// (a redirection-open or exec failure, which are child-local failures
// per spec.md §4.4 and never abort the rest of the pipeline).
type stage struct {
	cmd      *exec.Cmd
	status   int
	forkFail bool // Start failed after a resolved path: a parent-level failure
}

// Run executes pipeline and returns the exit status of its last stage.
// A pipe-creation or fork (cmd.Start after a resolved path) failure is
// a PipelineStartupError: already-spawned children are reaped and the
// call returns a SyscallError without starting further stages.
func (x *Executor) Run(pipeline Pipeline) (int, error) {
	n := len(pipeline)
	if n == 0 {
		return 0, nil
	}

	stages := make([]stage, n)
	var prevRead *os.File // "previous read end"; nil means inherit the shell's own stdin

	reapStarted := func() {
		for i := range stages {
			if stages[i].cmd != nil {
				stages[i].cmd.Wait()
			}
		}
	}

	for i, spec := range pipeline {
		var pipeRead, pipeWrite *os.File
		if i < n-1 {
			pr, pw, err := os.Pipe()
			if err != nil {
				if prevRead != nil {
					prevRead.Close()
				}
				reapStarted()
				return 1, &SyscallError{Op: "pipe", Err: err}
			}
			pipeRead, pipeWrite = pr, pw
		}

		stages[i] = x.runStage(spec, prevRead, pipeWrite, i < n-1)

		if prevRead != nil {
			prevRead.Close()
		}
		if pipeWrite != nil {
			pipeWrite.Close()
		}

		if stages[i].forkFail {
			// fork-equivalent (Start) failed after a resolved path:
			// a true parent-level resource failure, not a
			// command-not-found. Abort the pipeline.
			if pipeRead != nil {
				pipeRead.Close()
			}
			reapStarted()
			return 1, &SyscallError{Op: "fork", Err: fmt.Errorf("%s", spec.Argv[0])}
		}

		if i < n-1 {
			prevRead = pipeRead
		} else if pipeRead != nil {
			pipeRead.Close()
		}
	}

	if prevRead != nil {
		prevRead.Close()
	}

	var last int
	for i := range stages {
		last = stages[i].wait()
	}
	return last, nil
}

func (s *stage) wait() int {
	if s.cmd == nil {
		return s.status
	}
	return waitStatus(s.cmd)
}

// runStage wires one stage's descriptors and starts it. Redirection
// open failures and exec/PATH-lookup failures are reported on the
// stage's own stderr and carried as a synthetic status (1 or 127);
// only a Start failure *after* a successfully resolved path is
// escalated to the caller as a fork-level SyscallError.
func (x *Executor) runStage(spec *CommandSpec, prevRead, pipeWrite *os.File, hasNext bool) stage {
	stdin, stdinOwned, err := stageStdin(spec, prevRead)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return stage{status: 1}
	}
	defer closeIfOwned(stdin, stdinOwned)

	stdout, stdoutOwned, err := stageStdout(spec, pipeWrite, hasNext)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return stage{status: 1}
	}
	defer closeIfOwned(stdout, stdoutOwned)

	if len(spec.Argv) == 0 {
		// spec.md §6's grammar allows a command made of redirections
		// only (e.g. "> out.txt"); the redirection is already wired
		// above, there is nothing to exec, and the stage succeeds
		// with no child to reap.
		return stage{status: 0}
	}

	argv := ExpandGlobs(spec.Argv)

	var path string
	var args []string
	if IsBuiltin(argv[0]) {
		// A built-in that needs to sit in a pipe (either feeding the
		// next stage or reading the previous one's output) can't run
		// in-process: the shell itself mustn't block on its own pipe
		// plumbing. There's no external program to execvp for it
		// either, so it re-execs its own binary in built-in-dispatch
		// mode instead (see ReexecFlag).
		self, err := os.Executable()
		if err != nil {
			fmt.Fprintf(os.Stderr, "dsh: %s: %v\n", argv[0], err)
			return stage{status: 1}
		}
		path = self
		args = append([]string{self, ReexecFlag}, argv...)
	} else {
		var err error
		path, err = exec.LookPath(argv[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "command not found: %s\n", argv[0])
			return stage{status: 127}
		}
		args = argv
	}

	cmd := &exec.Cmd{
		Path:   path,
		Args:   args,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: os.Stderr,
	}
	if err := cmd.Start(); err != nil {
		return stage{forkFail: true}
	}
	return stage{cmd: cmd}
}

func closeIfOwned(f *os.File, owned bool) {
	if owned {
		f.Close()
	}
}

// stageStdin picks the stage's stdin source: its own InputFile if set,
// else the previous stage's pipe read end, else the shell's own stdin.
// The bool return reports whether the caller now owns a descriptor
// that must be closed once the child has it wired.
func stageStdin(spec *CommandSpec, prevRead *os.File) (*os.File, bool, error) {
	if spec.InputFile != "" {
		f, err := os.OpenFile(spec.InputFile, os.O_RDONLY, 0)
		if err != nil {
			return nil, false, &ChildError{Path: spec.InputFile, Err: err}
		}
		return f, true, nil
	}
	if prevRead != nil {
		return prevRead, false, nil
	}
	return os.Stdin, false, nil
}

// stageStdout picks the stage's stdout sink: its own OutputFile if
// set, else the pipe write end feeding the next stage, else the
// shell's own stdout.
func stageStdout(spec *CommandSpec, pipeWrite *os.File, hasNext bool) (*os.File, bool, error) {
	if spec.OutputFile != "" {
		flags := os.O_WRONLY | os.O_CREATE
		if spec.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(spec.OutputFile, flags, 0644)
		if err != nil {
			return nil, false, &ChildError{Path: spec.OutputFile, Err: err}
		}
		return f, true, nil
	}
	if hasNext {
		return pipeWrite, false, nil
	}
	return os.Stdout, false, nil
}

// ChildError reports an open-for-redirection failure, formatted as the
// canonical "<path>: <reason>" diagnostic (spec.md §4.4: "on failure
// exit 1").
type ChildError struct {
	Path string
	Err  error
}

func (e *ChildError) Error() string { return e.Path + ": " + e.Err.Error() }
func (e *ChildError) Unwrap() error { return e.Err }

// waitStatus maps a finished *exec.Cmd to the shell's exit status:
// WIFEXITED's low byte on normal exit, 128+signal if killed by signal,
// 1 for any other wait failure. Mirrors
// mvdan.cc/sh/v3/interp.DefaultExecHandler's case *exec.ExitError.
func waitStatus(cmd *exec.Cmd) int {
	err := cmd.Wait()
	if err == nil {
		return 0
	}
	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return 1
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return exitErr.ExitCode()
}
