package netspec

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
)

// Debug enables verbose logging, such as subprocess stderr marked OnlyDebug.
var Debug bool = false

// Cmd is a subprocess whose stdin/stdout are piped to the caller and whose
// stderr is forwarded to the log.
type Cmd struct {
	prefix string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
	// if not nil, printStderr sends the last line(s) it got before exiting
	stderrCh chan []string
	closed   bool
}

func (cmd *Cmd) Stdin() io.WriteCloser {
	return cmd.stdin
}

func (cmd *Cmd) Stdout() io.ReadCloser {
	return cmd.stdout
}

type CmdError struct {
	ExitError error
	Lines     []string
}

func (e CmdError) Error() string {
	var linesPart string
	if len(e.Lines) > 0 {
		linesPart = fmt.Sprintf(" (%s)", e.Lines[len(e.Lines)-1])
	}
	return fmt.Sprintf("exit error: %v", e.ExitError) + linesPart
}

func (e CmdError) Unwrap() error {
	return e.ExitError
}

func (cmd *Cmd) Wait() error {
	if cmd.closed {
		return fmt.Errorf("[%s] wait called twice", cmd.prefix)
	}
	cmd.closed = true
	if cmd.stdin != nil {
		cmd.stdin.Close()
	}
	var lastLines []string
	if cmd.stderrCh != nil {
		lastLines = <-cmd.stderrCh
	}
	err := cmd.cmd.Wait()
	if err != nil {
		myerr := CmdError{
			ExitError: err,
			Lines:     lastLines,
		}
		log.Printf("[%s] %v", cmd.prefix, myerr.Error())
		return myerr
	}
	return nil
}

func (cmd *Cmd) printStderr(opts CommandOptions) {
	rd := bufio.NewReader(cmd.stderr)
	var lastLines []string
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimRight(line, "\n")
		if opts.AllStderrLines {
			lastLines = append(lastLines, line)
		} else {
			lastLines = []string{line}
		}
		if !opts.OnlyDebug || Debug {
			log.Printf("[%s] %s", cmd.prefix, line)
		}
	}
	cmd.stderrCh <- lastLines
}

type CommandOptions struct {
	// Function to arbitrarily modify the exec.Cmd, e.g., set working directory.
	// This is called just before starting the process.
	F func(*exec.Cmd)
	// Whether to only print stderr if debug mode is on.
	OnlyDebug bool
	// Whether to keep not just the last stderr line, but all lines, in case of error.
	AllStderrLines bool
}

// Command starts a process with piped stdin and stdout. The process is
// killed when ctx is done.
func Command(ctx context.Context, prefix string, opts CommandOptions, command string, args ...string) (*Cmd, error) {
	log.Printf("[util] %s %v", command, args)
	cmd := exec.CommandContext(ctx, command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if opts.F != nil {
		opts.F(cmd)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("error starting %s: %v", command, err)
	}
	mycmd := &Cmd{
		prefix:   prefix,
		cmd:      cmd,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		stderrCh: make(chan []string, 1),
	}
	go mycmd.printStderr(opts)
	return mycmd, nil
}
