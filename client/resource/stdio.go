package resource

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/guseggert/terminalwire/protocol"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Output prints to a terminal stream.
type Output struct {
	*Base

	mut sync.Mutex
	w   io.Writer
}

func NewStdout(responder Responder, w io.Writer, log *zap.SugaredLogger) *Output {
	return newOutput("stdout", responder, w, log)
}

func NewStderr(responder Responder, w io.Writer, log *zap.SugaredLogger) *Output {
	return newOutput("stderr", responder, w, log)
}

func newOutput(name string, responder Responder, w io.Writer, log *zap.SugaredLogger) *Output {
	o := &Output{w: w}
	o.Base = NewBase(name, responder, log, permitAll, map[string]Handler{
		"print":      o.print,
		"print_line": o.printLine,
	})
	return o
}

func (o *Output) print(_ context.Context, params protocol.Parameters) (any, error) {
	o.mut.Lock()
	defer o.mut.Unlock()
	_, err := fmt.Fprint(o.w, dataParam(params))
	return nil, err
}

func (o *Output) printLine(_ context.Context, params protocol.Parameters) (any, error) {
	o.mut.Lock()
	defer o.mut.Unlock()
	_, err := fmt.Fprintln(o.w, dataParam(params))
	return nil, err
}

func dataParam(params protocol.Parameters) any {
	if v, ok := params["data"]; ok && v != nil {
		return v
	}
	return ""
}

// Input reads from the terminal's standard input.
type Input struct {
	*Base

	mut sync.Mutex
	r   *bufio.Reader
	// fd is the terminal file descriptor, or -1 if stdin is not a terminal.
	fd int
}

func NewStdin(responder Responder, r io.Reader, log *zap.SugaredLogger) *Input {
	in := &Input{r: bufio.NewReader(r), fd: -1}
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		in.fd = int(f.Fd())
	}
	in.Base = NewBase("stdin", responder, log, permitAll, map[string]Handler{
		"read_line":     in.readLine,
		"read_password": in.readPassword,
	})
	return in
}

// readLine returns the next line including its newline, or nil at end of input.
func (in *Input) readLine(context.Context, protocol.Parameters) (any, error) {
	in.mut.Lock()
	defer in.mut.Unlock()
	line, err := in.r.ReadString('\n')
	if errors.Is(err, io.EOF) {
		if line == "" {
			return nil, nil
		}
		return line, nil
	}
	if err != nil {
		return nil, err
	}
	return line, nil
}

// readPassword reads a line without echoing it when stdin is a terminal.
func (in *Input) readPassword(context.Context, protocol.Parameters) (any, error) {
	in.mut.Lock()
	defer in.mut.Unlock()
	if in.fd >= 0 {
		b, err := term.ReadPassword(in.fd)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	line, err := in.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return nil, err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
