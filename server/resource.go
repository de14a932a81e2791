package server

import (
	"context"
	"fmt"
	"io"

	"github.com/guseggert/terminalwire/entitlement"
	"github.com/guseggert/terminalwire/protocol"
)

// stub issues commands and notifications for one named client resource.
type stub struct {
	name    string
	session *Session
}

func (s stub) call(ctx context.Context, command string, params protocol.Parameters) (any, error) {
	return s.session.Call(ctx, protocol.Command(s.name, command, params))
}

func (s stub) notify(ctx context.Context, command string, params protocol.Parameters) error {
	return s.session.Notify(ctx, protocol.Notify(s.name, command, params))
}

// Output prints to the client's stdout or stderr.
// Printing is a notification: it does not wait for the client and never reports client-side failures.
type Output struct{ stub }

func (o *Output) Print(ctx context.Context, data string) error {
	return o.notify(ctx, "print", protocol.Parameters{"data": data})
}

func (o *Output) PrintLine(ctx context.Context, data string) error {
	return o.notify(ctx, "print_line", protocol.Parameters{"data": data})
}

// Writer adapts o to an io.Writer that prints with ctx.
func (o *Output) Writer(ctx context.Context) io.Writer {
	return &outputWriter{ctx: ctx, o: o}
}

type outputWriter struct {
	ctx context.Context
	o   *Output
}

func (w *outputWriter) Write(p []byte) (int, error) {
	if err := w.o.Print(w.ctx, string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Input reads from the client's stdin.
type Input struct{ stub }

// ReadLine returns the next line including its newline, or io.EOF once the client's stdin is exhausted.
func (in *Input) ReadLine(ctx context.Context) (string, error) {
	v, err := in.call(ctx, "read_line", nil)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", io.EOF
	}
	return asString(v)
}

// ReadPassword reads a line without echoing it on the client's terminal.
func (in *Input) ReadPassword(ctx context.Context) (string, error) {
	v, err := in.call(ctx, "read_password", nil)
	if err != nil {
		return "", err
	}
	return asString(v)
}

type File struct{ stub }

// WriteOption configures File.Write and File.Append.
type WriteOption func(protocol.Parameters)

// WithMode sets the permission bits of a file the write creates.
// The client checks them against its policy; without it the default mode is used.
func WithMode(mode entitlement.Mode) WriteOption {
	return func(p protocol.Parameters) { p["mode"] = uint32(mode) }
}

func (f *File) Read(ctx context.Context, path string) (string, error) {
	v, err := f.call(ctx, "read", protocol.Parameters{"path": path})
	if err != nil {
		return "", err
	}
	return asString(v)
}

func (f *File) Write(ctx context.Context, path, content string, opts ...WriteOption) error {
	return f.write(ctx, "write", path, content, opts)
}

func (f *File) Append(ctx context.Context, path, content string, opts ...WriteOption) error {
	return f.write(ctx, "append", path, content, opts)
}

func (f *File) write(ctx context.Context, command, path, content string, opts []WriteOption) error {
	params := protocol.Parameters{"path": path, "content": content}
	for _, o := range opts {
		o(params)
	}
	_, err := f.call(ctx, command, params)
	return err
}

func (f *File) Delete(ctx context.Context, path string) error {
	_, err := f.call(ctx, "delete", protocol.Parameters{"path": path})
	return err
}

func (f *File) Exist(ctx context.Context, path string) (bool, error) {
	v, err := f.call(ctx, "exist", protocol.Parameters{"path": path})
	if err != nil {
		return false, err
	}
	return asBool(v)
}

func (f *File) ChangeMode(ctx context.Context, path string, mode entitlement.Mode) error {
	_, err := f.call(ctx, "change_mode", protocol.Parameters{"path": path, "mode": uint32(mode)})
	return err
}

type Directory struct{ stub }

// List returns the client paths matching the glob pattern.
func (d *Directory) List(ctx context.Context, pattern string) ([]string, error) {
	v, err := d.call(ctx, "list", protocol.Parameters{"path": pattern})
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		if v == nil {
			return []string{}, nil
		}
		return nil, fmt.Errorf("unexpected list response %T", v)
	}
	paths := make([]string, 0, len(items))
	for _, item := range items {
		s, err := asString(item)
		if err != nil {
			return nil, err
		}
		paths = append(paths, s)
	}
	return paths, nil
}

func (d *Directory) Create(ctx context.Context, path string) error {
	_, err := d.call(ctx, "create", protocol.Parameters{"path": path})
	return err
}

func (d *Directory) Exist(ctx context.Context, path string) (bool, error) {
	v, err := d.call(ctx, "exist", protocol.Parameters{"path": path})
	if err != nil {
		return false, err
	}
	return asBool(v)
}

func (d *Directory) Delete(ctx context.Context, path string) error {
	_, err := d.call(ctx, "delete", protocol.Parameters{"path": path})
	return err
}

type EnvironmentVariable struct{ stub }

// Read returns the value of a client environment variable and whether it is set.
func (e *EnvironmentVariable) Read(ctx context.Context, name string) (string, bool, error) {
	v, err := e.call(ctx, "read", protocol.Parameters{"name": name})
	if err != nil || v == nil {
		return "", false, err
	}
	s, err := asString(v)
	return s, err == nil, err
}

type Browser struct{ stub }

// Launch opens url in the client's browser.
func (b *Browser) Launch(ctx context.Context, url string) error {
	_, err := b.call(ctx, "launch", protocol.Parameters{"url": url})
	return err
}

func asString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("expected a string response, got %T", v)
	}
}

func asBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected a boolean response, got %T", v)
	}
	return b, nil
}
