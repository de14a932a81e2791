package resource

import (
	"context"
	"fmt"
	"os"

	"github.com/guseggert/terminalwire/entitlement"
	"github.com/guseggert/terminalwire/protocol"
	"go.uber.org/zap"
)

// File reads and writes files the policy permits.
// Files are created with entitlement.DefaultMode unless the server asks for a mode the policy allows.
type File struct {
	*Base
	policy *entitlement.Policy
}

func NewFile(responder Responder, policy *entitlement.Policy, log *zap.SugaredLogger) *File {
	f := &File{policy: policy}
	f.Base = NewBase("file", responder, log, f.permit, map[string]Handler{
		"read":        f.read,
		"write":       f.write,
		"append":      f.append,
		"delete":      f.delete,
		"exist":       f.exist,
		"change_mode": f.changeMode,
	}).WithPrepare(expandPathParam)
	return f
}

func (f *File) permit(_ string, params protocol.Parameters) (bool, error) {
	path, err := params.String("path")
	if err != nil {
		return false, err
	}
	mode, _, err := modeParam(params)
	if err != nil {
		return false, err
	}
	return f.policy.IsPathModePermitted(path, mode)
}

func (f *File) read(_ context.Context, params protocol.Parameters) (any, error) {
	b, err := os.ReadFile(params["path"].(string))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (f *File) write(_ context.Context, params protocol.Parameters) (any, error) {
	return nil, writeFile(params, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
}

func (f *File) append(_ context.Context, params protocol.Parameters) (any, error) {
	return nil, writeFile(params, os.O_WRONLY|os.O_CREATE|os.O_APPEND)
}

func writeFile(params protocol.Parameters, flag int) error {
	content, err := params.String("content")
	if err != nil {
		return err
	}
	mode, _, err := modeParam(params)
	if err != nil {
		return err
	}
	// The mode only applies when the file is created, like open(2).
	fh, err := os.OpenFile(params["path"].(string), flag, os.FileMode(mode))
	if err != nil {
		return err
	}
	_, err = fh.WriteString(content)
	if cerr := fh.Close(); err == nil {
		err = cerr
	}
	return err
}

func (f *File) delete(_ context.Context, params protocol.Parameters) (any, error) {
	path := params["path"].(string)
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return nil, os.Remove(path)
}

func (f *File) exist(_ context.Context, params protocol.Parameters) (any, error) {
	_, err := os.Stat(params["path"].(string))
	return err == nil, nil
}

func (f *File) changeMode(_ context.Context, params protocol.Parameters) (any, error) {
	mode, ok, err := modeParam(params)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("missing parameter %q", "mode")
	}
	return nil, os.Chmod(params["path"].(string), os.FileMode(mode))
}

// modeParam returns the "mode" parameter, or DefaultMode when it is absent.
func modeParam(params protocol.Parameters) (entitlement.Mode, bool, error) {
	v, ok, err := params.Integer("mode")
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return entitlement.DefaultMode, false, nil
	}
	mode, err := entitlement.ParseMode(v)
	if err != nil {
		return 0, false, err
	}
	return mode, true, nil
}

// expandPathParam replaces the "path" parameter with its absolute form, so the permit check and the operation see the same path.
func expandPathParam(params protocol.Parameters) (protocol.Parameters, error) {
	path, err := params.String("path")
	if err != nil {
		return nil, err
	}
	expanded, err := entitlement.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	out := make(protocol.Parameters, len(params))
	for k, v := range params {
		out[k] = v
	}
	out["path"] = expanded
	return out, nil
}
