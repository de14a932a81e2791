package resource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/guseggert/terminalwire/entitlement"
	"github.com/guseggert/terminalwire/protocol"
	"go.uber.org/zap"
)

// Directory manages directories the policy permits. Modes are not checked for directories.
type Directory struct {
	*Base
	policy *entitlement.Policy
}

// directoryMode is used for every directory create makes.
const directoryMode = 0o700

func NewDirectory(responder Responder, policy *entitlement.Policy, log *zap.SugaredLogger) *Directory {
	d := &Directory{policy: policy}
	d.Base = NewBase("directory", responder, log, d.permit, map[string]Handler{
		"list":   d.list,
		"create": d.create,
		"exist":  d.exist,
		"delete": d.delete,
	}).WithPrepare(expandPathParam)
	return d
}

func (d *Directory) permit(_ string, params protocol.Parameters) (bool, error) {
	path, err := params.String("path")
	if err != nil {
		return false, err
	}
	return d.policy.IsPathPermitted(path), nil
}

// list expands path as a glob pattern.
func (d *Directory) list(_ context.Context, params protocol.Parameters) (any, error) {
	matches, err := doublestar.FilepathGlob(params["path"].(string))
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []string{}
	}
	return matches, nil
}

func (d *Directory) create(_ context.Context, params protocol.Parameters) (any, error) {
	err := os.MkdirAll(params["path"].(string), directoryMode)
	if errors.Is(err, fs.ErrExist) {
		return nil, nil
	}
	return nil, err
}

func (d *Directory) exist(_ context.Context, params protocol.Parameters) (any, error) {
	info, err := os.Stat(params["path"].(string))
	return err == nil && info.IsDir(), nil
}

// delete removes an empty directory.
func (d *Directory) delete(_ context.Context, params protocol.Parameters) (any, error) {
	path := params["path"].(string)
	info, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", path)
	}
	return nil, os.Remove(path)
}
