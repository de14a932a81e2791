package resource

import (
	"context"
	"os"

	"github.com/guseggert/terminalwire/entitlement"
	"github.com/guseggert/terminalwire/protocol"
	"go.uber.org/zap"
)

// LookupEnvFunc has the signature of os.LookupEnv.
type LookupEnvFunc func(name string) (string, bool)

type EnvironmentVariable struct {
	*Base
	policy *entitlement.Policy
	lookup LookupEnvFunc
}

// NewEnvironmentVariable reads variables through lookup, or os.LookupEnv when lookup is nil.
func NewEnvironmentVariable(responder Responder, policy *entitlement.Policy, lookup LookupEnvFunc, log *zap.SugaredLogger) *EnvironmentVariable {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	e := &EnvironmentVariable{policy: policy, lookup: lookup}
	e.Base = NewBase("environment_variable", responder, log, e.permit, map[string]Handler{
		"read": e.read,
	})
	return e
}

func (e *EnvironmentVariable) permit(_ string, params protocol.Parameters) (bool, error) {
	name, err := params.String("name")
	if err != nil {
		return false, err
	}
	return e.policy.IsEnvVarPermitted(name), nil
}

// read returns nil for unset variables.
func (e *EnvironmentVariable) read(_ context.Context, params protocol.Parameters) (any, error) {
	value, ok := e.lookup(params["name"].(string))
	if !ok {
		return nil, nil
	}
	return value, nil
}
