package entitlement

// EnvironmentVariables are the variable names a server may read on the client.
type EnvironmentVariables struct {
	names []string
	set   map[string]struct{}
}

func (e *EnvironmentVariables) Permit(name string) {
	if e.set == nil {
		e.set = map[string]struct{}{}
	}
	if _, ok := e.set[name]; ok {
		return
	}
	e.set[name] = struct{}{}
	e.names = append(e.names, name)
}

func (e *EnvironmentVariables) Permitted(name string) bool {
	_, ok := e.set[name]
	return ok
}

func (e *EnvironmentVariables) All() []string {
	return append([]string(nil), e.names...)
}

func (e *EnvironmentVariables) serialize() []SerializedEnvironmentVariable {
	out := make([]SerializedEnvironmentVariable, 0, len(e.names))
	for _, name := range e.names {
		out = append(out, SerializedEnvironmentVariable{Name: name})
	}
	return out
}
