package resource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/guseggert/terminalwire/protocol"
)

// Dispatcher routes inbound resource messages to resources by name.
type Dispatcher struct {
	mut       sync.RWMutex
	resources map[string]Resource
}

func NewDispatcher(resources ...Resource) (*Dispatcher, error) {
	d := &Dispatcher{resources: map[string]Resource{}}
	for _, r := range resources {
		if err := d.Add(r); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Add registers r. Registering a name twice is an error.
func (d *Dispatcher) Add(r Resource) error {
	d.mut.Lock()
	defer d.mut.Unlock()
	if _, ok := d.resources[r.Name()]; ok {
		return fmt.Errorf("resource %s already registered", r.Name())
	}
	d.resources[r.Name()] = r
	return nil
}

func (d *Dispatcher) MustAdd(r Resource) {
	if err := d.Add(r); err != nil {
		panic(err)
	}
}

// Lookup returns the resource a message is addressed to. An unknown name is a protocol violation.
func (d *Dispatcher) Lookup(msg protocol.Message) (Resource, error) {
	d.mut.RLock()
	r, ok := d.resources[msg.Name]
	d.mut.RUnlock()
	if !ok {
		return nil, protocol.Violationf(msg, "unknown resource %q", msg.Name)
	}
	return r, nil
}

// Dispatch runs msg on its resource in the calling goroutine.
func (d *Dispatcher) Dispatch(ctx context.Context, msg protocol.Message) error {
	r, err := d.Lookup(msg)
	if err != nil {
		return err
	}
	switch msg.Action {
	case protocol.ActionCommand:
		return r.Command(protocol.WithRequestID(ctx, msg.ID), msg.Command, msg.Parameters)
	case protocol.ActionNotify:
		r.Notify(ctx, msg.Command, msg.Parameters)
		return nil
	default:
		return protocol.Violationf(msg, "cannot dispatch resource action %q", msg.Action)
	}
}

func (d *Dispatcher) Names() []string {
	d.mut.RLock()
	defer d.mut.RUnlock()
	names := make([]string, 0, len(d.resources))
	for name := range d.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
