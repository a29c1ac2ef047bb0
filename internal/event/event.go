package event

import (
	"context"
	"slices"
	"sync"
)

type Name string

type Event struct {
	Name Name
	Data any
}

type Listener interface {
	Listen(ctx context.Context, ev Event) error
}

type ListenerFunc func(ctx context.Context, ev Event) error

func (f ListenerFunc) Listen(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

type Dispatcher interface {
	Listen(name Name, l Listener)
	ListenFunc(name Name, fn ListenerFunc) Listener
	Dispatch(ctx context.Context, ev Event) error
	RemoveListener(name Name, l Listener)
	Listeners(name Name) int
}

func NewDispatcher() Dispatcher {
	return &dispatcher{
		handlers: map[Name][]Listener{},
	}
}

type dispatcher struct {
	handlers map[Name][]Listener
	sync.RWMutex
}

func (d *dispatcher) Listen(name Name, l Listener) {
	d.Lock()
	defer d.Unlock()
	d.handlers[name] = append(d.handlers[name], l)
}

func (d *dispatcher) ListenFunc(name Name, fn ListenerFunc) (l Listener) {
	l = &fn
	d.Listen(name, l)
	return
}

// Dispatch calls the listeners for ev.Name in registration order and stops at
// the first error.
func (d *dispatcher) Dispatch(ctx context.Context, ev Event) (err error) {
	d.RLock()
	handlers := slices.Clone(d.handlers[ev.Name])
	d.RUnlock()
	for _, h := range handlers {
		if err = h.Listen(ctx, ev); err != nil {
			return
		}
	}
	return
}

func (d *dispatcher) RemoveListener(name Name, l Listener) {
	d.Lock()
	defer d.Unlock()
	d.handlers[name] = slices.DeleteFunc(d.handlers[name], func(ll Listener) bool {
		return l == ll
	})
}

func (d *dispatcher) Listeners(name Name) int {
	d.RLock()
	defer d.RUnlock()
	return len(d.handlers[name])
}
