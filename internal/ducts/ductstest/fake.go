// Package ductstest provides a scriptable in-memory duct for tests.
package ductstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/iflb/neji-tutti-client/internal/ports"
)

type Call struct {
	Event   string
	Payload map[string]any
}

// FakeDuct answers Call from scripted replies and records everything sent
// through it. Push and EmitError drive the subscription side.
type FakeDuct struct {
	OpenErr  error
	OpenFunc func(wsdURL string) error
	CallFunc func(event string, payload map[string]any) (map[string]any, error)
	Replies  map[string]map[string]any
	CallErrs map[string]error

	mu          sync.Mutex
	openedURL   string
	calls       []Call
	sends       []Call
	handlers    map[string]func(map[string]any)
	errListener func(err error)
	closed      bool
}

var _ ports.Duct = (*FakeDuct)(nil)

func New() *FakeDuct {
	return &FakeDuct{
		Replies:  map[string]map[string]any{},
		CallErrs: map[string]error{},
	}
}

func (d *FakeDuct) Open(_ context.Context, wsdURL string) error {
	d.mu.Lock()
	d.openedURL = wsdURL
	d.mu.Unlock()
	if d.OpenFunc != nil {
		return d.OpenFunc(wsdURL)
	}
	return d.OpenErr
}

func (d *FakeDuct) Call(_ context.Context, event string, payload map[string]any) (map[string]any, error) {
	d.mu.Lock()
	d.calls = append(d.calls, Call{Event: event, Payload: payload})
	d.mu.Unlock()

	if d.CallFunc != nil {
		return d.CallFunc(event, payload)
	}
	if err, ok := d.CallErrs[event]; ok {
		return nil, err
	}
	if reply, ok := d.Replies[event]; ok {
		return reply, nil
	}
	return nil, fmt.Errorf("no scripted reply for event %q", event)
}

func (d *FakeDuct) Send(_ context.Context, event string, payload map[string]any) error {
	d.mu.Lock()
	d.sends = append(d.sends, Call{Event: event, Payload: payload})
	d.mu.Unlock()
	return nil
}

func (d *FakeDuct) Subscribe(event string, fn func(payload map[string]any)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers == nil {
		d.handlers = map[string]func(map[string]any){}
	}
	if fn == nil {
		delete(d.handlers, event)
		return
	}
	d.handlers[event] = fn
}

func (d *FakeDuct) SetErrorListener(fn func(err error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errListener = fn
}

func (d *FakeDuct) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Push delivers a server push to the handler subscribed for event, if any.
func (d *FakeDuct) Push(event string, payload map[string]any) {
	d.mu.Lock()
	fn := d.handlers[event]
	d.mu.Unlock()
	if fn != nil {
		fn(payload)
	}
}

// EmitError feeds the installed connection error listener.
func (d *FakeDuct) EmitError(err error) {
	d.mu.Lock()
	fn := d.errListener
	d.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (d *FakeDuct) OpenedURL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openedURL
}

func (d *FakeDuct) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

func (d *FakeDuct) Sends() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.sends...)
}

func (d *FakeDuct) CallsFor(event string) []Call {
	var out []Call
	for _, call := range d.Calls() {
		if call.Event == event {
			out = append(out, call)
		}
	}
	return out
}

func (d *FakeDuct) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// HasSubscriber reports whether a handler is currently installed for event.
func (d *FakeDuct) HasSubscriber(event string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.handlers[event] != nil
}
