package jsonrpc

import (
	"fmt"
	"sort"
	"sync"

	"github.com/perfwatch/plugins/json"
)

// Handler is the domain logic behind one RPC method. It receives the raw
// params value (nil when the request carried none) and returns the result to
// embed in the response envelope, or a non-nil *Error.
//
// Handlers must validate the params' shape exhaustively before use, and any
// snapshot they acquire must be released on every exit path.
type Handler interface {
	Handle(params json.RawMessage) (any, *Error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(params json.RawMessage) (any, *Error)

// Handle calls f.
func (f HandlerFunc) Handle(params json.RawMessage) (any, *Error) {
	return f(params)
}

// Registry maps method names to handlers. Methods are registered at process
// start and the table is never mutated afterwards; lookups during dispatch
// take a read lock only.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]Handler
}

// NewRegistry creates an empty method registry.
func NewRegistry() *Registry {
	return &Registry{methods: make(map[string]Handler)}
}

// Register binds a handler to a method name. Duplicate registration is an
// error.
func (r *Registry) Register(method string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.methods[method]; exists {
		return fmt.Errorf("jsonrpc: method %q already registered", method)
	}
	r.methods[method] = h
	return nil
}

// MustRegister binds a handler, panicking on duplicate.
func (r *Registry) MustRegister(method string, h Handler) {
	if err := r.Register(method, h); err != nil {
		panic(err)
	}
}

// Lookup resolves a method name.
func (r *Registry) Lookup(method string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.methods[method]
	return h, ok
}

// Methods returns the registered method names, sorted.
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
