package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry holds the host's plugins, keyed by name. Plugins are registered
// at process start and the set is never mutated afterwards; lifecycle fan-out
// walks them in registration order.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	plugins  map[string]Plugin
	states   map[string]State
	dataSets map[string]DataSet
}

// NewRegistry creates an empty plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		plugins:  make(map[string]Plugin),
		states:   make(map[string]State),
		dataSets: make(map[string]DataSet),
	}
}

// Register stores a plugin. Returns an error on duplicate names or duplicate
// data set types.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.plugins[name]; exists {
		return fmt.Errorf("plugin %q already registered", name)
	}

	if provider, ok := p.(DataSetProvider); ok {
		for _, ds := range provider.DataSets() {
			if _, exists := r.dataSets[ds.Type]; exists {
				return fmt.Errorf("plugin %q: data set %q already registered", name, ds.Type)
			}
		}
		for _, ds := range provider.DataSets() {
			r.dataSets[ds.Type] = ds
		}
	}

	r.plugins[name] = p
	r.states[name] = StateRegistered
	r.order = append(r.order, name)
	return nil
}

// MustRegister stores a plugin, panicking on duplicate.
func (r *Registry) MustRegister(p Plugin) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Lookup returns a registered plugin by name.
func (r *Registry) Lookup(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// Names returns all registered plugin names, sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// State reports the lifecycle state of a plugin.
func (r *Registry) State(name string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.states[name]
	return s, ok
}

// DataSet returns a registered data set by type name.
func (r *Registry) DataSet(typ string) (DataSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ds, ok := r.dataSets[typ]
	return ds, ok
}

func (r *Registry) setState(name string, s State) {
	r.mu.Lock()
	r.states[name] = s
	r.mu.Unlock()
}

// Configure routes one key/value option to the named plugin.
func (r *Registry) Configure(name, key, value string) error {
	p, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("plugin %q not registered", name)
	}
	c, ok := p.(Configurable)
	if !ok {
		return fmt.Errorf("plugin %q does not accept options", name)
	}
	if err := c.SetOption(key, value); err != nil {
		return fmt.Errorf("plugin %q: option %s=%q: %w", name, key, value, err)
	}
	r.setState(name, StateConfigured)
	return nil
}

// InitAll initializes every plugin in registration order. A failing plugin is
// marked failed and skipped for the rest of its lifecycle; the other plugins
// still start.
func (r *Registry) InitAll(ctx context.Context, host *HostContext) error {
	var errs []error
	for _, name := range r.registrationOrder() {
		p, _ := r.Lookup(name)
		init, ok := p.(Initializer)
		if !ok {
			r.setState(name, StateInitialized)
			continue
		}
		if err := init.Init(ctx, host); err != nil {
			r.setState(name, StateFailed)
			errs = append(errs, fmt.Errorf("plugin %q: init: %w", name, err))
			continue
		}
		r.setState(name, StateInitialized)
	}
	return errors.Join(errs...)
}

// ReadAll runs one collection tick over every initialized Reader plugin.
func (r *Registry) ReadAll(ctx context.Context) error {
	var errs []error
	for _, name := range r.registrationOrder() {
		if s, _ := r.State(name); s != StateInitialized {
			continue
		}
		p, _ := r.Lookup(name)
		reader, ok := p.(Reader)
		if !ok {
			continue
		}
		if err := reader.Read(ctx); err != nil {
			errs = append(errs, fmt.Errorf("plugin %q: read: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// ShutdownAll stops plugins in reverse registration order.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	var errs []error
	order := r.registrationOrder()
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		p, _ := r.Lookup(name)
		stopper, ok := p.(Shutdowner)
		if !ok {
			r.setState(name, StateStopped)
			continue
		}
		if err := stopper.Shutdown(ctx); err != nil {
			r.setState(name, StateFailed)
			errs = append(errs, fmt.Errorf("plugin %q: shutdown: %w", name, err))
			continue
		}
		r.setState(name, StateStopped)
	}
	return errors.Join(errs...)
}

func (r *Registry) registrationOrder() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order := make([]string, len(r.order))
	copy(order, r.order)
	return order
}
