// Package jsonrpc implements the JSON-RPC 2.0 over HTTP server plugin. It
// serves host-registered methods backed by the snapshot cache and keeps the
// pipeline counters published through the host's dispatch interface.
package jsonrpc

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/perfwatch/plugins/cache"
	"github.com/perfwatch/plugins/config"
	"github.com/perfwatch/plugins/logging"
	"github.com/perfwatch/plugins/metrics"
	"github.com/perfwatch/plugins/plugin"
)

// PluginName is the name the plugin registers under and the plugin field of
// every value list it dispatches.
const PluginName = "jsonrpc"

// Config holds the server options. Port has no default and must be
// configured.
type Config struct {
	Port                int `mapstructure:"port" validate:"required,min=1,max=65535"`
	MaxClients          int `mapstructure:"max_clients" default:"16" validate:"min=1,max=65535"`
	CacheExpirationTime int `mapstructure:"cache_expiration_time" default:"60" validate:"min=1,max=3600"`
	CacheSlots          int `mapstructure:"cache_slots" default:"6" validate:"min=2,max=64"`
}

// RegisterFunc contributes method handlers to the registry at Init time,
// once the snapshot pool exists.
type RegisterFunc func(reg *Registry, pool *cache.Pool) error

// Option configures the plugin at construction.
type Option func(*Plugin)

// WithHandlers appends a handler registration hook.
func WithHandlers(fn RegisterFunc) Option {
	return func(p *Plugin) {
		p.registerFns = append(p.registerFns, fn)
	}
}

// Plugin is the JSON-RPC server plugin. Zero value is not usable; construct
// with New.
type Plugin struct {
	cfg         Config
	registerFns []RegisterFunc

	log      logging.Logger
	counters *metrics.Counters
	pool     *cache.Pool
	exporter *metrics.Exporter
	registry *Registry
	srv      *http.Server
	addr     net.Addr
}

// New creates the plugin with default configuration.
func New(opts ...Option) *Plugin {
	p := &Plugin{log: logging.Nop()}
	if err := defaults.Set(&p.cfg); err != nil {
		panic(fmt.Sprintf("jsonrpc: applying config defaults: %v", err))
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return PluginName }

// SetOption implements plugin.Configurable. Keys are matched
// case-insensitively; range validation happens at Init.
func (p *Plugin) SetOption(key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("jsonrpc: option %s: %q is not a number", key, value)
	}
	switch strings.ToLower(key) {
	case "port":
		p.cfg.Port = n
	case "maxclients":
		p.cfg.MaxClients = n
	case "cacheexpirationtime", "jsonrpccacheexpirationtime":
		p.cfg.CacheExpirationTime = n
	default:
		return fmt.Errorf("jsonrpc: unknown option %q", key)
	}
	return nil
}

// Init implements plugin.Initializer. It validates the configuration, builds
// the snapshot pool and method registry and starts the HTTP listener.
func (p *Plugin) Init(ctx context.Context, host *plugin.HostContext) error {
	p.log = host.Logger.Named(PluginName)

	if err := config.Validate(&p.cfg); err != nil {
		return fmt.Errorf("jsonrpc: invalid configuration: %w", err)
	}

	p.counters = metrics.NewCounters()
	p.pool = cache.New(host.Names, p.cfg.CacheSlots, time.Duration(p.cfg.CacheExpirationTime)*time.Second)
	p.exporter = metrics.NewExporter(host, PluginName, p.counters, p.pool)

	p.registry = NewRegistry()
	for _, fn := range p.registerFns {
		if err := fn(p.registry, p.pool); err != nil {
			return fmt.Errorf("jsonrpc: registering handlers: %w", err)
		}
	}

	pipeline := NewPipeline(p.registry, p.counters, int64(p.cfg.MaxClients), p.log)
	router := chi.NewRouter()
	router.Handle("/*", pipeline)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", p.cfg.Port))
	if err != nil {
		return fmt.Errorf("jsonrpc: listening on port %d: %w", p.cfg.Port, err)
	}
	p.addr = ln.Addr()
	p.srv = &http.Server{Handler: router}

	go func() {
		if err := p.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			p.log.Error("http server stopped", zap.Error(err))
		}
	}()

	p.log.Info("listening",
		zap.String("addr", p.addr.String()),
		zap.Strings("methods", p.registry.Methods()),
		zap.Int("max_clients", p.cfg.MaxClients),
	)
	return nil
}

// Read implements plugin.Reader. Counters are published first, then the
// snapshot pool is refreshed and its occupancy published. A source failure
// leaves the current snapshot in place and is retried on the next tick.
func (p *Plugin) Read(ctx context.Context) error {
	p.exporter.PublishCounters()

	if err := p.pool.Refresh(time.Now()); err != nil {
		p.log.Warn("snapshot refresh failed", zap.Error(err))
	}
	p.exporter.PublishCache()
	return nil
}

// Shutdown implements plugin.Shutdowner. In-flight requests get the context's
// remaining time to drain.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.srv == nil {
		return nil
	}
	if err := p.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("jsonrpc: stopping http server: %w", err)
	}
	p.log.Info("stopped")
	return nil
}

// DataSets implements plugin.DataSetProvider.
func (p *Plugin) DataSets() []plugin.DataSet {
	counter := func(name string) plugin.DataSet {
		return plugin.DataSet{Type: name, Sources: []plugin.DataSource{{Name: "value", Min: 0, Max: math.NaN()}}}
	}
	return []plugin.DataSet{
		counter("current_connections"),
		counter("total_requests"),
		counter("http_requests"),
		counter("cache_size"),
		counter("cache_entries"),
		counter("nb_values"),
	}
}

// Addr returns the bound listen address, valid after Init.
func (p *Plugin) Addr() net.Addr { return p.addr }
