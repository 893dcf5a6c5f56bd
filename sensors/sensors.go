// Package sensors polls hardware sensor values, either from an mbmon-style
// TCP daemon speaking line-oriented text or from the local machine, and
// dispatches them as gauges.
package sensors

import (
	"context"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"go.uber.org/zap"

	"github.com/perfwatch/plugins/config"
	"github.com/perfwatch/plugins/logging"
	"github.com/perfwatch/plugins/plugin"
)

// PluginName is the plugin field of every value list this plugin dispatches.
const PluginName = "sensors"

// Config selects where sensor values come from.
type Config struct {
	Host   string `mapstructure:"host" default:"127.0.0.1"`
	Port   string `mapstructure:"port" default:"411"`
	Source string `mapstructure:"source" default:"daemon" validate:"oneof=daemon local"`
}

// reading is one parsed sensor value.
type reading struct {
	Type     string
	Instance string
	Value    float64
}

// source produces the current sensor readings.
type source interface {
	Readings(ctx context.Context) ([]reading, error)
}

// Plugin is the sensor poller. Construct with New.
type Plugin struct {
	cfg Config
	log logging.Logger
	src source

	dispatcher plugin.Dispatcher
	hostname   string
}

// New creates the plugin with default configuration.
func New() *Plugin {
	p := &Plugin{log: logging.Nop()}
	if err := defaults.Set(&p.cfg); err != nil {
		panic(fmt.Sprintf("sensors: applying config defaults: %v", err))
	}
	return p
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return PluginName }

// SetOption implements plugin.Configurable.
func (p *Plugin) SetOption(key, value string) error {
	switch strings.ToLower(key) {
	case "host":
		p.cfg.Host = value
	case "port":
		p.cfg.Port = value
	case "source":
		p.cfg.Source = strings.ToLower(value)
	default:
		return fmt.Errorf("sensors: unknown option %q", key)
	}
	return nil
}

// Init implements plugin.Initializer.
func (p *Plugin) Init(ctx context.Context, host *plugin.HostContext) error {
	p.log = host.Logger.Named(PluginName)

	if err := config.Validate(&p.cfg); err != nil {
		return fmt.Errorf("sensors: invalid configuration: %w", err)
	}

	p.dispatcher = host.Dispatcher
	p.hostname = host.Hostname

	switch p.cfg.Source {
	case "local":
		p.src = &localSource{}
		p.log.Info("reading local sensors")
	default:
		addr := net.JoinHostPort(p.cfg.Host, p.cfg.Port)
		p.src = &daemonSource{addr: addr, log: p.log}
		p.log.Info("polling sensor daemon", zap.String("addr", addr))
	}
	return nil
}

// Read implements plugin.Reader. One gauge is dispatched per parsed sensor.
func (p *Plugin) Read(ctx context.Context) error {
	readings, err := p.src.Readings(ctx)
	if err != nil {
		return fmt.Errorf("sensors: %w", err)
	}

	now := time.Now()
	for _, r := range readings {
		vl := plugin.ValueList{
			Host:         p.hostname,
			Plugin:       PluginName,
			Type:         r.Type,
			TypeInstance: r.Instance,
			Time:         now,
			Values:       []plugin.Value{plugin.Gauge(r.Value)},
		}
		if err := p.dispatcher.Dispatch(vl); err != nil {
			p.log.Error("dispatch failed", zap.String("identifier", vl.Identifier()), zap.Error(err))
		}
	}
	return nil
}

// DataSets implements plugin.DataSetProvider.
func (p *Plugin) DataSets() []plugin.DataSet {
	return []plugin.DataSet{
		{Type: "temperature", Sources: []plugin.DataSource{{Name: "value", Min: -273.15, Max: math.NaN()}}},
		{Type: "fanspeed", Sources: []plugin.DataSource{{Name: "value", Min: 0, Max: math.NaN()}}},
		{Type: "voltage", Sources: []plugin.DataSource{{Name: "value", Min: math.NaN(), Max: math.NaN()}}},
	}
}
