package metrics

import (
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/perfwatch/plugins/cache"
	"github.com/perfwatch/plugins/logging"
	"github.com/perfwatch/plugins/plugin"
)

// Exporter publishes the pipeline counters and cache occupancy through the
// host dispatcher on every collection tick.
type Exporter struct {
	dispatcher plugin.Dispatcher
	hostname   string
	pluginName string
	counters   *Counters
	pool       *cache.Pool
	log        logging.Logger
}

// NewExporter wires an exporter to the given counter set and snapshot pool.
func NewExporter(host *plugin.HostContext, pluginName string, counters *Counters, pool *cache.Pool) *Exporter {
	return &Exporter{
		dispatcher: host.Dispatcher,
		hostname:   host.Hostname,
		pluginName: pluginName,
		counters:   counters,
		pool:       pool,
		log:        host.Logger.Named("exporter"),
	}
}

func (e *Exporter) submit(value plugin.Value, typ, typeInstance string) {
	vl := plugin.ValueList{
		Host:         e.hostname,
		Plugin:       e.pluginName,
		Type:         typ,
		TypeInstance: typeInstance,
		Time:         time.Now(),
		Values:       []plugin.Value{value},
	}
	if err := e.dispatcher.Dispatch(vl); err != nil {
		e.log.Warn("dispatch failed",
			zap.String("type", typ),
			zap.String("type_instance", typeInstance),
			zap.Error(err))
	}
}

// PublishCounters emits the pipeline counter series.
func (e *Exporter) PublishCounters() {
	e.submit(plugin.Gauge(e.counters.ActiveClients()), "current_connections", "nb_clients")
	e.submit(plugin.Derive(e.counters.Failed()), "total_requests", "nb_request_failed")
	e.submit(plugin.Derive(e.counters.Succeeded()), "total_requests", "nb_request_succeeded")
	e.submit(plugin.Derive(e.counters.NewConnections()), "http_requests", "nb_connections")
}

// PublishCache emits pool occupancy, one reference gauge per slot, and the
// size of the newest snapshot.
func (e *Exporter) PublishCache() {
	st := e.pool.Stats()
	e.submit(plugin.Gauge(st.Ready), "cache_size", "nb_used_cached")
	for i, refs := range st.Refs {
		e.submit(plugin.Gauge(refs), "cache_entries", strconv.Itoa(i))
	}
	e.submit(plugin.Gauge(st.LatestLen), "nb_values", "")
}
