package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/perfwatch/plugins/cache"
	"github.com/perfwatch/plugins/logging"
	"github.com/perfwatch/plugins/plugin"
)

type recordingDispatcher struct {
	lists []plugin.ValueList
}

func (d *recordingDispatcher) Dispatch(vl plugin.ValueList) error {
	d.lists = append(d.lists, vl)
	return nil
}

type staticSource struct{}

func (staticSource) Names() ([]string, []time.Time, error) {
	return []string{"host1/cpu/user", "host1/cpu/system", "host2/load/load"},
		[]time.Time{time.Unix(100, 0), time.Unix(101, 0), time.Unix(102, 0)},
		nil
}

func (d *recordingDispatcher) series() map[string]plugin.Value {
	out := make(map[string]plugin.Value)
	for _, vl := range d.lists {
		out[vl.Type+"/"+vl.TypeInstance] = vl.Values[0]
	}
	return out
}

func TestExporter_PublishesAllSeries(t *testing.T) {
	pool := cache.New(staticSource{}, 6, time.Minute)
	require.NoError(t, pool.Refresh(time.Now()))

	counters := NewCounters()
	require.True(t, counters.TryAcquireClient(16))
	counters.IncNewConnection()
	counters.IncSucceeded()
	counters.IncFailed()

	dispatcher := &recordingDispatcher{}
	host := &plugin.HostContext{
		Logger:     logging.Nop(),
		Dispatcher: dispatcher,
		Hostname:   "agent01",
	}

	exp := NewExporter(host, "jsonrpc", counters, pool)
	exp.PublishCounters()
	exp.PublishCache()

	series := dispatcher.series()
	require.Equal(t, plugin.Gauge(1), series["current_connections/nb_clients"])
	require.Equal(t, plugin.Derive(1), series["total_requests/nb_request_failed"])
	require.Equal(t, plugin.Derive(1), series["total_requests/nb_request_succeeded"])
	require.Equal(t, plugin.Derive(1), series["http_requests/nb_connections"])
	require.Equal(t, plugin.Gauge(1), series["cache_size/nb_used_cached"])
	require.Equal(t, plugin.Gauge(3), series["nb_values/"])

	// one gauge per slot
	for i := 0; i < pool.Size(); i++ {
		_, ok := series["cache_entries/"+string(rune('0'+i))]
		require.True(t, ok, "missing per-slot gauge %d", i)
	}

	for _, vl := range dispatcher.lists {
		require.Equal(t, "agent01", vl.Host)
		require.Equal(t, "jsonrpc", vl.Plugin)
	}
}
