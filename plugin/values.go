package plugin

import "time"

// Value is a single measurement. Concrete types are Gauge and Derive.
type Value interface {
	isValue()
}

// Gauge is an absolute value sampled at dispatch time.
type Gauge float64

// Derive is a monotonically increasing counter; the host computes rates.
type Derive int64

func (Gauge) isValue()  {}
func (Derive) isValue() {}

// ValueList is one dispatched measurement, identified by the
// host/plugin/type/type-instance tuple.
type ValueList struct {
	Host           string
	Plugin         string
	PluginInstance string
	Type           string
	TypeInstance   string
	Time           time.Time
	Values         []Value
}

// Identifier renders the value list identity the way metric names appear in
// the host's name table: host/plugin[-instance]/type[-instance].
func (vl ValueList) Identifier() string {
	plugin := vl.Plugin
	if vl.PluginInstance != "" {
		plugin += "-" + vl.PluginInstance
	}
	typ := vl.Type
	if vl.TypeInstance != "" {
		typ += "-" + vl.TypeInstance
	}
	return vl.Host + "/" + plugin + "/" + typ
}

// DataSource describes one component of a data set with its valid range.
// Use math.NaN() for an unbounded side.
type DataSource struct {
	Name string
	Min  float64
	Max  float64
}

// DataSet declares a value type that plugins may dispatch.
type DataSet struct {
	Type    string
	Sources []DataSource
}

// Dispatcher accepts measurements from plugins. Implemented by the host.
type Dispatcher interface {
	Dispatch(vl ValueList) error
}

// NameSource exposes the host's live metric store as parallel name and
// last-update-time slices. Implemented by the host; consumed by the snapshot
// cache.
type NameSource interface {
	Names() (names []string, times []time.Time, err error)
}
