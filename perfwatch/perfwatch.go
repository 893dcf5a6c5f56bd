// Package perfwatch provides the pw_* JSON-RPC methods: server liveness
// classification and metric discovery over the snapshot cache, plus sandboxed
// listings of the on-disk data directory.
package perfwatch

import (
	"bytes"

	"github.com/perfwatch/plugins/cache"
	"github.com/perfwatch/plugins/json"
	"github.com/perfwatch/plugins/jsonrpc"
	"github.com/perfwatch/plugins/logging"
)

// API bundles the method handlers over a snapshot pool and a data directory.
type API struct {
	pool    *cache.Pool
	dataDir string
	log     logging.Logger
}

// New creates the handler set. dataDir may be empty; listings then use the
// current directory.
func New(pool *cache.Pool, dataDir string, log logging.Logger) *API {
	if log == nil {
		log = logging.Nop()
	}
	return &API{pool: pool, dataDir: dataDir, log: log}
}

// Register binds every pw_* method on reg.
func (a *API) Register(reg *jsonrpc.Registry) error {
	methods := []struct {
		name string
		h    jsonrpc.HandlerFunc
	}{
		{"pw_get_status", a.getStatus},
		{"pw_get_metric", a.getMetric},
		{"pw_get_dir_hosts", a.getDirHosts},
		{"pw_get_dir_plugins", a.getDirPlugins},
		{"pw_get_dir_types", a.getDirTypes},
	}
	for _, m := range methods {
		if err := reg.Register(m.name, m.h); err != nil {
			return err
		}
	}
	return nil
}

// Handlers returns a registration hook for the jsonrpc plugin.
func Handlers(dataDir string, log logging.Logger) jsonrpc.RegisterFunc {
	return func(reg *jsonrpc.Registry, pool *cache.Pool) error {
		return New(pool, dataDir, log).Register(reg)
	}
}

func (a *API) dataRoot() string {
	if a.dataDir == "" {
		return "."
	}
	return a.dataDir
}

// startsWith reports whether the first non-whitespace byte of raw is b. Used
// to enforce the JSON container type of params before unmarshaling.
func startsWith(raw json.RawMessage, b byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == b
}
