package perfwatch

import (
	"strings"
	"time"

	"github.com/perfwatch/plugins/json"
	"github.com/perfwatch/plugins/jsonrpc"
)

type statusParams struct {
	Timeout *int64    `json:"timeout"`
	Server  *[]string `json:"server"`
}

// getStatus classifies each requested server as "up", "down" or "unknown".
// A server is up when the newest timestamp among its metric names is within
// timeout seconds of now, down when older, unknown when the snapshot holds
// no name with that server prefix.
func (a *API) getStatus(params json.RawMessage) (any, *jsonrpc.Error) {
	if !startsWith(params, '{') {
		return nil, jsonrpc.ErrInvalidParams()
	}
	var p statusParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, jsonrpc.ErrInvalidParams()
	}
	if p.Timeout == nil || p.Server == nil {
		return nil, jsonrpc.ErrInvalidParams()
	}

	// Duplicate servers collapse into one entry.
	latest := make(map[string]time.Time, len(*p.Server))
	for _, server := range *p.Server {
		latest[server] = time.Time{}
	}

	snap, h, ok := a.pool.Acquire()
	if !ok {
		a.log.Debug("no snapshot available")
		return nil, jsonrpc.ErrInternal()
	}
	for i, name := range snap.Names {
		server, _, _ := strings.Cut(name, "/")
		if seen, wanted := latest[server]; wanted && snap.Times[i].After(seen) {
			latest[server] = snap.Times[i]
		}
	}
	a.pool.Release(h)

	cutoff := time.Now().Add(-time.Duration(*p.Timeout) * time.Second)
	statuses := make(map[string]string, len(latest))
	for server, seen := range latest {
		switch {
		case seen.IsZero():
			statuses[server] = "unknown"
		case seen.After(cutoff):
			statuses[server] = "up"
		default:
			statuses[server] = "down"
		}
	}
	return statuses, nil
}
