package perfwatch

import (
	"sort"
	"strings"

	"github.com/perfwatch/plugins/json"
	"github.com/perfwatch/plugins/jsonrpc"
)

// getMetric returns the deduplicated, sorted set of metric suffixes observed
// across the given servers. A name host1/cpu/user contributes the suffix
// cpu/user when host1 is requested.
func (a *API) getMetric(params json.RawMessage) (any, *jsonrpc.Error) {
	if !startsWith(params, '[') {
		return nil, jsonrpc.ErrInvalidParams()
	}
	var servers []string
	if err := json.Unmarshal(params, &servers); err != nil {
		return nil, jsonrpc.ErrInvalidParams()
	}

	wanted := make(map[string]struct{}, len(servers))
	for _, server := range servers {
		wanted[server] = struct{}{}
	}

	snap, h, ok := a.pool.Acquire()
	if !ok {
		a.log.Debug("no snapshot available")
		return nil, jsonrpc.ErrInternal()
	}
	seen := make(map[string]struct{})
	for _, name := range snap.Names {
		server, suffix, found := strings.Cut(name, "/")
		if !found {
			continue
		}
		if _, ok := wanted[server]; ok {
			seen[suffix] = struct{}{}
		}
	}
	a.pool.Release(h)

	metrics := make([]string, 0, len(seen))
	for suffix := range seen {
		metrics = append(metrics, suffix)
	}
	sort.Strings(metrics)
	return metrics, nil
}
