package perfwatch

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/perfwatch/plugins/json"
	"github.com/perfwatch/plugins/jsonrpc"
)

type dirListing struct {
	Values []string `json:"values"`
	Nb     int      `json:"nb"`
}

// validComponent rejects caller-supplied path components that could escape
// the data root.
func validComponent(s string) bool {
	if strings.ContainsRune(s, os.PathSeparator) || strings.ContainsRune(s, '/') {
		return false
	}
	return s != "." && s != ".."
}

func (a *API) listDir(path string) (any, *jsonrpc.Error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		a.log.Debug("could not read directory", zap.String("path", path), zap.Error(err))
		return nil, jsonrpc.ErrInternal()
	}
	values := make([]string, 0, len(entries))
	for _, e := range entries {
		values = append(values, e.Name())
	}
	return dirListing{Values: values, Nb: len(values)}, nil
}

// getDirHosts lists the data root, one entry per host directory.
func (a *API) getDirHosts(params json.RawMessage) (any, *jsonrpc.Error) {
	return a.listDir(a.dataRoot())
}

type dirPluginsParams struct {
	Hostname *string `json:"hostname"`
}

// getDirPlugins lists the plugin directories under one host.
func (a *API) getDirPlugins(params json.RawMessage) (any, *jsonrpc.Error) {
	if !startsWith(params, '{') {
		return nil, jsonrpc.ErrInvalidParams()
	}
	var p dirPluginsParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, jsonrpc.ErrInvalidParams()
	}
	if p.Hostname == nil || !validComponent(*p.Hostname) {
		return nil, jsonrpc.ErrInvalidParams()
	}
	return a.listDir(filepath.Join(a.dataRoot(), *p.Hostname))
}

type dirTypesParams struct {
	Hostname *string `json:"hostname"`
	Plugin   *string `json:"plugin"`
}

// getDirTypes lists the type files under one host's plugin directory.
func (a *API) getDirTypes(params json.RawMessage) (any, *jsonrpc.Error) {
	if !startsWith(params, '{') {
		return nil, jsonrpc.ErrInvalidParams()
	}
	var p dirTypesParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, jsonrpc.ErrInvalidParams()
	}
	if p.Hostname == nil || !validComponent(*p.Hostname) {
		return nil, jsonrpc.ErrInvalidParams()
	}
	if p.Plugin == nil || !validComponent(*p.Plugin) {
		return nil, jsonrpc.ErrInvalidParams()
	}
	return a.listDir(filepath.Join(a.dataRoot(), *p.Hostname, *p.Plugin))
}
