package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type serverOptions struct {
	Port       int    `mapstructure:"port" default:"9103" validate:"min=1,max=65535"`
	MaxClients int    `mapstructure:"max-clients" default:"16" validate:"min=1,max=65535"`
	Name       string `mapstructure:"name" default:"agent"`
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return dir
}

func TestBindWithDefaults(t *testing.T) {
	dir := writeConfigFile(t, "port: 8080\n")

	cfg, err := NewConfig(ConfigOptions{
		BasePath: dir,
		FileName: "config",
		FileType: "yaml",
	})
	require.NoError(t, err)

	var opts serverOptions
	require.NoError(t, cfg.BindWithDefaults(&opts))

	require.Equal(t, 8080, opts.Port)
	require.Equal(t, 16, opts.MaxClients, "unset field should use default tag")
	require.Equal(t, "agent", opts.Name)
}

func TestNewConfigMissingFile(t *testing.T) {
	cfg, err := NewConfig(ConfigOptions{
		BasePath: t.TempDir(),
		FileName: "config",
		FileType: "yaml",
	})
	require.NoError(t, err, "missing config file should not be an error")

	var opts serverOptions
	require.NoError(t, cfg.BindWithDefaults(&opts))
	require.Equal(t, 9103, opts.Port)
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name    string
		opts    serverOptions
		wantErr bool
	}{
		{"valid", serverOptions{Port: 9103, MaxClients: 16}, false},
		{"port too small", serverOptions{Port: 0, MaxClients: 16}, true},
		{"port too large", serverOptions{Port: 70000, MaxClients: 16}, true},
		{"max clients too large", serverOptions{Port: 9103, MaxClients: 100000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.opts)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGetSet(t *testing.T) {
	dir := writeConfigFile(t, "port: 1234\n")
	cfg, err := NewConfig(ConfigOptions{BasePath: dir, FileName: "config", FileType: "yaml"})
	require.NoError(t, err)

	require.Equal(t, 1234, cfg.Get("port"))
	cfg.Set("port", 4321)
	require.Equal(t, 4321, cfg.Get("port"))
}
