package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DefaultConfigOptions reads from $CONFIG_PATH (or ./config) and expects a
// config.yaml file.
func DefaultConfigOptions() ConfigOptions {
	basePath := os.Getenv("CONFIG_PATH")
	if basePath == "" {
		basePath = "config"
	}

	return ConfigOptions{
		BasePath:  basePath,
		FileName:  "config",
		FileType:  "yaml",
		EnvPrefix: "",
		WatchAble: false,
		OnChange:  nil,
	}
}

// NewConfig loads the configuration file described by opts. Out of the box it
// reads $CONFIG_PATH/config.yaml and overlays environment variables.
func NewConfig(optsArr ...ConfigOptions) (*Config, error) {
	var opts ConfigOptions
	if len(optsArr) == 0 {
		opts = DefaultConfigOptions()
	} else {
		opts = optsArr[0]
	}

	instance, err := createViper(opts)
	if err != nil {
		return nil, err
	}

	return &Config{
		instance: instance,
		opts:     opts,
	}, nil
}

func createViper(opts ConfigOptions) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName(opts.FileName)
	v.SetConfigType(opts.FileType)
	v.AddConfigPath(opts.BasePath)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine: defaults plus env still apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading %s/%s.%s: %w",
				opts.BasePath, opts.FileName, opts.FileType, err)
		}
	}

	return v, nil
}

// Bind unmarshals the loaded configuration into instance. When the options
// enable watching, instance is re-unmarshaled on every file change.
func (c *Config) Bind(instance any) error {
	if c == nil || c.instance == nil {
		return fmt.Errorf("config: instance is nil")
	}
	if instance == nil {
		return fmt.Errorf("config: target instance is nil")
	}

	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	if err := c.instance.Unmarshal(instance); err != nil {
		return fmt.Errorf("config: unmarshal %s/%s.%s: %w",
			c.opts.BasePath, c.opts.FileName, c.opts.FileType, err)
	}

	if c.opts.WatchAble {
		c.watchOnce.Do(func() {
			c.instance.WatchConfig()
			c.instance.OnConfigChange(func(e fsnotify.Event) {
				c.watchMutex.Lock()
				defer c.watchMutex.Unlock()

				if err := c.instance.Unmarshal(instance); err != nil {
					return
				}
				if c.opts.OnChange != nil {
					c.opts.OnChange(e)
				}
			})
		})
	}

	return nil
}

// BindWithDefaults applies `default` struct tags before and after binding, so
// zero values in the file fall back to declared defaults.
func (c *Config) BindWithDefaults(instance any) error {
	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("config: set defaults: %w", err)
	}

	if err := c.Bind(instance); err != nil {
		return err
	}

	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("config: set defaults after unmarshal: %w", err)
	}

	if v, ok := instance.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config: validation failed: %w", err)
		}
	}

	return nil
}

// Get returns the raw value for a dotted key.
func (c *Config) Get(key string) any {
	c.watchMutex.RLock()
	defer c.watchMutex.RUnlock()
	return c.instance.Get(key)
}

// Set overrides a dotted key in memory.
func (c *Config) Set(key string, value any) {
	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()
	c.instance.Set(key, value)
}
