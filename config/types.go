package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Validator is implemented by config structs that check themselves after
// binding.
type Validator interface {
	Validate() error
}

// Config wraps a viper instance bound to one configuration file.
type Config struct {
	instance   *viper.Viper
	opts       ConfigOptions
	watchOnce  sync.Once
	watchMutex sync.RWMutex
}

// ConfigOptions controls where the configuration is loaded from.
type ConfigOptions struct {
	BasePath  string
	FileName  string
	FileType  string
	EnvPrefix string
	WatchAble bool
	OnChange  func(e fsnotify.Event)
}
