package proxy

import (
	"time"

	"github.com/richshaffer/replay"
	"github.com/richshaffer/replay/logger"
)

// Config holds the proxy configuration.
type Config struct {
	Addr            string        `yaml:"addr" env:"PROXY_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"PROXY_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"PROXY_WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"PROXY_IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"PROXY_SHUTDOWN_TIMEOUT"`
	// LiveTimeout bounds how long a fallback request waits for response
	// headers.
	LiveTimeout time.Duration `yaml:"live_timeout" env:"PROXY_LIVE_TIMEOUT"`

	Replay  replay.Options `yaml:"replay"`
	Logging logger.Config  `yaml:"logging"`
}

// Default configuration values.
const (
	defaultAddr            = ":8055"
	defaultReadTimeout     = 30 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLiveTimeout     = 30 * time.Second
	defaultRecordDir       = "fixtures"
)

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = defaultAddr
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.LiveTimeout <= 0 {
		c.LiveTimeout = defaultLiveTimeout
	}
	if c.Replay.LoadDir == "" && c.Replay.RecordDir == "" {
		c.Replay.RecordDir = defaultRecordDir
	}
	c.Logging.SetDefaults()
}
