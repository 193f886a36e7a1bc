package config

import (
	"net"
	"strconv"
	"time"

	"github.com/snoozeweb/snooze-syslog/internal/listener"
)

// Config is the daemon's YAML configuration.
type Config struct {
	ListeningAddress string `yaml:"listening_address"`
	ListeningPort    int    `yaml:"listening_port"`

	ParseWorkers int `yaml:"parse_workers"`
	SendWorkers  int `yaml:"send_workers"`
	// Workers is the legacy single worker count, used for either pool
	// when its specific key is absent.
	Workers int `yaml:"workers"`

	SSL      bool   `yaml:"ssl"`
	CertFile string `yaml:"certfile"`
	KeyFile  string `yaml:"keyfile"`

	SnoozeServer string `yaml:"snooze_server"`
	Debug        bool   `yaml:"debug"`

	QueueSize       int      `yaml:"queue_size"`
	TCPCompression  string   `yaml:"tcp_compression"` // listener.Compression*
	TCPIdleTimeout  int      `yaml:"tcp_idle_timeout"` // seconds, 0 = none
	MaxLineSize     int      `yaml:"max_line_size"`
	MetricsAddress  string   `yaml:"metrics_address"`
	ShutdownTimeout int      `yaml:"shutdown_timeout"` // seconds
	Source          string   `yaml:"source"`
	Drop            []string `yaml:"drop"`
}

// Defaults.
const (
	DefaultListeningAddress = "0.0.0.0"
	DefaultListeningPort    = 1514
	DefaultWorkers          = 4
	DefaultSnoozeServer     = "http://localhost:5200"
	DefaultQueueSize        = 10000
	DefaultMaxLineSize      = 64 * 1024
	DefaultShutdownTimeout  = 15
	DefaultSource           = "syslog"
)

// Default returns a configuration with every value at its default.
func Default() *Config {
	return &Config{
		ListeningAddress: DefaultListeningAddress,
		ListeningPort:    DefaultListeningPort,
		ParseWorkers:     DefaultWorkers,
		SendWorkers:      DefaultWorkers,
		SnoozeServer:     DefaultSnoozeServer,
		QueueSize:        DefaultQueueSize,
		TCPCompression:   listener.CompressionNone,
		MaxLineSize:      DefaultMaxLineSize,
		ShutdownTimeout:  DefaultShutdownTimeout,
		Source:           DefaultSource,
	}
}

// ListenAddr is the host:port shared by the TCP and UDP listeners.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.ListeningAddress, strconv.Itoa(c.ListeningPort))
}

// IdleTimeout returns tcp_idle_timeout as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.TCPIdleTimeout) * time.Second
}

// ShutdownGrace returns shutdown_timeout as a duration.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}
