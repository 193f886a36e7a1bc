package config

import (
	"fmt"
	"net/url"

	"github.com/snoozeweb/snooze-syslog/internal/filter"
	"github.com/snoozeweb/snooze-syslog/internal/listener"
)

// Validate fills absent values with defaults and replaces invalid ones,
// returning one warning per replaced value. It never fails: a bad value
// costs a warning, not the daemon.
func Validate(cfg *Config) []string {
	var warns []string
	warn := func(format string, args ...interface{}) {
		warns = append(warns, fmt.Sprintf(format, args...))
	}

	if cfg.ListeningAddress == "" {
		cfg.ListeningAddress = DefaultListeningAddress
	}
	switch {
	case cfg.ListeningPort == 0:
		cfg.ListeningPort = DefaultListeningPort
	case cfg.ListeningPort < 0 || cfg.ListeningPort > 65535:
		warn("listening_port %d out of range, using %d", cfg.ListeningPort, DefaultListeningPort)
		cfg.ListeningPort = DefaultListeningPort
	}

	legacy := DefaultWorkers
	if cfg.Workers < 0 {
		warn("workers %d must be positive, ignoring", cfg.Workers)
	} else if cfg.Workers > 0 {
		legacy = cfg.Workers
	}
	cfg.ParseWorkers = positive("parse_workers", cfg.ParseWorkers, legacy, warn)
	cfg.SendWorkers = positive("send_workers", cfg.SendWorkers, legacy, warn)

	if cfg.SSL {
		switch {
		case cfg.CertFile == "":
			warn("ssl enabled without certfile, disabling ssl")
			cfg.SSL = false
		case cfg.KeyFile == "":
			// The key is read from a combined certificate and key PEM.
			cfg.KeyFile = cfg.CertFile
		}
	}

	if cfg.SnoozeServer == "" {
		cfg.SnoozeServer = DefaultSnoozeServer
	} else if u, err := url.Parse(cfg.SnoozeServer); err != nil || u.Scheme == "" {
		warn("snooze_server %q is not a URI, using %s", cfg.SnoozeServer, DefaultSnoozeServer)
		cfg.SnoozeServer = DefaultSnoozeServer
	}

	cfg.QueueSize = positive("queue_size", cfg.QueueSize, DefaultQueueSize, warn)
	cfg.MaxLineSize = positive("max_line_size", cfg.MaxLineSize, DefaultMaxLineSize, warn)
	cfg.ShutdownTimeout = positive("shutdown_timeout", cfg.ShutdownTimeout, DefaultShutdownTimeout, warn)

	switch cfg.TCPCompression {
	case "":
		cfg.TCPCompression = listener.CompressionNone
	case listener.CompressionNone, listener.CompressionGzip, listener.CompressionDeflate:
	default:
		warn("unknown tcp_compression %q, using %s", cfg.TCPCompression, listener.CompressionNone)
		cfg.TCPCompression = listener.CompressionNone
	}
	if cfg.TCPIdleTimeout < 0 {
		warn("tcp_idle_timeout %d must not be negative, disabling", cfg.TCPIdleTimeout)
		cfg.TCPIdleTimeout = 0
	}
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}

	valid := cfg.Drop[:0]
	for _, expr := range cfg.Drop {
		if _, err := filter.Compile(expr); err != nil {
			warn("ignoring drop rule: %v", err)
			continue
		}
		valid = append(valid, expr)
	}
	cfg.Drop = valid

	return warns
}

// positive returns v, or def when v is absent or negative.
func positive(key string, v, def int, warn func(string, ...interface{})) int {
	if v < 0 {
		warn("%s %d must be positive, using %d", key, v, def)
		return def
	}
	if v == 0 {
		return def
	}
	return v
}
