// Package daemon supervises the syslog pipeline: it opens the sink, starts
// the worker pools and listeners, and shuts everything down in order.
package daemon

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/snoozeweb/snooze-syslog/internal/api"
	"github.com/snoozeweb/snooze-syslog/internal/config"
	"github.com/snoozeweb/snooze-syslog/internal/engine"
	"github.com/snoozeweb/snooze-syslog/internal/event"
	"github.com/snoozeweb/snooze-syslog/internal/filter"
	"github.com/snoozeweb/snooze-syslog/internal/listener"
	"github.com/snoozeweb/snooze-syslog/internal/parser"
	"github.com/snoozeweb/snooze-syslog/internal/queue"
	"github.com/snoozeweb/snooze-syslog/internal/sink"
)

// Option customises a Daemon.
type Option func(*Daemon)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Daemon) { d.log = l }
}

// WithRegistry sets the registry used to open snooze_server.
func WithRegistry(r *sink.Registry) Option {
	return func(d *Daemon) { d.registry = r }
}

// WithSink uses s instead of opening snooze_server.
func WithSink(s sink.Sink) Option {
	return func(d *Daemon) { d.sink = s }
}

// WithLevel lets Apply toggle debug logging.
func WithLevel(lv *slog.LevelVar) Option {
	return func(d *Daemon) { d.level = lv }
}

// WithReloader exposes POST /v1/reload on the ops server.
func WithReloader(r api.Reloader) Option {
	return func(d *Daemon) { d.reloader = r }
}

// Daemon owns the pipeline: listeners -> raw queue -> parse pool -> event
// queue -> delivery pool -> sink.
type Daemon struct {
	cfg      *config.Config
	log      *slog.Logger
	level    *slog.LevelVar
	registry *sink.Registry
	reloader api.Reloader

	sink   sink.Sink
	raw    *queue.Queue[event.RawMessage]
	events *queue.Queue[*event.Event]
	engine *engine.Engine
	tcp    *listener.TCP
	udp    *listener.UDP
	ops    *http.Server
	opsLn  net.Listener

	ready    atomic.Bool
	stopOnce sync.Once
	stopErr  error
}

// New creates a Daemon for cfg. cfg is expected to have been validated.
func New(cfg *config.Config, opts ...Option) *Daemon {
	d := &Daemon{cfg: cfg}
	for _, o := range opts {
		o(d)
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	if d.registry == nil {
		d.registry = sink.DefaultRegistry()
	}
	return d
}

// Start opens the sink, starts the pools, binds both listeners and, when
// configured, the ops HTTP server. Failing to open the sink or to set up a
// listener (bind, or load its TLS key pair) is fatal and returned; everything
// started so far is torn down. Invalid drop rules are logged and skipped.
func (d *Daemon) Start(ctx context.Context) error {
	cfg := d.cfg
	if d.sink == nil {
		s, err := d.registry.Open(cfg.SnoozeServer)
		if err != nil {
			return fmt.Errorf("open sink: %w", err)
		}
		d.sink = s
	}

	rules, err := filter.NewSet(cfg.Drop)
	if err != nil {
		d.log.Warn("skipping invalid drop rules", "err", err)
	}

	// Without its key pair the TLS endpoint cannot be served; it is not
	// downgraded to plaintext.
	var tlsConf *tls.Config
	if cfg.SSL {
		c, err := listener.LoadTLSConfig(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			d.closeSink()
			return fmt.Errorf("tcp listener: %w", err)
		}
		tlsConf = c
	}

	d.raw = queue.New[event.RawMessage](cfg.QueueSize)
	d.events = queue.New[*event.Event](cfg.QueueSize)
	dispatcher := parser.NewDispatcher(parser.WithSource(cfg.Source), parser.WithLogger(d.log))
	d.engine = engine.New(engine.Config{
		ParseWorkers: cfg.ParseWorkers,
		SendWorkers:  cfg.SendWorkers,
	}, d.raw, d.events, dispatcher, d.sink, d.log)
	d.engine.SetFilters(rules)
	d.engine.Start(context.WithoutCancel(ctx))

	d.tcp = listener.NewTCP(listener.TCPConfig{
		Addr:        cfg.ListenAddr(),
		TLS:         tlsConf,
		Compression: cfg.TCPCompression,
		IdleTimeout: cfg.IdleTimeout(),
		MaxLineSize: cfg.MaxLineSize,
	}, d.raw, d.log)
	if err := d.tcp.Start(); err != nil {
		d.abort()
		return err
	}
	d.udp = listener.NewUDP(cfg.ListenAddr(), cfg.MaxLineSize, d.raw, d.log)
	if err := d.udp.Start(); err != nil {
		d.tcp.Stop()
		d.abort()
		return err
	}

	if cfg.MetricsAddress != "" {
		d.startOps(cfg.MetricsAddress)
	}

	d.ready.Store(true)
	d.log.Info("snooze-syslog started",
		"tcp", d.tcp.Addr().String(),
		"udp", d.udp.Addr().String(),
		"sink", d.sink.Name(),
		"parse_workers", cfg.ParseWorkers,
		"send_workers", cfg.SendWorkers,
		"drop_rules", rules.Len(),
	)
	return nil
}

// abort unwinds a partial Start.
func (d *Daemon) abort() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = d.engine.Stop(ctx)
	d.closeSink()
}

// closeSink releases a sink opened by a Start that did not complete.
func (d *Daemon) closeSink() {
	_ = d.sink.Close()
	d.sink = nil
}

// startOps serves the ops API. A bind failure is logged, not fatal.
func (d *Daemon) startOps(addr string) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		d.log.Warn("ops server disabled", "addr", addr, "err", err)
		return
	}
	d.opsLn = ln
	d.ops = &http.Server{
		Handler:      api.New(d, d.reloader, d.log),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		d.log.Info("ops server starting", "addr", ln.Addr().String())
		if err := d.ops.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Error("ops server error", "err", err)
		}
	}()
}

// Stop shuts down in pipeline order: listeners first, then the parse pool
// drains the raw queue, then the delivery pool drains the event queue, then
// the sink is closed. ctx bounds the drain; on expiry the pools are cancelled.
func (d *Daemon) Stop(ctx context.Context) error {
	d.stopOnce.Do(func() {
		d.ready.Store(false)
		d.log.Info("shutting down")
		if d.tcp != nil {
			d.tcp.Stop()
		}
		if d.udp != nil {
			d.udp.Stop()
		}
		var errs []error
		if d.engine != nil {
			errs = append(errs, d.engine.Stop(ctx))
		}
		if d.sink != nil {
			if err := d.sink.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close sink: %w", err))
			}
		}
		if d.ops != nil {
			errs = append(errs, d.ops.Shutdown(ctx))
		}
		d.stopErr = errors.Join(errs...)
		d.log.Info("goodbye")
	})
	return d.stopErr
}

// Apply takes the hot-reloadable part of cfg: the debug level and the drop
// rules. Listener and pool settings need a restart.
func (d *Daemon) Apply(cfg *config.Config) {
	if d.level != nil {
		if cfg.Debug {
			d.level.Set(slog.LevelDebug)
		} else {
			d.level.Set(slog.LevelInfo)
		}
	}
	if d.engine == nil {
		return
	}
	rules, err := filter.NewSet(cfg.Drop)
	if err != nil {
		d.log.Warn("skipping invalid drop rules", "err", err)
	}
	d.engine.SetFilters(rules)
	d.log.Info("config reloaded", "debug", cfg.Debug, "drop_rules", rules.Len())
}

// Addrs returns the bound TCP and UDP addresses.
func (d *Daemon) Addrs() (tcp, udp net.Addr) {
	if d.tcp != nil {
		tcp = d.tcp.Addr()
	}
	if d.udp != nil {
		udp = d.udp.Addr()
	}
	return tcp, udp
}

// OpsAddr returns the ops server address, or nil when it is not running.
func (d *Daemon) OpsAddr() net.Addr {
	if d.opsLn == nil {
		return nil
	}
	return d.opsLn.Addr()
}

// Ready reports whether both listeners are bound and shutdown has not begun.
func (d *Daemon) Ready() bool {
	return d.ready.Load()
}

// RawUtilization returns the raw queue fill ratio.
func (d *Daemon) RawUtilization() float64 {
	if d.raw == nil {
		return 0
	}
	return d.raw.Utilization()
}

// States reports every parse and delivery worker's state.
func (d *Daemon) States() (parse, delivery []engine.State) {
	if d.engine == nil {
		return nil, nil
	}
	return d.engine.ParseStates(), d.engine.DeliveryStates()
}
