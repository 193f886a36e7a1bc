// Package engine runs the two worker pools of the ingestion pipeline: parse
// workers turn raw deliveries into events, delivery workers hand events to
// the sink.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/snoozeweb/snooze-syslog/internal/event"
	"github.com/snoozeweb/snooze-syslog/internal/filter"
	"github.com/snoozeweb/snooze-syslog/internal/metrics"
	"github.com/snoozeweb/snooze-syslog/internal/parser"
	"github.com/snoozeweb/snooze-syslog/internal/queue"
	"github.com/snoozeweb/snooze-syslog/internal/sink"
)

// DefaultSendTimeout bounds a single sink call.
const DefaultSendTimeout = 10 * time.Second

// Config sizes the pools.
type Config struct {
	ParseWorkers int
	SendWorkers  int
	SendTimeout  time.Duration
}

// Engine wires the raw queue, parse pool, event queue, delivery pool and sink.
type Engine struct {
	raw     *queue.Queue[event.RawMessage]
	events  *queue.Queue[*event.Event]
	parser  *parser.Dispatcher
	sink    sink.Sink
	filters atomic.Pointer[filter.Set]
	timeout time.Duration
	log     *slog.Logger

	parsePool   *Pool[event.RawMessage]
	deliverPool *Pool[*event.Event]
}

// New creates an Engine. Workers start with Start.
func New(conf Config, raw *queue.Queue[event.RawMessage], events *queue.Queue[*event.Event],
	d *parser.Dispatcher, s sink.Sink, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if conf.SendTimeout <= 0 {
		conf.SendTimeout = DefaultSendTimeout
	}
	e := &Engine{
		raw:     raw,
		events:  events,
		parser:  d,
		sink:    s,
		timeout: conf.SendTimeout,
		log:     logger,
	}
	e.parsePool = NewPool("parse", conf.ParseWorkers, raw, e.parse, logger)
	e.deliverPool = NewPool("delivery", conf.SendWorkers, events, e.deliver, logger)
	return e
}

// SetFilters atomically replaces the drop rules (used on hot-reload).
func (e *Engine) SetFilters(s *filter.Set) {
	e.filters.Store(s)
}

// Start launches both pools, delivery first so parsed events always have a consumer.
func (e *Engine) Start(ctx context.Context) {
	e.deliverPool.Start(ctx)
	e.parsePool.Start(ctx)
	e.log.Info("worker pools started",
		"parse_workers", e.parsePool.Size(),
		"send_workers", e.deliverPool.Size(),
	)
}

// Stop drains the pipeline in order: the raw queue is closed and parsed,
// then the event queue is closed and delivered. Listeners must be stopped
// first. ctx bounds the whole drain.
func (e *Engine) Stop(ctx context.Context) error {
	perr := e.parsePool.Stop(ctx)
	derr := e.deliverPool.Stop(ctx)
	return errors.Join(perr, derr)
}

// ParseStates reports the parse workers' states.
func (e *Engine) ParseStates() []State { return e.parsePool.States() }

// DeliveryStates reports the delivery workers' states.
func (e *Engine) DeliveryStates() []State { return e.deliverPool.States() }

// RawUtilization returns how full the raw queue is (0-1).
func (e *Engine) RawUtilization() float64 { return e.raw.Utilization() }

func (e *Engine) parse(ctx context.Context, msg event.RawMessage) {
	e.log.Debug("Received from", "addr", msg.Addr, "bytes", len(msg.Payload))
	metrics.QueueDepth.WithLabelValues("raw").Set(float64(e.raw.Len()))

	res := e.parser.ParseBatch(msg)
	metrics.RecordsSkipped.Add(float64(res.Skipped))
	metrics.ParseFailures.Add(float64(res.Failed))

	rules := e.filters.Load()
	for _, ev := range res.Events {
		metrics.RecordsParsed.WithLabelValues(ev.Type).Inc()
		if r, ok := rules.Match(ev); ok {
			metrics.RecordsFiltered.Inc()
			e.log.Debug("record dropped by rule", "id", ev.ID, "rule", r.String())
			continue
		}
		if err := e.events.Push(ctx, ev); err != nil {
			metrics.MessagesDropped.WithLabelValues("shutdown").Inc()
			e.log.Warn("event not queued", "id", ev.ID, "addr", msg.Addr, "err", err)
			return
		}
	}
}

func (e *Engine) deliver(ctx context.Context, ev *event.Event) {
	metrics.QueueDepth.WithLabelValues("event").Set(float64(e.events.Len()))
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	e.log.Debug("Sending record", "id", ev.ID, "sink", e.sink.Name())
	start := time.Now()
	err := e.sink.Send(ctx, ev)
	metrics.DeliveryDuration.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.Deliveries.WithLabelValues("error").Inc()
		e.log.Error("delivery failed", "id", ev.ID, "sink", e.sink.Name(), "err", err)
		return
	}
	metrics.Deliveries.WithLabelValues("success").Inc()
}
