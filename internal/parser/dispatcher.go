package parser

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snoozeweb/snooze-syslog/internal/event"
	"github.com/snoozeweb/snooze-syslog/internal/priority"
)

// DefaultSource tags events ingested by this daemon.
const DefaultSource = "syslog"

const repeatedMarker = "last message repeated"

// Dispatcher classifies lines and runs the matching format parser.
// It is safe for concurrent use.
type Dispatcher struct {
	source string
	now    func() time.Time
	newID  func() string
	log    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSource overrides the source tag stamped on every event.
func WithSource(source string) Option {
	return func(d *Dispatcher) { d.source = source }
}

// WithClock overrides the wall clock used for year inference and for default
// timestamps of records with no receipt time.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithLogger sets the logger used for dropped lines.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		source: DefaultSource,
		now:    time.Now,
		newID:  uuid.NewString,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ParseLine parses a single syslog record received from addr. Records
// without a usable timestamp are stamped with the current time.
func (d *Dispatcher) ParseLine(addr, line string) (*event.Event, error) {
	return d.parseLine(addr, line, time.Time{})
}

// parseLine is ParseLine with the time the record reached a listener, used
// as the default timestamp when set.
func (d *Dispatcher) parseLine(addr, line string, received time.Time) (*event.Event, error) {
	format := Classify(line)
	parse, ok := parsers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedFormat, line)
	}
	now := d.now()
	ev, err := parse(line, now)
	if err != nil {
		return nil, err
	}
	fac, sev, err := priority.Decode(ev.Pri)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", format, err)
	}
	ev.Facility, ev.Severity = fac, sev
	ev.ID = d.newID()
	ev.SyslogIP = addr
	ev.Source = d.source
	ev.Raw = line
	if ev.Timestamp == "" {
		if received.IsZero() {
			received = now
		}
		ev.Timestamp = received.In(now.Location()).Format(isoLayout)
	}
	return ev, nil
}

// BatchResult is the outcome of parsing one transport delivery.
type BatchResult struct {
	Events  []*event.Event
	Skipped int // empty lines and "last message repeated" notices
	Failed  int
}

// ParseBatch splits msg into newline-separated records and parses each one.
// Failed lines are logged and counted; they never abort the batch.
func (d *Dispatcher) ParseBatch(msg event.RawMessage) BatchResult {
	var res BatchResult
	data := strings.TrimSpace(string(msg.Payload))
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.Contains(line, repeatedMarker) {
			d.log.Debug("skipping message", "addr", msg.Addr, "line", line)
			res.Skipped++
			continue
		}
		ev, err := d.parseLine(msg.Addr, line, msg.ReceivedAt)
		if err != nil {
			d.log.Warn("could not parse message", "addr", msg.Addr, "line", line, "err", err)
			res.Failed++
			continue
		}
		res.Events = append(res.Events, ev)
	}
	return res
}
