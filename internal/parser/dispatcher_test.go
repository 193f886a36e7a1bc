package parser

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/snoozeweb/snooze-syslog/internal/event"
	"github.com/snoozeweb/snooze-syslog/internal/priority"
)

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(
		WithClock(func() time.Time { return testNow }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func TestParseLine_Classification(t *testing.T) {
	d := newTestDispatcher()
	cases := []struct {
		line string
		want string
	}{
		{"<27>2021-07-01T22:30:00 myhost01 myapp[9999]: my message", event.TypeRsyslog},
		{"<34>Jul 6 22:30:00 myhost01 myapp[9999]: my message", event.TypeRFC3164},
		{"<165>1 2021-07-01T22:30:00.123Z myhost01 myapp 9999 ID47 my message", event.TypeRFC5424},
		{"<187>router: %FAC-3-MNEMONIC: link flap", event.TypeCisco},
	}
	for _, c := range cases {
		ev, err := d.ParseLine("192.168.0.1", c.line)
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", c.line, err)
		}
		if ev.Type != c.want {
			t.Errorf("ParseLine(%q).Type = %s, want %s", c.line, ev.Type, c.want)
		}
	}
}

func TestParseLine_Overlay(t *testing.T) {
	d := newTestDispatcher()
	line := "<187>router: %FAC-3-MNEMONIC: link flap"
	ev, err := d.ParseLine("10.0.0.7", line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Source != DefaultSource || ev.Raw != line || ev.SyslogIP != "10.0.0.7" {
		t.Errorf("overlay fields: source=%q raw=%q ip=%q", ev.Source, ev.Raw, ev.SyslogIP)
	}
	// The vendor format carries no timestamp: receipt time is used.
	if ev.Timestamp != "2026-10-17T12:00:00+02:00" {
		t.Errorf("timestamp = %s", ev.Timestamp)
	}
	fac, sev, _ := priority.Decode(187)
	if ev.Facility != fac || ev.Severity != sev {
		t.Errorf("facility/severity = %s/%s, want %s/%s", ev.Facility, ev.Severity, fac, sev)
	}
	if ev.ID == "" {
		t.Error("expected generated id")
	}
}

func TestParseLine_Errors(t *testing.T) {
	d := newTestDispatcher()
	if _, err := d.ParseLine("h", "not syslog"); !errors.Is(err, ErrUnrecognizedFormat) {
		t.Errorf("expected ErrUnrecognizedFormat, got %v", err)
	}
	if _, err := d.ParseLine("h", "<999>1 - host app - - - msg"); !errors.Is(err, priority.ErrPriorityRange) {
		t.Errorf("expected ErrPriorityRange, got %v", err)
	}
}

func TestParseLine_Idempotent(t *testing.T) {
	d := newTestDispatcher()
	line := "<165>1 2021-07-01T22:30:00.123Z myhost01 myapp 9999 ID47 [id@9999 a=\"1\"] my message"
	a, err := d.ParseLine("h", line)
	if err != nil {
		t.Fatal(err)
	}
	b, err := d.ParseLine("h", line)
	if err != nil {
		t.Fatal(err)
	}
	fa, fb := a.Fields(), b.Fields()
	delete(fa, "id")
	delete(fb, "id")
	for k, v := range fa {
		if k == "id@9999" {
			continue
		}
		if fb[k] != v {
			t.Errorf("field %s differs: %v vs %v", k, v, fb[k])
		}
	}
	if len(fa) != len(fb) {
		t.Errorf("field count differs: %d vs %d", len(fa), len(fb))
	}
}

func TestParseBatch_MultiLine(t *testing.T) {
	d := newTestDispatcher()
	payload := strings.Join([]string{
		"<34>Jul 6 22:30:00 myhost01 myapp[9999]: one",
		"<165>1 2021-07-01T22:30:00.123Z myhost01 myapp 9999 ID47 two",
		"<27>2021-07-01T22:30:00 myhost01 myapp[9999]: three",
	}, "\n") + "\n"
	res := d.ParseBatch(event.RawMessage{Addr: "192.168.0.1", Payload: []byte(payload)})
	if len(res.Events) != 3 || res.Failed != 0 || res.Skipped != 0 {
		t.Fatalf("got %d events, %d failed, %d skipped", len(res.Events), res.Failed, res.Skipped)
	}
	for _, ev := range res.Events {
		if ev.SyslogIP != "192.168.0.1" {
			t.Errorf("event %s has addr %q", ev.Message, ev.SyslogIP)
		}
	}
}

func TestParseBatch_GarbageAndSkips(t *testing.T) {
	d := newTestDispatcher()
	payload := strings.Join([]string{
		"<34>Jul 6 22:30:00 myhost01 myapp[9999]: one",
		"total garbage",
		"",
		"<34>Jul 6 22:30:01 myhost01 syslogd: last message repeated 3 times",
		"<34>Jul 6 22:30:02 myhost01 myapp[9999]: two\r",
	}, "\n")
	res := d.ParseBatch(event.RawMessage{Addr: "h", Payload: []byte(payload)})
	if len(res.Events) != 2 {
		t.Errorf("events = %d, want 2", len(res.Events))
	}
	if res.Failed != 1 {
		t.Errorf("failed = %d, want 1", res.Failed)
	}
	if res.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", res.Skipped)
	}
	if len(res.Events) == 2 && res.Events[1].Message != "two" {
		t.Errorf("carriage return not trimmed: %q", res.Events[1].Message)
	}
}

func TestParseLine_UnparseableTimestampFallsBack(t *testing.T) {
	d := newTestDispatcher()
	ev, err := d.ParseLine("1.2.3.4", "<165>1 notadate myhost01 myapp 9999 ID47 my message")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.Timestamp != "2026-10-17T12:00:00+02:00" {
		t.Errorf("timestamp = %s, want clock time", ev.Timestamp)
	}
	if _, err := time.Parse(time.RFC3339Nano, ev.Timestamp); err != nil {
		t.Errorf("timestamp not offset-aware: %v", err)
	}
}

func TestParseBatch_UsesReceiptTime(t *testing.T) {
	d := newTestDispatcher()
	received := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	res := d.ParseBatch(event.RawMessage{
		Addr:       "1.2.3.4",
		Payload:    []byte("<187>x %A-B-C: hi\n<165>1 notadate myhost01 myapp 1 ID47 late\n"),
		ReceivedAt: received,
	})
	if len(res.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(res.Events))
	}
	for _, ev := range res.Events {
		if ev.Timestamp != "2020-01-01T02:00:00+02:00" {
			t.Errorf("%q timestamp = %s, want receipt time", ev.Message, ev.Timestamp)
		}
	}
}

func TestParseBatch_PayloadTimestampWins(t *testing.T) {
	d := newTestDispatcher()
	res := d.ParseBatch(event.RawMessage{
		Addr:       "1.2.3.4",
		Payload:    []byte("<165>1 2021-07-01T22:30:00.123Z myhost01 myapp 1 ID47 msg"),
		ReceivedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if len(res.Events) != 1 || res.Events[0].Timestamp != "2021-07-01T22:30:00.123Z" {
		t.Fatalf("events = %+v", res.Events)
	}
}
