// Package parser classifies raw syslog lines into one of four wire formats and
// turns them into events.
//
// Supported formats, in probe order:
//
//	rfc5424  <PRI>1 TIMESTAMP HOST APP PROCID MSGID [SD...] MSG
//	rfc3164  <PRI>Mmm dd hh:mm:ss HOST [PROC[PID]:] MSG
//	cisco    <PRI>...%FACILITY-SEVERITY-MNEMONIC: MSG
//	rsyslog  <PRI>YYYY-MM-DDThh:mm:ss... HOST [PROC[PID]:] MSG
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/snoozeweb/snooze-syslog/internal/event"
)

var (
	// ErrFormatMismatch is returned by a format parser when the line does not have its shape.
	ErrFormatMismatch = errors.New("message does not match format")
	// ErrUnrecognizedFormat is returned by the dispatcher when no probe matches a line.
	ErrUnrecognizedFormat = errors.New("unrecognized syslog format")
)

// isoLayout renders offset-aware ISO 8601 timestamps, with microseconds when non-zero.
const isoLayout = "2006-01-02T15:04:05.999999-07:00"

// ParseFunc parses a single line. now supplies the reference year and location
// for formats that carry neither.
type ParseFunc func(line string, now time.Time) (*event.Event, error)

func mismatch(format Format, line string) error {
	return fmt.Errorf("%w %s: %q", ErrFormatMismatch, format, line)
}

// groups maps the named submatches of re against line. ok is false when re does not match.
func groups(re *regexp.Regexp, line string) (map[string]string, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	out := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" {
			out[name] = m[i]
		}
	}
	return out, true
}

// procFields fills the optional process and pid captures shared by rfc3164 and rsyslog.
func procFields(ev *event.Event, g map[string]string) error {
	ev.Process = g["process"]
	if s := g["pid"]; s != "" {
		pid, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid pid %q: %w", s, err)
		}
		ev.PID = pid
	}
	return nil
}
