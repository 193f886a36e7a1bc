package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/snoozeweb/snooze-syslog/internal/event"
)

const nilValue = "-"

var rfc5424Re = regexp.MustCompile(`^<(?P<pri>\d+)>1 ` +
	`(?P<timestamp>\S+) ` +
	`(?P<host>\S+) ` +
	`(?P<process>\S+) ` +
	`(?P<pid>\S+) ` +
	`(?P<msgid>\S+) ` +
	`(?P<rest>.*)$`)

var errStructuredData = errors.New("malformed structured data")

// ParseRFC5424 parses the structured format. A timestamp with an offset is
// kept as sent; one without is read in now's location. An unparseable
// timestamp is left empty for the caller's receipt-time fallback.
func ParseRFC5424(line string, now time.Time) (*event.Event, error) {
	g, ok := groups(rfc5424Re, line)
	if !ok {
		return nil, mismatch(FormatRFC5424, line)
	}
	pri, err := strconv.Atoi(g["pri"])
	if err != nil {
		return nil, fmt.Errorf("invalid pri %q: %w", g["pri"], err)
	}
	ev := &event.Event{
		Type:    event.TypeRFC5424,
		Pri:     pri,
		Host:    g["host"],
		Process: g["process"],
		MsgID:   g["msgid"],
	}
	if ts := g["timestamp"]; ts != nilValue {
		if t, zoned, err := parseISO(ts, now.Location()); err == nil {
			if zoned {
				ev.Timestamp = ts
			} else {
				ev.Timestamp = t.Format(isoLayout)
			}
		}
	}
	if s := g["pid"]; s != nilValue {
		pid, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid pid %q: %w", s, err)
		}
		ev.PID = pid
	}

	rest := g["rest"]
	switch {
	case strings.HasPrefix(rest, nilValue+" "):
		rest = rest[len(nilValue)+1:]
	case strings.HasPrefix(rest, "["):
		sd, n, err := scanStructuredData(rest)
		if err == nil && n < len(rest) && rest[n] == ' ' {
			ev.Structured = sd
			rest = rest[n+1:]
		}
		// Otherwise the brackets belong to the message.
	}
	ev.Message = rest
	return ev, nil
}

// ParseStructuredData parses a sequence of SD elements such as
// `[exampleSDID@9999 a="1" b="2"][exampleSDID@8888 c="3"]` into a mapping of
// SD-ID to parameters.
func ParseStructuredData(s string) (map[string]map[string]string, error) {
	sd, n, err := scanStructuredData(s)
	if err != nil {
		return nil, err
	}
	if n != len(s) {
		return nil, fmt.Errorf("%w: trailing data at offset %d", errStructuredData, n)
	}
	return sd, nil
}

// scanStructuredData reads consecutive SD elements from the start of s and
// reports how many bytes were consumed. Values may escape '"', '\' and ']'.
func scanStructuredData(s string) (map[string]map[string]string, int, error) {
	out := make(map[string]map[string]string)
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
		start := i
		for i < len(s) && s[i] != ' ' && s[i] != ']' {
			i++
		}
		if i >= len(s) || i == start {
			return nil, 0, fmt.Errorf("%w: missing SD-ID at offset %d", errStructuredData, start)
		}
		id := s[start:i]
		params := make(map[string]string)
		for i < len(s) && s[i] == ' ' {
			i++
			start = i
			for i < len(s) && s[i] != '=' && s[i] != ' ' && s[i] != ']' {
				i++
			}
			if i+1 >= len(s) || s[i] != '=' || i == start || s[i+1] != '"' {
				return nil, 0, fmt.Errorf("%w: bad parameter in %q at offset %d", errStructuredData, id, start)
			}
			name := s[start:i]
			i += 2
			var b strings.Builder
			for i < len(s) && s[i] != '"' {
				if s[i] == '\\' && i+1 < len(s) && strings.IndexByte(`"\]`, s[i+1]) >= 0 {
					i++
				}
				b.WriteByte(s[i])
				i++
			}
			if i >= len(s) {
				return nil, 0, fmt.Errorf("%w: unterminated value for %s.%s", errStructuredData, id, name)
			}
			i++
			params[name] = b.String()
		}
		if i >= len(s) || s[i] != ']' {
			return nil, 0, fmt.Errorf("%w: unterminated element %q", errStructuredData, id)
		}
		i++
		out[id] = params
	}
	if i == 0 {
		return nil, 0, fmt.Errorf("%w: expected '['", errStructuredData)
	}
	return out, i, nil
}
