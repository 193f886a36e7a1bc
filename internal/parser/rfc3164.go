package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/snoozeweb/snooze-syslog/internal/event"
)

var rfc3164Re = regexp.MustCompile(`^<(?P<pri>\d{1,3})>` +
	`(?P<date>\S{3}\s{1,2}\d?\d \d{2}:\d{2}:\d{2}) ` +
	`(?P<host>\S+)` +
	`(?: (?P<process>\S+?)(?:\[(?P<pid>\d+)\])?:)? ` +
	`(?P<message>.*)$`)

// ParseRFC3164 parses the legacy BSD format. The header carries no year, so the
// year of now is used and the time is interpreted in now's location. A record
// from Dec 31 parsed just after midnight is therefore dated one year ahead.
func ParseRFC3164(line string, now time.Time) (*event.Event, error) {
	g, ok := groups(rfc3164Re, line)
	if !ok {
		return nil, mismatch(FormatRFC3164, line)
	}
	pri, err := strconv.Atoi(g["pri"])
	if err != nil {
		return nil, fmt.Errorf("invalid pri %q: %w", g["pri"], err)
	}
	ts, err := legacyTimestamp(g["date"], now)
	if err != nil {
		return nil, err
	}
	ev := &event.Event{
		Type:      event.TypeRFC3164,
		Pri:       pri,
		Host:      g["host"],
		Message:   g["message"],
		Timestamp: ts.Format(isoLayout),
	}
	if err := procFields(ev, g); err != nil {
		return nil, err
	}
	return ev, nil
}

func legacyTimestamp(date string, now time.Time) (time.Time, error) {
	t, err := time.Parse("Jan 2 15:04:05", strings.Join(strings.Fields(date), " "))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid rfc3164 date %q: %w", date, err)
	}
	year := now.Year()
	out := time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, now.Location())
	if out.Day() != t.Day() {
		// Feb 29 outside a leap year.
		return time.Time{}, fmt.Errorf("invalid rfc3164 date %q for year %d", date, year)
	}
	return out, nil
}
