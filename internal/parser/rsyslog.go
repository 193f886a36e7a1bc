package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/snoozeweb/snooze-syslog/internal/event"
)

var rsyslogRe = regexp.MustCompile(`^<(?P<pri>\d+)>` +
	`(?P<timestamp>\d{4}-\d{2}-\d{2}T.*?) ` +
	`(?P<host>\S+)` +
	`(?: (?P<process>\S+?)(?:\[(?P<pid>\d+)\])?:)? ` +
	`(?P<message>.*)$`)

// Timestamps without an offset are read in the reference location.
// The first zonedLayouts entries carry an offset.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

const zonedLayouts = 2

// ParseRsyslog parses the high-precision format (rsyslog's RSYSLOG_ForwardFormat).
// The timestamp is converted to now's location.
func ParseRsyslog(line string, now time.Time) (*event.Event, error) {
	g, ok := groups(rsyslogRe, line)
	if !ok {
		return nil, mismatch(FormatRsyslog, line)
	}
	pri, err := strconv.Atoi(g["pri"])
	if err != nil {
		return nil, fmt.Errorf("invalid pri %q: %w", g["pri"], err)
	}
	ts, _, err := parseISO(g["timestamp"], now.Location())
	if err != nil {
		return nil, err
	}
	ev := &event.Event{
		Type:      event.TypeRsyslog,
		Pri:       pri,
		Host:      g["host"],
		Message:   g["message"],
		Timestamp: ts.In(now.Location()).Format(isoLayout),
	}
	if err := procFields(ev, g); err != nil {
		return nil, err
	}
	return ev, nil
}

// parseISO reads s with the first matching ISO 8601 layout. zoned reports
// whether s carried its own offset.
func parseISO(s string, loc *time.Location) (t time.Time, zoned bool, err error) {
	for i, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, i < zonedLayouts, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid ISO 8601 timestamp %q", s)
}
