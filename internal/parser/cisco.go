package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/snoozeweb/snooze-syslog/internal/event"
)

var ciscoRe = regexp.MustCompile(`^<(?P<pri>\d+)>.*` +
	`(?:%(?P<fsm>[A-Z0-9_-]+)):? ` +
	`(?P<message>.*)$`)

// ParseCisco parses vendor-tagged lines. A tag that does not split into exactly
// FACILITY-SEVERITY-MNEMONIC yields event.NotAvailable for all three parts.
func ParseCisco(line string, _ time.Time) (*event.Event, error) {
	g, ok := groups(ciscoRe, line)
	if !ok {
		return nil, mismatch(FormatCisco, line)
	}
	pri, err := strconv.Atoi(g["pri"])
	if err != nil {
		return nil, fmt.Errorf("invalid pri %q: %w", g["pri"], err)
	}
	ev := &event.Event{
		Type:          event.TypeCisco,
		Pri:           pri,
		Message:       g["message"],
		CiscoFacility: event.NotAvailable,
		CiscoSeverity: event.NotAvailable,
		CiscoMnemonic: event.NotAvailable,
	}
	if parts := strings.Split(g["fsm"], "-"); len(parts) == 3 {
		ev.CiscoFacility, ev.CiscoSeverity, ev.CiscoMnemonic = parts[0], parts[1], parts[2]
	} else {
		slog.Debug("cisco tag does not split into facility-severity-mnemonic", "tag", g["fsm"])
	}
	return ev, nil
}
