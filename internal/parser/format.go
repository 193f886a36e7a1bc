package parser

import (
	"regexp"

	"github.com/snoozeweb/snooze-syslog/internal/event"
)

// Format identifies a syslog wire format.
type Format int

const (
	FormatUnknown Format = iota
	FormatRFC5424
	FormatRFC3164
	FormatCisco
	FormatRsyslog
)

func (f Format) String() string {
	switch f {
	case FormatRFC5424:
		return event.TypeRFC5424
	case FormatRFC3164:
		return event.TypeRFC3164
	case FormatCisco:
		return event.TypeCisco
	case FormatRsyslog:
		return event.TypeRsyslog
	}
	return "unknown"
}

type probe struct {
	format Format
	re     *regexp.Regexp
}

// probes run in order on every line; the first match wins.
var probes = []probe{
	{FormatRFC5424, regexp.MustCompile(`^<\d+>1 `)},
	{FormatRFC3164, regexp.MustCompile(`^<\d{1,3}>\S{3}\s`)},
	{FormatCisco, regexp.MustCompile(`^<\d+>.*%[A-Z0-9_-]+`)},
	{FormatRsyslog, regexp.MustCompile(`^<\d+>\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)},
}

// parsers is the strategy table used once a line is classified.
var parsers = map[Format]ParseFunc{
	FormatRFC5424: ParseRFC5424,
	FormatRFC3164: ParseRFC3164,
	FormatCisco:   ParseCisco,
	FormatRsyslog: ParseRsyslog,
}

// Classify returns the format of line, or FormatUnknown.
func Classify(line string) Format {
	for _, p := range probes {
		if p.re.MatchString(line) {
			return p.format
		}
	}
	return FormatUnknown
}
