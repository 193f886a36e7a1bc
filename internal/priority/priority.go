// Package priority decodes the syslog PRI value into facility and severity names.
package priority

import (
	"errors"
	"fmt"
)

// MaxPriority is the largest PRI value a syslog header may carry (facility 23, severity 7).
const MaxPriority = 191

// ErrPriorityRange is returned for PRI values outside [0, MaxPriority].
var ErrPriorityRange = errors.New("priority out of range")

// Facilities lists facility names ordered by facility code.
var Facilities = [24]string{
	"kern",
	"user",
	"mail",
	"daemon",
	"auth",
	"syslog",
	"lpr",
	"news",
	"uucp",
	"cron",
	"authpriv",
	"ftp",
	"ntp",
	"audit",
	"alert",
	"clock",
	"local0",
	"local1",
	"local2",
	"local3",
	"local4",
	"local5",
	"local6",
	"local7",
}

// Severities lists severity names ordered by severity code.
var Severities = [8]string{
	"emerg",
	"alert",
	"crit",
	"err",
	"warning",
	"notice",
	"info",
	"debug",
}

// Decode splits pri into its facility (pri>>3) and severity (pri&7) names.
func Decode(pri int) (facility, severity string, err error) {
	if pri < 0 || pri > MaxPriority {
		return "", "", fmt.Errorf("%w: %d", ErrPriorityRange, pri)
	}
	return Facilities[pri>>3], Severities[pri&7], nil
}
