package event

import (
	"encoding/json"
	"time"
)

// Syslog format tags carried in Event.Type.
const (
	TypeRFC3164 = "rfc3164" // legacy BSD
	TypeRFC5424 = "rfc5424" // structured
	TypeCisco   = "cisco"   // vendor-tagged
	TypeRsyslog = "rsyslog" // high-precision timestamp
)

// NotAvailable replaces vendor tag sub-fields that could not be split.
const NotAvailable = "na"

// RawMessage is one transport delivery (a TCP line or a UDP datagram) waiting to be parsed.
// A single RawMessage may hold several newline-separated records.
type RawMessage struct {
	Addr       string
	Payload    []byte
	ReceivedAt time.Time
}

// Event is a parsed syslog record. It is built by a single parse worker and
// must not be modified once it has been handed to the delivery stage.
type Event struct {
	ID        string `json:"id"`
	Type      string `json:"syslog_type"`
	SyslogIP  string `json:"syslog_ip"`
	Pri       int    `json:"pri"`
	Facility  string `json:"facility"`
	Severity  string `json:"severity"`
	Timestamp string `json:"timestamp"` // ISO 8601 with offset
	Host      string `json:"host,omitempty"`
	Process   string `json:"process,omitempty"`
	PID       int    `json:"pid,omitempty"` // 0 when absent
	MsgID     string `json:"msgid,omitempty"`
	Message   string `json:"message"`
	Source    string `json:"source"`
	Raw       string `json:"raw"`

	CiscoFacility string `json:"cisco_facility,omitempty"`
	CiscoSeverity string `json:"cisco_severity,omitempty"`
	CiscoMnemonic string `json:"cisco_mnemonic,omitempty"`

	// Structured holds RFC 5424 structured-data blocks keyed by SD-ID.
	// Blocks are flattened into the top level of Fields.
	Structured map[string]map[string]string `json:"-"`
}

// Fields returns the event as a flat mapping. Each structured-data block
// appears under its SD-ID; named fields win over a block with the same ID.
func (e *Event) Fields() map[string]interface{} {
	m := make(map[string]interface{}, 16+len(e.Structured))
	for id, block := range e.Structured {
		m[id] = block
	}
	m["id"] = e.ID
	m["syslog_type"] = e.Type
	m["syslog_ip"] = e.SyslogIP
	m["pri"] = e.Pri
	m["facility"] = e.Facility
	m["severity"] = e.Severity
	m["timestamp"] = e.Timestamp
	m["message"] = e.Message
	m["source"] = e.Source
	m["raw"] = e.Raw
	setIf(m, "host", e.Host)
	setIf(m, "process", e.Process)
	setIf(m, "msgid", e.MsgID)
	if e.PID != 0 {
		m["pid"] = e.PID
	}
	setIf(m, "cisco_facility", e.CiscoFacility)
	setIf(m, "cisco_severity", e.CiscoSeverity)
	setIf(m, "cisco_mnemonic", e.CiscoMnemonic)
	return m
}

func setIf(m map[string]interface{}, key, val string) {
	if val != "" {
		m[key] = val
	}
}

// MarshalJSON encodes the flattened Fields mapping.
func (e *Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Fields())
}

// Resolve looks up a dotted field path, e.g. ["host"] or ["exampleSDID@32473", "iut"].
// Present named fields shadow structured-data blocks of the same ID, as in Fields.
func (e *Event) Resolve(path []string) (interface{}, bool) {
	if len(path) == 0 {
		return nil, false
	}
	if v, named, ok := e.named(path[0]); named && ok {
		if len(path) != 1 {
			return nil, false
		}
		return v, true
	}
	block, ok := e.Structured[path[0]]
	if !ok {
		return nil, false
	}
	switch len(path) {
	case 1:
		return block, true
	case 2:
		s, ok := block[path[1]]
		return s, ok
	}
	return nil, false
}

// named resolves a core field. named is false when key is not a core field;
// ok is false when it is one but is absent from this event.
func (e *Event) named(key string) (v interface{}, named, ok bool) {
	switch key {
	case "id":
		return e.ID, true, true
	case "syslog_type":
		return e.Type, true, true
	case "syslog_ip":
		return e.SyslogIP, true, true
	case "pri":
		return e.Pri, true, true
	case "facility":
		return e.Facility, true, true
	case "severity":
		return e.Severity, true, true
	case "timestamp":
		return e.Timestamp, true, true
	case "message":
		return e.Message, true, true
	case "source":
		return e.Source, true, true
	case "raw":
		return e.Raw, true, true
	case "host":
		return e.Host, true, e.Host != ""
	case "process":
		return e.Process, true, e.Process != ""
	case "msgid":
		return e.MsgID, true, e.MsgID != ""
	case "pid":
		return e.PID, true, e.PID != 0
	case "cisco_facility":
		return e.CiscoFacility, true, e.CiscoFacility != ""
	case "cisco_severity":
		return e.CiscoSeverity, true, e.CiscoSeverity != ""
	case "cisco_mnemonic":
		return e.CiscoMnemonic, true, e.CiscoMnemonic != ""
	}
	return nil, false, false
}
