package enasolar

import (
	"fmt"
	"time"
)

// inverter operating states
const (
	OperatingStateNotConnected = 0
	OperatingStateWaiting      = 1
	OperatingStateGenerating   = 2
	OperatingStateError        = 3
	OperatingStateUpgrading    = 4
)

// inverter operating state strings
const (
	OperatingStateNotConnectedStr = "Not Connected"
	OperatingStateWaitingStr      = "Waiting"
	OperatingStateGeneratingStr   = "Generating"
	OperatingStateErrorStr        = "Error"
	OperatingStateUpgradingStr    = "Upgrading"
	OperatingStateUnknownStr      = "Unknown"
)

func OperatingStateToString(state int64) string {
	switch state {
	case OperatingStateNotConnected:
		return OperatingStateNotConnectedStr
	case OperatingStateWaiting:
		return OperatingStateWaitingStr
	case OperatingStateGenerating:
		return OperatingStateGeneratingStr
	case OperatingStateError:
		return OperatingStateErrorStr
	case OperatingStateUpgrading:
		return OperatingStateUpgradingStr
	default:
		return fmt.Sprintf("%s(%d)", OperatingStateUnknownStr, state)
	}
}

// InverterInfo holds the static device identity read from the settings page.
// It is resolved once per connection and cached for the client's lifetime.
type InverterInfo struct {
	SerialNo       string
	Model          string
	FWVersion      string
	RatedACPowerKW float64
	RatedDCPowerKW float64
}

// ValueKind discriminates the runtime type of an extracted field value.
type ValueKind uint8

const (
	KindInteger ValueKind = iota
	KindDecimal
	KindText
)

type Value struct {
	Kind    ValueKind
	Integer int64
	Decimal float64
	Text    string
}

func IntegerValue(v int64) Value {
	return Value{Kind: KindInteger, Integer: v}
}

func DecimalValue(v float64) Value {
	return Value{Kind: KindDecimal, Decimal: v}
}

func TextValue(v string) Value {
	return Value{Kind: KindText, Text: v}
}

// Float64 returns any numeric value as a float64.
func (v Value) Float64() (float64, bool) {
	switch v.Kind {
	case KindInteger:
		return float64(v.Integer), true
	case KindDecimal:
		return v.Decimal, true
	default:
		return 0, false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindInteger:
		return fmt.Sprintf("%d", v.Integer)
	case KindDecimal:
		return fmt.Sprintf("%g", v.Decimal)
	default:
		return v.Text
	}
}

// MetricsSnapshot is one self-consistent set of metric values read from a
// single status page fetch. A snapshot is either fully populated or not
// produced at all.
type MetricsSnapshot struct {
	Timestamp time.Time
	Values    map[string]Value
}

func (s *MetricsSnapshot) Float(name string) (float64, bool) {
	v, ok := s.Values[name]
	if !ok {
		return 0, false
	}
	return v.Float64()
}

func (s *MetricsSnapshot) Integer(name string) (int64, bool) {
	v, ok := s.Values[name]
	if !ok || v.Kind != KindInteger {
		return 0, false
	}
	return v.Integer, true
}

func (s *MetricsSnapshot) Text(name string) (string, bool) {
	v, ok := s.Values[name]
	if !ok || v.Kind != KindText {
		return "", false
	}
	return v.Text, true
}

func (s *MetricsSnapshot) Has(name string) bool {
	_, ok := s.Values[name]
	return ok
}
