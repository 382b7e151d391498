package enasolar

import (
	"regexp"
	"strconv"
)

// FieldType declares how a field's matched text is coerced.
type FieldType uint8

const (
	TypeInteger FieldType = iota
	TypeDecimal
	// TypeHex is a base-16 encoded integer. This firmware encodes the
	// cumulative energy and hour counters in hex.
	TypeHex
	TypeText
)

// FieldSpec describes how one named value is located inside the inverter's
// page markup and converted to a typed value. The pattern must contain
// exactly one capture group. Scale is applied to numeric values after
// parsing; a scale other than 1 yields a decimal regardless of field type.
type FieldSpec struct {
	Name     string
	Pattern  *regexp.Regexp
	Type     FieldType
	Scale    float64
	Required bool
}

// status page field names
const (
	FieldOutputPower     = "output_power"
	FieldInputVoltage1   = "input_voltage_1"
	FieldInputVoltage2   = "input_voltage_2"
	FieldOutputVoltage   = "output_voltage"
	FieldIrradiance      = "irradiance"
	FieldTemperature     = "temperature"
	FieldEnergyToday     = "today_energy"
	FieldEnergyYesterday = "yesterday_energy"
	FieldEnergyLifetime  = "total_energy"
	FieldDaysProducing   = "days_producing"
	FieldHoursToday      = "today_hours"
	FieldHoursYesterday  = "yesterday_hours"
	FieldHoursLifetime   = "total_hours"
	FieldOperatingState  = "operating_state"
	// derived from FieldOperatingState, not extracted
	FieldOperatingStateText = "operating_state_text"
)

// settings page field names
const (
	FieldSerialNo     = "serial_no"
	FieldModel        = "model"
	FieldFWVersion    = "fw_version"
	FieldRatedACPower = "rated_ac_power"
	FieldRatedDCPower = "rated_dc_power"
)

// counter scale factors used by this firmware
const (
	energyCounterScale = 0.01   // counter ticks are hundredths of a kWh
	hourCounterScale   = 0.0167 // counter ticks are minutes, reported as hours
)

func jsVarPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`var\s+` + name + `\s*=\s*"?([^";<\s]+)"?\s*;`)
}

func jsStringPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`var\s+` + name + `\s*=\s*"([^"]*)"\s*;`)
}

// DefaultStatusFields is the field specification table for the root status
// page of EnaSolar GT series firmware. It has to be revised whenever a
// firmware update changes the page markup.
func DefaultStatusFields() []FieldSpec {
	return []FieldSpec{
		{Name: FieldOutputPower, Pattern: jsVarPattern("OutputPower"), Type: TypeInteger, Scale: 1, Required: true},
		{Name: FieldInputVoltage1, Pattern: jsVarPattern("InputVoltage"), Type: TypeDecimal, Scale: 1},
		{Name: FieldInputVoltage2, Pattern: jsVarPattern("InputVoltage2"), Type: TypeDecimal, Scale: 1},
		{Name: FieldOutputVoltage, Pattern: jsVarPattern("OutputVoltage"), Type: TypeDecimal, Scale: 1},
		{Name: FieldIrradiance, Pattern: jsVarPattern("Irradiance"), Type: TypeDecimal, Scale: 1},
		{Name: FieldTemperature, Pattern: jsVarPattern("Temperature"), Type: TypeDecimal, Scale: 1},
		{Name: FieldEnergyToday, Pattern: jsVarPattern("EnergyToday"), Type: TypeHex, Scale: energyCounterScale, Required: true},
		{Name: FieldEnergyYesterday, Pattern: jsVarPattern("EnergyYesterday"), Type: TypeHex, Scale: energyCounterScale},
		{Name: FieldEnergyLifetime, Pattern: jsVarPattern("EnergyLifetime"), Type: TypeHex, Scale: energyCounterScale, Required: true},
		{Name: FieldDaysProducing, Pattern: jsVarPattern("DaysProducing"), Type: TypeHex, Scale: 1},
		{Name: FieldHoursToday, Pattern: jsVarPattern("HoursExportedToday"), Type: TypeDecimal, Scale: hourCounterScale},
		{Name: FieldHoursYesterday, Pattern: jsVarPattern("HoursExportedYesterday"), Type: TypeHex, Scale: hourCounterScale},
		{Name: FieldHoursLifetime, Pattern: jsVarPattern("HoursExportedLifetime"), Type: TypeHex, Scale: hourCounterScale},
		{Name: FieldOperatingState, Pattern: jsVarPattern("State"), Type: TypeInteger, Scale: 1, Required: true},
	}
}

// DefaultIdentityFields is the field specification table for the settings
// page. Capacity ratings are reported in kW.
func DefaultIdentityFields() []FieldSpec {
	return []FieldSpec{
		{Name: FieldSerialNo, Pattern: jsStringPattern("SerialNo"), Type: TypeText, Required: true},
		{Name: FieldModel, Pattern: jsStringPattern("Model"), Type: TypeText, Required: true},
		{Name: FieldFWVersion, Pattern: jsStringPattern("FWVersion"), Type: TypeText, Required: true},
		{Name: FieldRatedACPower, Pattern: jsVarPattern("Capacity"), Type: TypeDecimal, Scale: 1, Required: true},
		{Name: FieldRatedDCPower, Pattern: jsVarPattern("MaxDCPower"), Type: TypeDecimal, Scale: 1},
	}
}

// ExtractFields locates every spec'd field in the raw page text and coerces
// it to its declared type. A required field that cannot be matched, or any
// matched field that cannot be coerced, aborts extraction with an
// *ExtractionError. Optional fields absent from the page are skipped: some
// models lack the irradiance and temperature sensors.
func ExtractFields(page string, specs []FieldSpec) (map[string]Value, error) {
	values := make(map[string]Value, len(specs))
	for _, spec := range specs {
		m := spec.Pattern.FindStringSubmatch(page)
		if m == nil {
			if spec.Required {
				return nil, &ExtractionError{Field: spec.Name, Reason: "pattern not found in page"}
			}
			continue
		}
		value, err := coerce(spec, m[1])
		if err != nil {
			return nil, err
		}
		values[spec.Name] = value
	}
	return values, nil
}

func coerce(spec FieldSpec, raw string) (Value, error) {
	scale := spec.Scale
	if scale == 0 {
		scale = 1
	}
	switch spec.Type {
	case TypeText:
		return TextValue(raw), nil
	case TypeInteger, TypeHex:
		base := 10
		if spec.Type == TypeHex {
			base = 16
		}
		n, err := strconv.ParseInt(raw, base, 64)
		if err != nil {
			return Value{}, &ExtractionError{Field: spec.Name, Reason: "not a valid integer", Err: err}
		}
		if scale != 1 {
			return DecimalValue(float64(n) * scale), nil
		}
		return IntegerValue(n), nil
	case TypeDecimal:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Value{}, &ExtractionError{Field: spec.Name, Reason: "not a valid decimal", Err: err}
		}
		return DecimalValue(f * scale), nil
	default:
		return Value{}, &ExtractionError{Field: spec.Name, Reason: "unknown field type"}
	}
}
