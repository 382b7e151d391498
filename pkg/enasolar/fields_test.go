package enasolar

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

const statusPageFixture = `<html><head><title>EnaSolar GT</title>
<script language="JavaScript" type="text/javascript">
var OutputPower="3500";
var InputVoltage="243";
var InputVoltage2="0";
var OutputVoltage="238.5";
var Irradiance="780";
var Temperature="31.2";
var EnergyToday="4CE";
var EnergyYesterday="71C";
var EnergyLifetime="1F63D3";
var DaysProducing="4B4";
var HoursExportedToday="5.2";
var HoursExportedYesterday="222";
var HoursExportedLifetime="5B2E8";
var State="2";
</script></head><body></body></html>`

func TestExtractStatusFields(t *testing.T) {

	assert := assert.New(t)

	values, err := ExtractFields(statusPageFixture, DefaultStatusFields())
	assert.NoError(err)

	power, ok := values[FieldOutputPower]
	assert.True(ok)
	assert.Equal(KindInteger, power.Kind)
	assert.Equal(int64(3500), power.Integer)

	// hex counter: 0x4CE = 1230 ticks of 0.01 kWh
	today, ok := values[FieldEnergyToday]
	assert.True(ok)
	assert.Equal(KindDecimal, today.Kind)
	assert.InDelta(12.3, today.Decimal, 1e-9)

	state, ok := values[FieldOperatingState]
	assert.True(ok)
	assert.Equal(int64(2), state.Integer)

	voltage, ok := values[FieldOutputVoltage]
	assert.True(ok)
	assert.InDelta(238.5, voltage.Decimal, 1e-9)
}

func TestExtractFieldsScaleRoundTrip(t *testing.T) {

	assert := assert.New(t)

	specs := []FieldSpec{
		{
			Name:     "dc_voltage",
			Pattern:  regexp.MustCompile(`var\s+DCVoltage\s*=\s*"(\d+)";`),
			Type:     TypeInteger,
			Scale:    0.1,
			Required: true,
		},
	}
	values, err := ExtractFields(`var DCVoltage="1234";`, specs)
	assert.NoError(err)
	assert.InDelta(123.4, values["dc_voltage"].Decimal, 1e-9)
}

func TestExtractFieldsMissingRequired(t *testing.T) {

	assert := assert.New(t)

	page := `<html><script>var InputVoltage="243";</script></html>`
	_, err := ExtractFields(page, DefaultStatusFields())
	assert.Error(err)

	var extErr *ExtractionError
	assert.True(errors.As(err, &extErr))
}

func TestExtractFieldsMissingOptionalSkipped(t *testing.T) {

	assert := assert.New(t)

	// no irradiance or temperature sensor on this model
	page := `<script>
var OutputPower="1200";
var EnergyToday="10";
var EnergyLifetime="20";
var State="2";
</script>`
	values, err := ExtractFields(page, DefaultStatusFields())
	assert.NoError(err)
	_, ok := values[FieldIrradiance]
	assert.False(ok)
	_, ok = values[FieldTemperature]
	assert.False(ok)
}

func TestExtractFieldsBadCoercion(t *testing.T) {

	assert := assert.New(t)

	page := `<script>
var OutputPower="garbage";
var EnergyToday="10";
var EnergyLifetime="20";
var State="2";
</script>`
	_, err := ExtractFields(page, DefaultStatusFields())

	var extErr *ExtractionError
	assert.True(errors.As(err, &extErr))
	assert.Equal(FieldOutputPower, extErr.Field)
}

func TestOperatingStateToString(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("Generating", OperatingStateToString(2))
	assert.Equal("Waiting", OperatingStateToString(1))
	assert.Equal("Unknown(9)", OperatingStateToString(9))
}
