package enasolar

import (
	"context"
	"time"
)

func CreateTestInverterReader() Reader {
	return &TestInverterReader{}
}

// TestInverterReader is a canned in-memory Reader for actor and wiring tests.
type TestInverterReader struct {
	connected bool
	last      *MetricsSnapshot
}

func (r *TestInverterReader) Connect(ctx context.Context) error {
	r.connected = true
	return nil
}

func (r *TestInverterReader) Refresh(ctx context.Context) (*MetricsSnapshot, error) {
	r.connected = true
	r.last = &MetricsSnapshot{
		Timestamp: time.Now(),
		Values: map[string]Value{
			FieldOutputPower:        IntegerValue(1850),
			FieldInputVoltage1:      DecimalValue(243),
			FieldInputVoltage2:      DecimalValue(0),
			FieldOutputVoltage:      DecimalValue(238.5),
			FieldIrradiance:         DecimalValue(780),
			FieldTemperature:        DecimalValue(31.2),
			FieldEnergyToday:        DecimalValue(12.34),
			FieldEnergyYesterday:    DecimalValue(18.2),
			FieldEnergyLifetime:     DecimalValue(20570.11),
			FieldDaysProducing:      IntegerValue(1204),
			FieldHoursToday:         DecimalValue(5.2),
			FieldHoursYesterday:     DecimalValue(9.1),
			FieldHoursLifetime:      DecimalValue(6240.5),
			FieldOperatingState:     IntegerValue(OperatingStateGenerating),
			FieldOperatingStateText: TextValue(OperatingStateGeneratingStr),
		},
	}
	return r.last, nil
}

func (r *TestInverterReader) IsConnected() bool {
	return r.connected
}

func (r *TestInverterReader) Identity() *InverterInfo {
	return &InverterInfo{
		SerialNo:       "1512A00729",
		Model:          "EnaSolar GT 2.0kW",
		FWVersion:      "V1.14",
		RatedACPowerKW: 2.0,
		RatedDCPowerKW: 2.1,
	}
}

func (r *TestInverterReader) LastSnapshot() *MetricsSnapshot {
	return r.last
}

func (r *TestInverterReader) State() ConnectionState {
	state := ConnectionState{State: StateDisconnected}
	if r.connected {
		state.State = StateConnected
		state.LastSuccess = time.Now()
	}
	return state
}
