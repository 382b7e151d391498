package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"enasolar2mqtt/internal/core/domain"
	"enasolar2mqtt/pkg/enasolar"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE         = "bridge"
	SENSOR_ID_OUTPUT_POWER         = enasolar.FieldOutputPower
	SENSOR_ID_INPUT_VOLTAGE_1      = enasolar.FieldInputVoltage1
	SENSOR_ID_INPUT_VOLTAGE_2      = enasolar.FieldInputVoltage2
	SENSOR_ID_OUTPUT_VOLTAGE       = enasolar.FieldOutputVoltage
	SENSOR_ID_IRRADIANCE           = enasolar.FieldIrradiance
	SENSOR_ID_TEMPERATURE          = enasolar.FieldTemperature
	SENSOR_ID_ENERGY_TODAY         = enasolar.FieldEnergyToday
	SENSOR_ID_ENERGY_YESTERDAY     = enasolar.FieldEnergyYesterday
	SENSOR_ID_ENERGY_LIFETIME      = enasolar.FieldEnergyLifetime
	SENSOR_ID_DAYS_PRODUCING       = enasolar.FieldDaysProducing
	SENSOR_ID_HOURS_TODAY          = enasolar.FieldHoursToday
	SENSOR_ID_HOURS_YESTERDAY      = enasolar.FieldHoursYesterday
	SENSOR_ID_HOURS_LIFETIME       = enasolar.FieldHoursLifetime
	SENSOR_ID_OPERATING_STATE      = enasolar.FieldOperatingStateText
	SENSOR_ID_INVERTER_CONNECTED   = "inverter_connected"
	SENSOR_ID_CONSECUTIVE_FAILURES = "consecutive_poll_failures"

	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_TEMPERATURE     = "temperature"
	DEVICE_CLASS_VOLTAGE         = "voltage"
	DEVICE_CLASS_IRRADIANCE      = "irradiance"
	DEVICE_CLASS_DURATION        = "duration"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
)

// metricSensor binds a snapshot field to its MQTT rendering.
type metricSensor struct {
	id       string
	decimals uint
}

// snapshot fields published as float sensors, with display precision
var floatMetricSensors = []metricSensor{
	{SENSOR_ID_INPUT_VOLTAGE_1, 1},
	{SENSOR_ID_INPUT_VOLTAGE_2, 1},
	{SENSOR_ID_OUTPUT_VOLTAGE, 1},
	{SENSOR_ID_IRRADIANCE, 0},
	{SENSOR_ID_TEMPERATURE, 1},
	{SENSOR_ID_ENERGY_TODAY, 2},
	{SENSOR_ID_ENERGY_YESTERDAY, 2},
	{SENSOR_ID_ENERGY_LIFETIME, 2},
	{SENSOR_ID_HOURS_TODAY, 2},
	{SENSOR_ID_HOURS_YESTERDAY, 2},
	{SENSOR_ID_HOURS_LIFETIME, 2},
}

// SnapshotToUpdateEvents maps one metrics snapshot to sensor update events.
// Fields absent from the snapshot (models without irradiance or temperature
// sensors) simply produce no event.
func SnapshotToUpdateEvents(s *enasolar.MetricsSnapshot) []any {
	var events []any

	if power, ok := s.Integer(enasolar.FieldOutputPower); ok {
		events = append(events, domain.IntSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
				Id: SENSOR_ID_OUTPUT_POWER,
			},
			Value: power,
		})
	}
	if days, ok := s.Integer(enasolar.FieldDaysProducing); ok {
		events = append(events, domain.IntSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
				Id: SENSOR_ID_DAYS_PRODUCING,
			},
			Value: days,
		})
	}
	for _, sensor := range floatMetricSensors {
		value, ok := s.Float(sensor.id)
		if !ok {
			continue
		}
		events = append(events, domain.FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
				Id: sensor.id,
			},
			Value:    value,
			Decimals: sensor.decimals,
		})
	}
	if stateText, ok := s.Text(enasolar.FieldOperatingStateText); ok {
		events = append(events, domain.TextSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
				Id: SENSOR_ID_OPERATING_STATE,
			},
			Value: stateText,
		})
	}

	return events
}

// ConnectionStateToUpdateEvents surfaces connection health so the consumer
// can slow its polling down when the inverter starts refusing requests.
func ConnectionStateToUpdateEvents(connected bool, state enasolar.ConnectionState) []any {
	return []any{
		domain.BinarySensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
				Id: SENSOR_ID_INVERTER_CONNECTED,
			},
			Value: connected,
		},
		domain.IntSensorUpdateEvent{
			SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
				Id: SENSOR_ID_CONSECUTIVE_FAILURES,
			},
			Value: int64(state.ConsecutiveFailures),
		},
	}
}

func BridgeDevice(baseTopic string) domain.Device {
	return domain.Device{
		Id:           fmt.Sprintf("enasolar_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "enasolar2mqtt",
		Model:        "EnaSolar bridge",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("EnaSolar bridge %s", md5HashShort(baseTopic)),
	}
}

func InverterDevice(info *enasolar.InverterInfo) domain.Device {
	return domain.Device{
		Id:           fmt.Sprintf("ena_inverter_%s", md5HashShort(info.SerialNo)),
		Version:      info.FWVersion,
		Manufacturer: "EnaSolar",
		Model:        info.Model,
		Name:         fmt.Sprintf("%s %s", info.Model, md5HashShort(info.SerialNo)),
	}
}

// InverterBaseSensors describes every sensor the bridge can publish for Home
// Assistant discovery.
func InverterBaseSensors(inverterDevice domain.Device) []domain.GenericSensor {

	var sensors []domain.GenericSensor

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_OUTPUT_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Output power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_OUTPUT_POWER),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_INPUT_VOLTAGE_1,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "DC input voltage 1",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_VOLTAGE,
		UnitOfMeasurement: "V",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_INPUT_VOLTAGE_1),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_INPUT_VOLTAGE_2,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "DC input voltage 2",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_VOLTAGE,
		UnitOfMeasurement: "V",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_INPUT_VOLTAGE_2),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_OUTPUT_VOLTAGE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "AC output voltage",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_VOLTAGE,
		UnitOfMeasurement: "V",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_OUTPUT_VOLTAGE),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_IRRADIANCE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Irradiance",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_IRRADIANCE,
		UnitOfMeasurement: "W/m²",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_IRRADIANCE),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_TEMPERATURE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Inverter temperature",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_TEMPERATURE,
		UnitOfMeasurement: "°C",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_TEMPERATURE),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_ENERGY_TODAY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Energy today",
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "kWh",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_ENERGY_TODAY),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_ENERGY_YESTERDAY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Energy yesterday",
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "kWh",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_ENERGY_YESTERDAY),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_ENERGY_LIFETIME,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Energy lifetime",
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		DeviceClass:       DEVICE_CLASS_ENERGY,
		UnitOfMeasurement: "kWh",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_ENERGY_LIFETIME),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_DAYS_PRODUCING,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Days producing",
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		UnitOfMeasurement: "d",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_DAYS_PRODUCING),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_HOURS_TODAY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Hours exporting today",
		DeviceClass:       DEVICE_CLASS_DURATION,
		UnitOfMeasurement: "h",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_HOURS_TODAY),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_HOURS_YESTERDAY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Hours exporting yesterday",
		DeviceClass:       DEVICE_CLASS_DURATION,
		UnitOfMeasurement: "h",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_HOURS_YESTERDAY),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_HOURS_LIFETIME,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Hours exporting lifetime",
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		DeviceClass:       DEVICE_CLASS_DURATION,
		UnitOfMeasurement: "h",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_HOURS_LIFETIME),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:     inverterDevice,
		Id:         SENSOR_ID_OPERATING_STATE,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Operating state",
		UniqueId:   uniqueId(inverterDevice.Id, SENSOR_ID_OPERATING_STATE),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:         inverterDevice,
		Id:             SENSOR_ID_INVERTER_CONNECTED,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Inverter reachable",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(inverterDevice.Id, SENSOR_ID_INVERTER_CONNECTED),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:         inverterDevice,
		Id:             SENSOR_ID_CONSECUTIVE_FAILURES,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Consecutive poll failures",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(inverterDevice.Id, SENSOR_ID_CONSECUTIVE_FAILURES),
	})

	return sensors
}

func BridgeBaseSensors(bridgeDevice domain.Device) []domain.GenericSensor {
	return []domain.GenericSensor{
		{
			Device:      bridgeDevice,
			Id:          SENSOR_ID_BRIDGE_STATE,
			SensorType:  SENSOR_TYPE_BINARY,
			Name:        "Bridge state",
			DeviceClass: DEVICE_CLASS_CONNECTIVITY,
			UniqueId:    uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
		},
	}
}

// IdDevice strips a device down to its identifiers so repeated discovery
// payloads stay small.
func IdDevice(d domain.Device) domain.Device {
	return domain.Device{Id: d.Id}
}

func uniqueId(deviceId, sensorId string) string {
	return fmt.Sprintf("%s_%s", deviceId, sensorId)
}

func md5HashShort(value string) string {
	hash := md5.Sum([]byte(value))
	return hex.EncodeToString(hash[:])[:8]
}
