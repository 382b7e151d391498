package mqtt

import (
	"testing"

	"enasolar2mqtt/internal/core/domain"
	"enasolar2mqtt/internal/core/events"
	"enasolar2mqtt/internal/util"

	"github.com/stretchr/testify/assert"
)

func testClient() *MQTTClient {
	cfg := util.LoadTestConfig()
	return CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)
}

func TestStateTopics(t *testing.T) {

	assert := assert.New(t)

	client := testClient()

	assert.Equal("enasolar/bridge/state", client.BridgeStateTopic(), "bridge state topic")
	assert.Equal("enasolar/sensor/output_power/state", client.SensorStateTopic(events.SENSOR_ID_OUTPUT_POWER), "sensor state topic")
	assert.Equal("enasolar/binary_sensor/inverter_connected/state", client.BinarySensorStateTopic(events.SENSOR_ID_INVERTER_CONNECTED), "binary sensor state topic")
}

func TestHADiscoverySensorTopic(t *testing.T) {

	assert := assert.New(t)

	sensor := domain.GenericSensor{
		Device:     domain.Device{Id: "ena_inverter_abcd1234"},
		Id:         events.SENSOR_ID_OUTPUT_POWER,
		SensorType: events.SENSOR_TYPE_SENSOR,
	}

	topic := HADiscoverySensorTopic("homeassistant", sensor)
	assert.Equal("homeassistant/sensor/ena_inverter_abcd1234/output_power/config", topic, "discovery topic")
}

func TestGenericSensorToHADiscoveryMessage(t *testing.T) {

	assert := assert.New(t)

	client := testClient()

	device := domain.Device{Id: "ena_inverter_abcd1234", Manufacturer: "EnaSolar"}
	sensors := events.InverterBaseSensors(device)

	var power *domain.GenericSensor
	for i := range sensors {
		if sensors[i].Id == events.SENSOR_ID_OUTPUT_POWER {
			power = &sensors[i]
		}
	}
	assert.NotNil(power, "output power sensor present")

	msg := GenericSensorToHADiscoveryMessage(client, *power)
	assert.Equal("enasolar/sensor/output_power/state", msg.StateTopic, "state topic")
	assert.Equal("enasolar/bridge/state", msg.AvTopic, "availability topic")
	assert.Equal("W", msg.UnitOfMeasurement, "unit")
	assert.Equal("power", msg.DeviceClass, "device class")
	assert.Equal("mqtt", msg.Platform, "platform")
	assert.Equal([]string{"ena_inverter_abcd1234"}, msg.Device.Id, "device ids")
}

func TestBinarySensorDiscoveryPayloads(t *testing.T) {

	assert := assert.New(t)

	client := testClient()

	sensor := domain.GenericSensor{
		Device:     domain.Device{Id: "ena_inverter_abcd1234"},
		Id:         events.SENSOR_ID_INVERTER_CONNECTED,
		SensorType: events.SENSOR_TYPE_BINARY,
	}

	msg := GenericSensorToHADiscoveryMessage(client, sensor)
	assert.Equal(MQTT_PAYLOAD_ON, msg.PayloadOn, "payload on")
	assert.Equal(MQTT_PAYLOAD_OFF, msg.PayloadOff, "payload off")

	bridge := domain.GenericSensor{
		Device:     domain.Device{Id: "enasolar_bridge_abcd1234"},
		Id:         events.SENSOR_ID_BRIDGE_STATE,
		SensorType: events.SENSOR_TYPE_BINARY,
	}

	bridgeMsg := GenericSensorToHADiscoveryMessage(client, bridge)
	assert.Equal(MQTT_PAYLOAD_ONLINE, bridgeMsg.PayloadOn, "bridge payload on")
	assert.Equal(MQTT_PAYLOAD_OFFLINE, bridgeMsg.PayloadOff, "bridge payload off")
}
