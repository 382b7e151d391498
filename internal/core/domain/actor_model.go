package domain

import "enasolar2mqtt/pkg/enasolar"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_INVERTER     = "inverter"
	ACTOR_ID_MONITOR      = "monitor"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type GetInverterInfoRequest struct {
	ActorRequestMixIn
}

type GetInverterInfoResponse struct {
	ActorResponseMixIn
	Info *enasolar.InverterInfo
}

type GetMetricsRequest struct {
	ActorRequestMixIn
}

type GetMetricsResponse struct {
	ActorResponseMixIn
	Snapshot *enasolar.MetricsSnapshot
}

type GetConnectionStateRequest struct {
	ActorRequestMixIn
}

type GetConnectionStateResponse struct {
	ActorResponseMixIn
	Connected bool
	State     enasolar.ConnectionState
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
