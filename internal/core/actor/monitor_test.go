package actor

import (
	"sync"
	"testing"
	"time"

	adactor "enasolar2mqtt/internal/adapter/actor"
	"enasolar2mqtt/internal/core/domain"
	"enasolar2mqtt/internal/core/events"
	"enasolar2mqtt/internal/util"
	"enasolar2mqtt/internal/util/actorutil"
	"enasolar2mqtt/pkg/enasolar"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMonitorActorPublishesSnapshotEvents(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	cfg.MonitorConfig.PollIntervalMillis = 500

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	inverterProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewInverterActor(enasolar.CreateTestInverterReader(), logger)
	})
	inverterPID := context.Spawn(inverterProps)

	es := eventstream.EventStream{}

	var mu sync.Mutex
	received := make(map[string]any)
	sub := es.Subscribe(func(value any) {
		if ev, ok := value.(domain.SensorUpdateEvent); ok {
			mu.Lock()
			received[ev.SensorId()] = value
			mu.Unlock()
		}
	})
	defer es.Unsubscribe(sub)

	monitorProps := actor.PropsFromProducer(func() actor.Actor {
		return NewMonitorActor(&cfg, inverterPID, &es, logger)
	})
	monitorPID := context.Spawn(monitorProps)

	time.Sleep(2 * time.Second)

	mu.Lock()
	power, ok := received[events.SENSOR_ID_OUTPUT_POWER].(domain.IntSensorUpdateEvent)
	assert.True(ok, "output power event published")
	assert.Equal(int64(1850), power.Value, "output power value")

	stateText, ok := received[events.SENSOR_ID_OPERATING_STATE].(domain.TextSensorUpdateEvent)
	assert.True(ok, "operating state event published")
	assert.Equal("Generating", stateText.Value, "operating state text")

	connected, ok := received[events.SENSOR_ID_INVERTER_CONNECTED].(domain.BinarySensorUpdateEvent)
	assert.True(ok, "connectivity event published")
	assert.True(connected.Value, "connected")
	mu.Unlock()

	context.Stop(monitorPID)
	context.Stop(inverterPID)

	as.Shutdown()
}
