package actor

import (
	"errors"
	"fmt"
	"time"

	"enasolar2mqtt/internal/config"
	"enasolar2mqtt/internal/core/domain"
	"enasolar2mqtt/internal/core/events"
	"enasolar2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

type HADiscoveryActor struct {
	config               *config.Config
	behavior             actor.Behavior
	stash                *actorutil.Stash
	inverterActor        *actor.PID
	mqttActor            *actor.PID
	inverterActorHealthy bool
	mqttActorHealthy     bool
	healthyRecv          int

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, inverterActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:        config,
		inverterActor: inverterActor,
		mqttActor:     mqttActor,
		behavior:      actor.NewBehavior(),
		stash:         &actorutil.Stash{},
		logger:        actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// check inverter and MQTT actor healthy
		state.healthyRecv = 0
		state.inverterActorHealthy = false
		state.mqttActorHealthy = false
		// inverter actor request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_INVERTER,
				Healthy: false,
			}
		})
		// MQTT actor request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_INVERTER:
				state.inverterActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {

			if state.inverterActorHealthy && state.mqttActorHealthy {
				// ask inverter for its identity
				actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetInverterInfoRequest{}, 15*time.Second), func(err error) any {
					return domain.GetInverterInfoResponse{
						ActorResponseMixIn: domain.ActorResponseMixIn{
							ResponseError: err,
						},
					}
				})
				state.behavior.Become(state.WaitingInfoReceive)
				state.stash.UnstashAll(ctx)
			} else {
				panic(errors.New("MQTT actor or inverter actor are not healthy"))
			}
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetInverterInfoResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		if msg.Info == nil {
			panic(errors.New("inverter identity unavailable"))
		}
		state.logger.Debug("hadiscovery@info: GetInverterInfoResponse", zap.Any("response", msg))

		var sensors []domain.GenericSensor

		bridgeDevice := events.BridgeDevice(state.config.MQTT.BaseTopic)
		sensors = append(sensors, events.BridgeBaseSensors(bridgeDevice)...)

		inverterDevice := events.InverterDevice(msg.Info)
		inverterDevice.ViaDevice = bridgeDevice.Id
		inverterSensors := events.InverterBaseSensors(inverterDevice)
		for i := range inverterSensors {
			if i > 0 {
				inverterSensors[i].Device = events.IdDevice(inverterDevice)
			}
			sensors = append(sensors, inverterSensors[i])
		}

		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			Sensors: sensors,
		})
		state.behavior.Become(state.Done)

	default:
		state.logger.Debug("hadiscovery@info: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}
