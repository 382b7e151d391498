package actor

import (
	"fmt"
	"time"

	"enasolar2mqtt/internal/config"
	"enasolar2mqtt/internal/core/domain"
	"enasolar2mqtt/internal/core/events"
	. "enasolar2mqtt/internal/util/actorutil"
	"enasolar2mqtt/pkg/enasolar"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// MonitorActor drives the poll loop: on every tick it asks the inverter
// actor for a fresh metrics snapshot and publishes the resulting sensor
// updates to the event bus.
type MonitorActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	inverterActor *actor.PID
	config        *config.Config
	eventStream   *eventstream.EventStream
	lastConnected *bool

	logger *zap.Logger
}

type monitorTick struct {
}

func NewMonitorActor(config *config.Config, inverterActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *MonitorActor {
	act := &MonitorActor{
		config:        config,
		inverterActor: inverterActor,
		behavior:      actor.NewBehavior(),
		stash:         &Stash{},
		logger:        ActorLogger(domain.ACTOR_ID_MONITOR, logger),
		eventStream:   eventStream,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MonitorActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MonitorActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("monitor@starting started")

		if state.config.MonitorConfig.PollIntervalMillis > 0 {
			state.scheduler = scheduler.NewTimerScheduler(ctx)
			state.scheduler.RequestOnce(time.Duration(state.config.MonitorConfig.PollIntervalMillis)*time.Millisecond, ctx.Self(), monitorTick{})
		}

		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetInverterInfoRequest{}, 15*time.Second), func(err error) any {
			return domain.GetInverterInfoResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.behavior.Become(state.WaitingInfoReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("monitor@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MonitorActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("monitor@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MONITOR,
			Healthy: true,
			State:   "idle",
		})
	case monitorTick:
		state.logger.Debug("monitor@default tick")
		// get metrics snapshot
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetMetricsRequest{}, 15*time.Second), func(err error) any {
			return domain.GetMetricsResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})

		// schedule next tick
		state.scheduler.RequestOnce(time.Duration(state.config.MonitorConfig.PollIntervalMillis)*time.Millisecond, ctx.Self(), monitorTick{})
		state.behavior.BecomeStacked(state.WaitingMetricsReceive)
	case domain.GetConnectionStateResponse:
		state.logger.Debug("monitor@default GetConnectionStateResponse")
		if !msg.HasResponseError() {
			state.publishConnectionState(msg.Connected, msg.State)
		}
	default:
		state.logger.Debug("monitor@default: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MonitorActor) WaitingMetricsReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetMetricsResponse:
		if msg.HasResponseError() {
			state.logger.Error("monitor@waiting GetMetricsResponse error", zap.Error(msg.GetResponseError()))
			state.requestConnectionState(ctx)
			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
			return
		}
		state.logger.Debug("monitor@waiting GetMetricsResponse")
		if msg.Snapshot != nil {
			evs := events.SnapshotToUpdateEvents(msg.Snapshot)
			for _, ev := range evs {
				state.eventStream.Publish(ev)
			}
		}
		state.requestConnectionState(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("monitor@waiting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MonitorActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetInverterInfoResponse:
		if msg.HasResponseError() {
			state.logger.Error("monitor@waitingInfo GetInverterInfoResponse", zap.Error(msg.GetResponseError()))
			state.behavior.Become(state.DefaultReceive)
			state.stash.UnstashAll(ctx)
			return
		}
		state.logger.Debug("monitor@waitingInfo GetInverterInfoResponse")
		if msg.Info != nil {
			state.logger.Info("inverter identified",
				zap.String("model", msg.Info.Model),
				zap.String("serial", msg.Info.SerialNo),
				zap.String("firmware", msg.Info.FWVersion))
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("monitor@waitingInfo: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MonitorActor) requestConnectionState(ctx actor.Context) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.inverterActor, domain.GetConnectionStateRequest{}, 5*time.Second), func(err error) any {
		return domain.GetConnectionStateResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
}

func (state *MonitorActor) publishConnectionState(connected bool, connState enasolar.ConnectionState) {
	if state.lastConnected == nil || *state.lastConnected != connected {
		state.logger.Info("inverter connectivity changed",
			zap.Bool("connected", connected),
			zap.String("state", connState.State.String()),
			zap.Uint("consecutiveFailures", connState.ConsecutiveFailures))
	}
	state.lastConnected = &connected
	for _, ev := range events.ConnectionStateToUpdateEvents(connected, connState) {
		state.eventStream.Publish(ev)
	}
}
