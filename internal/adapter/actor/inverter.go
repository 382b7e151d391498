package actor

import (
	"context"
	"fmt"
	"time"

	"enasolar2mqtt/internal/core/domain"
	"enasolar2mqtt/internal/util/actorutil"
	"enasolar2mqtt/pkg/enasolar"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

const (
	INVERTER_ACTOR_ID = "inverter"

	requestTimeout = 10 * time.Second
)

// InverterActor serializes access to the inverter's embedded web server.
// The device cannot handle concurrent requests, so each poll runs as a
// background task while the actor stashes everything else.
type InverterActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	reader   enasolar.Reader
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewInverterActor(reader enasolar.Reader, logger *zap.Logger) *InverterActor {
	act := &InverterActor{
		reader:   reader,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger("inverter", logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *InverterActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *InverterActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("inverter@starting started")
		connectCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := state.reader.Connect(connectCtx); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("inverter@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *InverterActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("inverter@default: ActorHealthRequest")
		healthy := state.reader.IsConnected()
		ctx.Respond(domain.ActorHealthResponse{
			Id:      INVERTER_ACTOR_ID,
			Healthy: healthy,
			State:   state.reader.State().State.String(),
		})
	case domain.GetInverterInfoRequest:
		state.logger.Debug("inverter@default: GetInverterInfoRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getInverterInfo),
			mapTaskResult[domain.GetInverterInfoResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetInverterInfoResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(requestTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverter)
	case domain.GetMetricsRequest:
		state.logger.Debug("inverter@default: GetMetricsRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getMetrics),
			mapTaskResult[domain.GetMetricsResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetMetricsResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(requestTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverter)
	case domain.GetConnectionStateRequest:
		state.logger.Debug("inverter@default: GetConnectionStateRequest")
		ctx.Respond(domain.GetConnectionStateResponse{
			Connected: state.reader.IsConnected(),
			State:     state.reader.State(),
		})
	default:
		state.logger.Debug("inverter@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *InverterActor) WaitingInverter(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("inverter@WaitingInverter backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("inverter@WaitingInverter stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *InverterActor) getInverterInfo() (*domain.GetInverterInfoResponse, error) {
	info := a.reader.Identity()
	if info == nil {
		reqCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		if err := a.reader.Connect(reqCtx); err != nil {
			logger.Error(err)
			return nil, err
		}
		info = a.reader.Identity()
	}
	return &domain.GetInverterInfoResponse{
		Info: info,
	}, nil
}

func (a *InverterActor) getMetrics() (*domain.GetMetricsResponse, error) {
	reqCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	snapshot, err := a.reader.Refresh(reqCtx)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	return &domain.GetMetricsResponse{
		Snapshot: snapshot,
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
