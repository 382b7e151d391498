package actor

import (
	"context"
	"errors"
	"testing"
	"time"

	"enasolar2mqtt/internal/core/domain"
	"enasolar2mqtt/internal/util/actorutil"
	"enasolar2mqtt/pkg/enasolar"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// failingInverterReader connects but fails every poll, like an inverter
// that shut down after sunset.
type failingInverterReader struct {
	refreshErr error
}

func (r *failingInverterReader) Connect(ctx context.Context) error {
	return nil
}

func (r *failingInverterReader) Refresh(ctx context.Context) (*enasolar.MetricsSnapshot, error) {
	return nil, r.refreshErr
}

func (r *failingInverterReader) IsConnected() bool {
	return false
}

func (r *failingInverterReader) Identity() *enasolar.InverterInfo {
	return nil
}

func (r *failingInverterReader) LastSnapshot() *enasolar.MetricsSnapshot {
	return nil
}

func (r *failingInverterReader) State() enasolar.ConnectionState {
	return enasolar.ConnectionState{
		State:               enasolar.StateDisconnected,
		ConsecutiveFailures: 1,
		LastError:           r.refreshErr,
	}
}

func TestGetInverterInfoActor(t *testing.T) {

	assert := assert.New(t)

	reader := enasolar.CreateTestInverterReader()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewInverterActor(reader, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetInverterInfoRequest{}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetInverterInfoResponse)

	assert.Equal("1512A00729", resp.Info.SerialNo, "inverter serial")
	assert.Equal("EnaSolar GT 2.0kW", resp.Info.Model, "inverter model")
	assert.Equal("V1.14", resp.Info.FWVersion, "inverter firmware")

	context.Stop(pid)

	as.Shutdown()
}

func TestGetMetricsActor(t *testing.T) {

	assert := assert.New(t)

	reader := enasolar.CreateTestInverterReader()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewInverterActor(reader, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetMetricsRequest{}

	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetMetricsResponse)

	power, ok := resp.Snapshot.Integer(enasolar.FieldOutputPower)
	assert.True(ok, "output power present")
	assert.True(power > 0, "output power bounds")

	stateText, ok := resp.Snapshot.Text(enasolar.FieldOperatingStateText)
	assert.True(ok, "operating state present")
	assert.Equal("Generating", stateText, "operating state text")

	context.Stop(pid)

	as.Shutdown()
}

func TestGetMetricsActorRefreshError(t *testing.T) {

	assert := assert.New(t)

	reader := &failingInverterReader{
		refreshErr: &enasolar.ConnectionError{
			URL: "http://-.-.-.-/",
			Err: errors.New("connection refused"),
		},
	}

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewInverterActor(reader, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	// the requester must get a typed error response, not a timeout
	result, err := context.RequestFuture(pid, domain.GetMetricsRequest{}, 12*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetMetricsResponse)

	assert.True(resp.HasResponseError(), "refresh failure propagated")
	var connErr *enasolar.ConnectionError
	assert.True(errors.As(resp.GetResponseError(), &connErr), "typed connection error preserved")
	assert.Nil(resp.Snapshot, "no snapshot on failed poll")

	// the actor must survive the failed poll and keep serving requests
	result, err = context.RequestFuture(pid, domain.GetConnectionStateRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	stateResp := result.(domain.GetConnectionStateResponse)
	assert.False(stateResp.Connected, "reader reports disconnected")

	context.Stop(pid)

	as.Shutdown()
}

func TestGetConnectionStateActor(t *testing.T) {

	assert := assert.New(t)

	reader := enasolar.CreateTestInverterReader()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewInverterActor(reader, logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	result, err := context.RequestFuture(pid, domain.GetConnectionStateRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetConnectionStateResponse)

	assert.True(resp.Connected, "connected")

	context.Stop(pid)

	as.Shutdown()
}
