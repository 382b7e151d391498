package enasolar

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const settingsPageFixture = `<html><head><title>Inverter Settings</title>
<script language="JavaScript" type="text/javascript">
var SerialNo="1512A00729";
var Model="EnaSolar GT 2.0kW";
var FWVersion="V1.14";
var Capacity="2.0";
var MaxDCPower="2.1";
</script></head><body></body></html>`

type fixtureServer struct {
	*httptest.Server
	failing      atomic.Bool
	statusPage   atomic.Pointer[string]
	settingsHits atomic.Int64
}

func newFixtureServer(t *testing.T) *fixtureServer {
	t.Helper()
	fs := &fixtureServer{}
	status := statusPageFixture
	fs.statusPage.Store(&status)
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fs.failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Path {
		case "/":
			_, _ = w.Write([]byte(*fs.statusPage.Load()))
		case "/settings.htm":
			fs.settingsHits.Add(1)
			_, _ = w.Write([]byte(settingsPageFixture))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fixtureServer) clientConfig() Config {
	return Config{
		Host: strings.TrimPrefix(fs.URL, "http://"),
	}
}

func TestClientConnectResolvesIdentity(t *testing.T) {

	assert := assert.New(t)

	fs := newFixtureServer(t)
	client, err := NewClient(fs.clientConfig(), nil)
	assert.NoError(err)

	err = client.Connect(context.Background())
	assert.NoError(err)
	assert.True(client.IsConnected())

	info := client.Identity()
	assert.NotNil(info)
	assert.Equal("1512A00729", info.SerialNo)
	assert.Equal("EnaSolar GT 2.0kW", info.Model)
	assert.Equal("V1.14", info.FWVersion)
	assert.InDelta(2.0, info.RatedACPowerKW, 1e-9)
	assert.InDelta(2.1, info.RatedDCPowerKW, 1e-9)
}

func TestClientRefreshSnapshot(t *testing.T) {

	assert := assert.New(t)

	fs := newFixtureServer(t)
	client, err := NewClient(fs.clientConfig(), nil)
	assert.NoError(err)

	snapshot, err := client.Refresh(context.Background())
	assert.NoError(err)
	assert.NotNil(snapshot)

	power, ok := snapshot.Integer(FieldOutputPower)
	assert.True(ok)
	assert.Equal(int64(3500), power)

	today, ok := snapshot.Float(FieldEnergyToday)
	assert.True(ok)
	assert.InDelta(12.3, today, 1e-9)

	stateText, ok := snapshot.Text(FieldOperatingStateText)
	assert.True(ok)
	assert.Equal("Generating", stateText)

	// identity was resolved lazily on first poll
	assert.NotNil(client.Identity())
	assert.Equal(int64(1), fs.settingsHits.Load())

	// second poll reuses the cached identity
	_, err = client.Refresh(context.Background())
	assert.NoError(err)
	assert.Equal(int64(1), fs.settingsHits.Load())
}

func TestClientRefreshMissingRequiredField(t *testing.T) {

	assert := assert.New(t)

	fs := newFixtureServer(t)
	broken := `<html><script>var InputVoltage="243";</script></html>`
	fs.statusPage.Store(&broken)

	client, err := NewClient(fs.clientConfig(), nil)
	assert.NoError(err)

	snapshot, err := client.Refresh(context.Background())
	assert.Nil(snapshot)

	var extErr *ExtractionError
	assert.True(errors.As(err, &extErr))
	assert.Nil(client.LastSnapshot())
}

func TestClientRefreshKeepsLastKnownGood(t *testing.T) {

	assert := assert.New(t)

	fs := newFixtureServer(t)
	client, err := NewClient(fs.clientConfig(), nil)
	assert.NoError(err)

	first, err := client.Refresh(context.Background())
	assert.NoError(err)

	fs.failing.Store(true)
	snapshot, err := client.Refresh(context.Background())
	assert.Nil(snapshot)

	var connErr *ConnectionError
	assert.True(errors.As(err, &connErr))
	assert.Equal(http.StatusServiceUnavailable, connErr.StatusCode)
	assert.Equal(first, client.LastSnapshot())
}

func TestClientRefreshMonotonicTimestamps(t *testing.T) {

	assert := assert.New(t)

	fs := newFixtureServer(t)
	client, err := NewClient(fs.clientConfig(), nil)
	assert.NoError(err)

	var prev time.Time
	for i := 0; i < 5; i++ {
		snapshot, err := client.Refresh(context.Background())
		assert.NoError(err)
		assert.True(snapshot.Timestamp.After(prev), "timestamp must increase")
		prev = snapshot.Timestamp
	}
}

func TestClientFailureThreshold(t *testing.T) {

	assert := assert.New(t)

	fs := newFixtureServer(t)
	cfg := fs.clientConfig()
	cfg.FailureThreshold = 2
	client, err := NewClient(cfg, nil)
	assert.NoError(err)

	_, err = client.Refresh(context.Background())
	assert.NoError(err)
	assert.True(client.IsConnected())
	assert.Equal(StateConnected, client.State().State)

	fs.failing.Store(true)

	_, err = client.Refresh(context.Background())
	assert.Error(err)
	assert.True(client.IsConnected(), "one failure leaves the client degraded, not disconnected")
	assert.Equal(StateDegraded, client.State().State)

	_, err = client.Refresh(context.Background())
	assert.Error(err)
	assert.False(client.IsConnected())
	assert.Equal(StateDisconnected, client.State().State)
	assert.Equal(uint(2), client.State().ConsecutiveFailures)

	fs.failing.Store(false)

	_, err = client.Refresh(context.Background())
	assert.NoError(err)
	assert.True(client.IsConnected())
	assert.Equal(uint(0), client.State().ConsecutiveFailures)
}

func TestClientReresolveIdentityPolicy(t *testing.T) {

	assert := assert.New(t)

	fs := newFixtureServer(t)
	cfg := fs.clientConfig()
	cfg.FailureThreshold = 1
	cfg.ReresolveIdentity = true
	client, err := NewClient(cfg, nil)
	assert.NoError(err)

	_, err = client.Refresh(context.Background())
	assert.NoError(err)
	assert.Equal(int64(1), fs.settingsHits.Load())

	fs.failing.Store(true)
	_, err = client.Refresh(context.Background())
	assert.Error(err)
	assert.Nil(client.Identity(), "crossing the threshold discards the cached identity")

	fs.failing.Store(false)
	_, err = client.Refresh(context.Background())
	assert.NoError(err)
	assert.Equal(int64(2), fs.settingsHits.Load())
	assert.NotNil(client.Identity())
}

func TestClientConnectIdentityUnavailable(t *testing.T) {

	assert := assert.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><script>var SerialNo="";</script></html>`))
	}))
	defer server.Close()

	client, err := NewClient(Config{Host: strings.TrimPrefix(server.URL, "http://")}, nil)
	assert.NoError(err)

	err = client.Connect(context.Background())
	assert.Error(err)

	var idErr *IdentityUnavailableError
	assert.True(errors.As(err, &idErr))
	assert.Nil(client.Identity())
	assert.False(client.IsConnected())
}

func TestClientRefusedConnection(t *testing.T) {

	assert := assert.New(t)

	// reserve a port and close it so the connection is refused
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	host := strings.TrimPrefix(server.URL, "http://")
	server.Close()

	client, err := NewClient(Config{Host: host, Timeout: time.Second}, nil)
	assert.NoError(err)

	_, err = client.Refresh(context.Background())

	var connErr *ConnectionError
	assert.True(errors.As(err, &connErr))
}

func TestClientFailureBeforeFirstSuccessReportsDisconnected(t *testing.T) {

	assert := assert.New(t)

	fs := newFixtureServer(t)
	fs.failing.Store(true)

	cfg := fs.clientConfig()
	cfg.FailureThreshold = 3

	client, err := NewClient(cfg, nil)
	assert.NoError(err)

	// one failure, below threshold, never connected
	_, err = client.Refresh(context.Background())
	assert.Error(err)

	assert.Equal(StateDisconnected, client.State().State, "never-connected client is disconnected, not degraded")
	assert.False(client.IsConnected())

	// recovery still works from that state
	fs.failing.Store(false)
	_, err = client.Refresh(context.Background())
	assert.NoError(err)
	assert.Equal(StateConnected, client.State().State)
	assert.True(client.IsConnected())
}
