package enasolar

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultStatusPage   = "/"
	DefaultSettingsPage = "settings.htm"

	DefaultTimeout          = 5 * time.Second
	DefaultFailureThreshold = 3
)

// ConnState is the client's connection health state.
type ConnState uint8

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateDegraded
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	default:
		return "disconnected"
	}
}

// ConnectionState tracks poll outcomes. It drives failure reporting and the
// decision whether identity must be (re)resolved; it holds no metric data.
type ConnectionState struct {
	State               ConnState
	LastSuccess         time.Time
	ConsecutiveFailures uint
	LastError           error
}

type Config struct {
	Host         string
	Port         uint
	StatusPage   string
	SettingsPage string
	// Timeout bounds each page fetch. Seconds-scale: the inverter's web
	// server is slow and DC powered, unreachable after sunset.
	Timeout time.Duration
	// FailureThreshold is the consecutive-failure count after which the
	// client reports itself disconnected.
	FailureThreshold uint
	// ReresolveIdentity discards the cached identity when the failure
	// threshold is crossed, forcing a settings page fetch on the next
	// successful reconnect. Off means identity is only re-read on an
	// explicit Connect call.
	ReresolveIdentity bool
	// StatusFields and IdentityFields override the built-in extraction
	// tables. Firmware-version specific; nil selects the defaults.
	StatusFields   []FieldSpec
	IdentityFields []FieldSpec
}

// Reader is the device-facing surface the rest of the application consumes.
type Reader interface {
	Connect(ctx context.Context) error
	Refresh(ctx context.Context) (*MetricsSnapshot, error)
	IsConnected() bool
	Identity() *InverterInfo
	LastSnapshot() *MetricsSnapshot
	State() ConnectionState
}

// Client scrapes one EnaSolar inverter's web interface. Not safe for
// concurrent use: a single logical flow per instance, scheduling belongs to
// the caller. Sub-minute polling trips the inverter's request-rate defense,
// after which it refuses connections until power cycled, so the client never
// retries on its own.
type Client struct {
	cfg            Config
	fetcher        *pageFetcher
	statusFields   []FieldSpec
	identityFields []FieldSpec

	identity *InverterInfo
	last     *MetricsSnapshot
	conn     ConnectionState

	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("enasolar: host is required")
	}
	if cfg.StatusPage == "" {
		cfg.StatusPage = DefaultStatusPage
	}
	if cfg.SettingsPage == "" {
		cfg.SettingsPage = DefaultSettingsPage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	statusFields := cfg.StatusFields
	if statusFields == nil {
		statusFields = DefaultStatusFields()
	}
	identityFields := cfg.IdentityFields
	if identityFields == nil {
		identityFields = DefaultIdentityFields()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:            cfg,
		fetcher:        newPageFetcher(cfg.Host, cfg.Port, &http.Client{Timeout: cfg.Timeout}),
		statusFields:   statusFields,
		identityFields: identityFields,
		logger:         logger.With(zap.String("inverter", cfg.Host)),
	}, nil
}

// Connect fetches the settings page and resolves the device identity. It
// does not start any polling loop. Calling Connect on an already connected
// client re-reads the identity.
func (c *Client) Connect(ctx context.Context) error {
	c.conn.State = StateConnecting
	if err := c.resolveIdentity(ctx); err != nil {
		c.recordFailure(err)
		return err
	}
	c.recordSuccess()
	c.logger.Debug("connected",
		zap.String("serial", c.identity.SerialNo),
		zap.String("model", c.identity.Model))
	return nil
}

// Refresh fetches the root status page and assembles a fresh metrics
// snapshot. Identity is resolved lazily if this is the first poll or a
// reconnect discarded it. On any failure no snapshot is produced; the
// previous snapshot stays available through LastSnapshot.
func (c *Client) Refresh(ctx context.Context) (*MetricsSnapshot, error) {
	if c.identity == nil {
		if c.conn.State == StateDisconnected {
			c.conn.State = StateConnecting
		}
		if err := c.resolveIdentity(ctx); err != nil {
			c.recordFailure(err)
			return nil, err
		}
	}

	page, err := c.fetcher.fetch(ctx, c.cfg.StatusPage)
	if err != nil {
		c.recordFailure(err)
		return nil, err
	}

	values, err := ExtractFields(page, c.statusFields)
	if err != nil {
		c.recordFailure(err)
		return nil, err
	}

	if state, ok := values[FieldOperatingState]; ok && state.Kind == KindInteger {
		values[FieldOperatingStateText] = TextValue(OperatingStateToString(state.Integer))
	}

	ts := time.Now()
	if c.last != nil && !ts.After(c.last.Timestamp) {
		// snapshot timestamps must strictly increase
		ts = c.last.Timestamp.Add(time.Nanosecond)
	}
	snapshot := &MetricsSnapshot{
		Timestamp: ts,
		Values:    values,
	}
	c.last = snapshot
	c.recordSuccess()
	return snapshot, nil
}

// IsConnected reports connection health: at least one successful poll and
// fewer consecutive failures than the configured threshold.
func (c *Client) IsConnected() bool {
	return !c.conn.LastSuccess.IsZero() && c.conn.ConsecutiveFailures < c.cfg.FailureThreshold
}

// Identity returns the cached device identity, nil before the first
// successful resolution.
func (c *Client) Identity() *InverterInfo {
	return c.identity
}

// LastSnapshot returns the last-known-good snapshot, nil before the first
// successful poll.
func (c *Client) LastSnapshot() *MetricsSnapshot {
	return c.last
}

func (c *Client) State() ConnectionState {
	return c.conn
}

func (c *Client) resolveIdentity(ctx context.Context) error {
	page, err := c.fetcher.fetch(ctx, c.cfg.SettingsPage)
	if err != nil {
		return err
	}
	values, err := ExtractFields(page, c.identityFields)
	if err != nil {
		return &IdentityUnavailableError{Err: err}
	}
	info := &InverterInfo{}
	info.SerialNo, _ = textField(values, FieldSerialNo)
	info.Model, _ = textField(values, FieldModel)
	info.FWVersion, _ = textField(values, FieldFWVersion)
	if v, ok := values[FieldRatedACPower]; ok {
		info.RatedACPowerKW, _ = v.Float64()
	}
	if v, ok := values[FieldRatedDCPower]; ok {
		info.RatedDCPowerKW, _ = v.Float64()
	}
	if info.SerialNo == "" || info.Model == "" {
		return &IdentityUnavailableError{Err: errors.New("empty serial number or model")}
	}
	c.identity = info
	return nil
}

func (c *Client) recordSuccess() {
	c.conn.State = StateConnected
	c.conn.LastSuccess = time.Now()
	c.conn.ConsecutiveFailures = 0
	c.conn.LastError = nil
}

func (c *Client) recordFailure(err error) {
	c.conn.ConsecutiveFailures++
	c.conn.LastError = err
	if c.conn.ConsecutiveFailures >= c.cfg.FailureThreshold {
		c.conn.State = StateDisconnected
		if c.cfg.ReresolveIdentity {
			// assume the inverter may have rebooted with new firmware
			c.identity = nil
		}
	} else if !c.conn.LastSuccess.IsZero() {
		c.conn.State = StateDegraded
	} else {
		// never connected, nothing to degrade from
		c.conn.State = StateDisconnected
	}
	c.logger.Debug("poll failed",
		zap.Uint("consecutive_failures", c.conn.ConsecutiveFailures),
		zap.Error(err))
}

func textField(values map[string]Value, name string) (string, bool) {
	v, ok := values[name]
	if !ok || v.Kind != KindText {
		return "", false
	}
	return v.Text, true
}

// ensure interface compliance
var _ Reader = (*Client)(nil)
