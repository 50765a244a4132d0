package kettle

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultCacheTTL is how long a decoded status is served without a refill
	DefaultCacheTTL = 600 * time.Second

	// DefaultRetries is the number of fill attempts per refill
	DefaultRetries = 3

	// DefaultNotifyTimeout bounds every wait for a notification
	DefaultNotifyTimeout = 10 * time.Second

	// DefaultRetryDelay is the pause between failed fill attempts
	DefaultRetryDelay = 3 * time.Second

	// DefaultBackoffWindow is how long refills are suppressed after a
	// fill cycle exhausts its retries
	DefaultBackoffWindow = 5 * time.Minute
)

// Options configures a Client
type Options struct {
	// MAC is the kettle's address, e.g. "AA:BB:CC:DD:EE:FF"
	MAC string

	// ProductID is the numeric product id printed on the kettle base
	ProductID uint16

	// Token is the 12-byte session token; nil selects DefaultToken
	Token []byte

	// Interface selects the local Bluetooth adapter (e.g. "hci0"); empty uses the default
	Interface string

	// CacheTTL is how long a reading is served without a refill. Zero selects
	// DefaultCacheTTL; use Status(false) to bypass the cache.
	CacheTTL      time.Duration
	Retries       int
	NotifyTimeout time.Duration
	RetryDelay    time.Duration
	BackoffWindow time.Duration

	// Logger receives structured debug output; nil disables logging
	Logger *zap.Logger

	// Events receives telemetry; nil discards it
	Events EventSink

	// Clock is used for staleness, waits and retry delays; nil uses SystemClock
	Clock Clock
}

func (o *Options) applyDefaults() {
	if o.CacheTTL == 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.Retries <= 0 {
		o.Retries = DefaultRetries
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = DefaultNotifyTimeout
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.BackoffWindow <= 0 {
		o.BackoffWindow = DefaultBackoffWindow
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Events == nil {
		o.Events = NopSink{}
	}
	if o.Clock == nil {
		o.Clock = SystemClock
	}
}

// Client talks to one kettle. It serves status readings from a cache and
// refills the cache over the Transport when the reading is stale.
//
// All transport activity is serialized by a single lock, so concurrent
// callers never run overlapping handshakes against the kettle.
type Client struct {
	identity  Identity
	transport Transport
	iface     string

	ttl           time.Duration
	retries       int
	notifyTimeout time.Duration
	retryDelay    time.Duration
	backoffWindow time.Duration

	logger *zap.Logger
	events EventSink
	clock  Clock

	auth *authenticator

	// lock guards the refill decision, every fill attempt and all other
	// transport use. It is held while waiting for notifications.
	lock      sync.Mutex
	connected bool

	// mu guards the snapshot; the dispatcher takes it from the transport's goroutine.
	mu       sync.Mutex
	status   *Status
	lastRead time.Time

	statusSignal chan error // single slot: nil on decoded status, decode error otherwise
}

// New creates a Client for the kettle described by opts and registers its
// notification dispatcher with t.
func New(t Transport, opts Options) (*Client, error) {
	if t == nil {
		return nil, NewValidationError("transport is required")
	}
	if opts.CacheTTL < 0 {
		return nil, NewValidationError(fmt.Sprintf("cache ttl must not be negative, got %s", opts.CacheTTL))
	}

	id, err := NewIdentity(opts.MAC, opts.ProductID, opts.Token)
	if err != nil {
		return nil, err
	}

	opts.applyDefaults()
	logger := opts.Logger.With(zap.String("address", id.Address()))

	logger.Debug("Init Mi Kettle",
		zap.Uint16("product_id", id.ProductID()),
		zap.Duration("cache_ttl", opts.CacheTTL),
		zap.Int("retries", opts.Retries),
	)

	c := &Client{
		identity:      id,
		transport:     t,
		iface:         opts.Interface,
		ttl:           opts.CacheTTL,
		retries:       opts.Retries,
		notifyTimeout: opts.NotifyTimeout,
		retryDelay:    opts.RetryDelay,
		backoffWindow: opts.BackoffWindow,
		logger:        logger,
		events:        opts.Events,
		clock:         opts.Clock,
		statusSignal:  make(chan error, 1),
	}
	c.auth = newAuthenticator(id, t, opts.Clock, logger, opts.Events, opts.NotifyTimeout)
	t.SetNotificationHandler(c.HandleNotification)

	return c, nil
}

// Address returns the kettle's MAC address
func (c *Client) Address() string {
	return c.identity.Address()
}

// Identity returns the session identity
func (c *Client) Identity() Identity {
	return c.identity
}

// AuthState returns the current handshake state
func (c *Client) AuthState() AuthState {
	return c.auth.State()
}

// Status returns the kettle status, refilling the cache when it is stale or
// when allowCached is false. A NoData error is returned when no status could
// be obtained.
func (c *Client) Status(allowCached bool) (Status, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.isStale(allowCached) {
		c.fillCache()
	} else {
		c.logger.Debug("Using cache",
			zap.Duration("age", c.clock.Now().Sub(c.LastRead())),
			zap.Duration("ttl", c.ttl),
		)
	}

	// The snapshot is read before c.lock is released
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		return Status{}, NewNoDataError(c.identity.Address())
	}
	return *c.status, nil
}

// Parameter returns a single status field by name
func (c *Client) Parameter(p Parameter, allowCached bool) (any, error) {
	s, err := c.Status(allowCached)
	if err != nil {
		return nil, err
	}
	return s.Value(p)
}

// isStale reports whether a refill is due. Caller holds c.lock.
func (c *Client) isStale(allowCached bool) bool {
	if !allowCached {
		return true
	}
	last := c.LastRead()
	if last.IsZero() {
		return true
	}
	return c.clock.Now().Sub(last) > c.ttl
}

// fillCache runs one fill cycle. Caller holds c.lock.
//
// Transport faults drop the connection and retry at once. Any other failure
// sleeps RetryDelay before the next attempt; when the last attempt fails the
// last-read stamp is moved so the cache goes stale again only after
// BackoffWindow.
func (c *Client) fillCache() {
	c.logger.Debug("Filling cache with new sensor data")

	c.mu.Lock()
	c.status = nil
	c.mu.Unlock()

	for i := 0; i < c.retries; i++ {
		attempt := i + 1
		c.logger.Debug("Connection attempt",
			zap.Int("attempt", attempt),
			zap.Int("retries", c.retries),
		)
		c.events.Record(Event{Type: EventFillAttempt, Time: c.clock.Now(), Address: c.identity.Address(), Attempt: attempt})

		err := c.fillAttempt()
		if err == nil {
			c.events.Record(Event{Type: EventFillSuccess, Time: c.clock.Now(), Address: c.identity.Address(), Attempt: attempt})
			return
		}

		if IsTransportFault(err) {
			c.logger.Debug("Transport fault", zap.Int("attempt", attempt), zap.Error(err))
			c.events.Record(Event{Type: EventTransportFault, Time: c.clock.Now(), Address: c.identity.Address(), Attempt: attempt, Err: err})
			c.resetConnection()
			continue
		}

		c.logger.Debug("Error", zap.Int("attempt", attempt), zap.Error(err))
		c.events.Record(Event{Type: EventAttemptFailed, Time: c.clock.Now(), Address: c.identity.Address(), Attempt: attempt, Err: err})

		if i == c.retries-1 {
			c.mu.Lock()
			c.lastRead = c.clock.Now().Add(-c.ttl).Add(c.backoffWindow)
			c.mu.Unlock()
			c.logger.Warn("Kettle unavailable, backing off",
				zap.Int("attempts", attempt),
				zap.Duration("backoff", c.backoffWindow),
				zap.Error(err),
			)
			c.events.Record(Event{Type: EventBackoffArmed, Time: c.clock.Now(), Address: c.identity.Address(), Attempt: attempt, Err: err})
			return
		}
		c.clock.Sleep(c.retryDelay)
	}
}

// fillAttempt connects, authenticates, subscribes to status notifications
// and waits for one to be decoded. Caller holds c.lock.
func (c *Client) fillAttempt() error {
	c.logger.Debug("Connect")
	if err := c.connect(); err != nil {
		return err
	}

	c.logger.Debug("Auth")
	if err := c.auth.Authenticate(); err != nil {
		return err
	}

	// The kettle may notify before WriteDescriptor returns
	drain(c.statusSignal)

	c.logger.Debug("Subscribe")
	if err := c.subscribeToData(); err != nil {
		return err
	}

	c.logger.Debug("Wait for data")
	decodeErr, ok := await(c.clock, c.statusSignal, c.notifyTimeout)
	if !ok {
		c.events.Record(Event{Type: EventTimeout, Time: c.clock.Now(), Address: c.identity.Address(), Handle: HandleStatus})
		return NewTimeoutError(fmt.Sprintf("no status notification from %s within %s", c.identity.Address(), c.notifyTimeout))
	}
	return decodeErr
}

// connect opens the transport connection if needed. Caller holds c.lock.
func (c *Client) connect() error {
	if c.connected {
		return nil
	}
	c.logger.Debug("Attempt to connect, because cached connection is not yet available")
	if err := c.transport.Connect(c.identity.Address(), c.iface); err != nil {
		return err
	}
	c.connected = true
	return nil
}

// resetConnection disconnects and forgets the handshake. Caller holds c.lock.
func (c *Client) resetConnection() {
	if c.connected {
		if err := c.transport.Disconnect(); err != nil {
			c.logger.Debug("Disconnect failed", zap.Error(err))
		}
		c.connected = false
	}
	c.auth.Reset()
}

func (c *Client) subscribeToData() error {
	descriptors, err := c.transport.DescriptorsForService(DataServiceUUID)
	if err != nil {
		return err
	}
	if len(descriptors) <= StatusNotifyDescriptorIndex {
		return NewMissingCharacteristicError("status notify descriptor", HandleStatus, c.identity.Address())
	}
	return c.transport.WriteDescriptor(descriptors[StatusNotifyDescriptorIndex], SubscribeValue, true)
}

// ClearCache forgets the cached status, forcing the next read to refill
func (c *Client) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = nil
	c.lastRead = time.Time{}
}

// CacheAvailable reports whether a decoded status is cached
func (c *Client) CacheAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status != nil
}

// LastRead returns when the cache was last stamped
func (c *Client) LastRead() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRead
}

// Close disconnects from the kettle
func (c *Client) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.resetConnection()
	return nil
}

// Action returns the cached action
func (c *Client) Action() (Action, error) {
	s, err := c.Status(true)
	return s.Action, err
}

// Mode returns the cached mode
func (c *Client) Mode() (Mode, error) {
	s, err := c.Status(true)
	return s.Mode, err
}

// SetTemperature returns the cached target temperature in °C
func (c *Client) SetTemperature() (int, error) {
	s, err := c.Status(true)
	return s.SetTemperature, err
}

// CurrentTemperature returns the cached water temperature in °C
func (c *Client) CurrentTemperature() (int, error) {
	s, err := c.Status(true)
	return s.CurrentTemperature, err
}

// KeepWarmType returns the cached keep-warm type
func (c *Client) KeepWarmType() (KeepWarmType, error) {
	s, err := c.Status(true)
	return s.KeepWarmType, err
}

// CurrentKeepWarmTime returns the cached minutes spent keeping warm
func (c *Client) CurrentKeepWarmTime() (int, error) {
	s, err := c.Status(true)
	return s.CurrentKeepWarmTime, err
}

// ExtendedWarmUp returns the cached extended warm up flag
func (c *Client) ExtendedWarmUp() (ExtendedWarmUp, error) {
	s, err := c.Status(true)
	return s.ExtendedWarmUp, err
}

// SetKeepWarmTime returns the cached keep-warm duration in half hours
func (c *Client) SetKeepWarmTime() (int, error) {
	s, err := c.Status(true)
	return s.SetKeepWarmTime, err
}
