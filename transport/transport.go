// Package transport owns the single live connection to the chat server.
// One goroutine (Run) drives every state transition, timer reaction and
// handler callback; helpers only post events back to it.
package transport

import (
	"c2c-client/contract"
	"c2c-client/domain"
	"c2c-client/domain/event"
	"c2c-client/protocol"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	DefaultHeartbeatInterval = 10 * time.Second
	DefaultBeaconTimeout     = 2 * time.Second
	eventBufferSize          = 64
)

type Config struct {
	HeartbeatInterval time.Duration
	DialTimeout       time.Duration
	BeaconTimeout     time.Duration
	Policy            ReconnectPolicy
}

func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: DefaultHeartbeatInterval,
		DialTimeout:       DefaultDialTimeout,
		BeaconTimeout:     DefaultBeaconTimeout,
		Policy:            DefaultReconnectPolicy(),
	}
}

type Option func(*Transport)

func WithClock(c clock.Clock) Option {
	return func(t *Transport) { t.clock = c }
}

func WithDiagnostics(d contract.Diagnostics) Option {
	return func(t *Transport) { t.diag = d }
}

// WithLeaveNotifier sets the out-of-band leave used when no connection is open.
func WithLeaveNotifier(n contract.LeaveNotifier) Option {
	return func(t *Transport) { t.notifier = n }
}

func WithLogger(log *slog.Logger) Option {
	return func(t *Transport) { t.log = log }
}

type commandKind int

const (
	connectCommand commandKind = iota
	disconnectCommand
)

type command struct {
	kind     commandKind
	identity domain.SessionIdentity
}

// Events posted by helper goroutines. gen ties each one to a dial.
type dialResult struct {
	gen  uint64
	conn contract.Conn
	err  error
}

type frameReceived struct {
	gen  uint64
	data []byte
}

type connClosed struct {
	gen uint64
	err error
}

// Transport implements the connection lifecycle:
//
//	Idle -> Connecting -> Open -> Closed -> (timer) -> Connecting ...
//	Open -> Closing -> Idle on Disconnect
//	Closed -> Idle once the reconnect attempts are exhausted
type Transport struct {
	cfg      Config
	dialer   contract.Dialer
	handler  contract.TransportHandler
	clock    clock.Clock
	diag     contract.Diagnostics
	notifier contract.LeaveNotifier
	log      *slog.Logger

	qmu   sync.Mutex
	queue []command
	wake  chan struct{}
	// set by Disconnect until a later Connect is accepted
	disconnecting atomic.Bool

	events chan any

	mu       sync.RWMutex
	state    domain.ConnectionState
	conn     contract.Conn
	identity domain.SessionIdentity
	attempt  int

	// Owned by the Run goroutine.
	gen            uint64
	cancelDial     context.CancelFunc
	reconnect      *clock.Timer
	heartbeat      *clock.Ticker
	joined         bool
	leaveDelivered bool
	deferred       *domain.SessionIdentity
	beacons        sync.WaitGroup
}

func New(cfg Config, dialer contract.Dialer, handler contract.TransportHandler, opts ...Option) *Transport {
	defaults := DefaultConfig()
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.BeaconTimeout <= 0 {
		cfg.BeaconTimeout = defaults.BeaconTimeout
	}
	cfg.Policy = cfg.Policy.normalize()

	t := &Transport{
		cfg:     cfg,
		dialer:  dialer,
		handler: handler,
		clock:   clock.New(),
		diag:    nopDiagnostics{},
		log:     slog.New(slog.DiscardHandler),
		wake:    make(chan struct{}, 1),
		events:  make(chan any, eventBufferSize),
		state:   domain.StateIdle,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Connect asks for a connection. It reports false when a connection is
// already in progress or open and no Disconnect is pending; the request is
// then ignored. A Connect following a Disconnect is always accepted and runs
// once the teardown has finished.
// The attempt counter is left untouched.
func (t *Transport) Connect(identity domain.SessionIdentity) bool {
	state := t.State()
	if state != domain.StateIdle && state != domain.StateClosed && !t.disconnecting.CompareAndSwap(true, false) {
		return false
	}
	t.enqueue(command{kind: connectCommand, identity: identity})
	return true
}

// Disconnect tears the session down and never leads to a reconnect.
func (t *Transport) Disconnect() {
	t.disconnecting.Store(true)
	t.enqueue(command{kind: disconnectCommand})
}

// Send writes env when Open. False means "not currently connected"; nothing is retried.
func (t *Transport) Send(env protocol.Envelope) bool {
	t.mu.RLock()
	state, conn := t.state, t.conn
	t.mu.RUnlock()

	if state != domain.StateOpen || conn == nil {
		return false
	}
	if err := conn.WriteJSON(env); err != nil {
		t.report(slog.LevelWarn, event.SendFailedCode, "write failed", "type", env.Type, "error", err)
		return false
	}
	return true
}

func (t *Transport) SendChat(text string) bool {
	t.mu.RLock()
	roomID := t.identity.RoomID
	t.mu.RUnlock()
	return t.Send(protocol.Chat(string(roomID), text))
}

func (t *Transport) State() domain.ConnectionState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Transport) Attempt() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.attempt
}

// Run is the transport loop. It returns when ctx is cancelled, after a
// final teardown and a bounded wait for any leave beacon still in flight.
func (t *Transport) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			t.shutdown()
			return nil
		case <-t.wake:
			for _, cmd := range t.drain() {
				t.handleCommand(ctx, cmd)
			}
		case evt := <-t.events:
			t.handleEvent(ctx, evt)
		case <-t.reconnectC():
			t.reconnect = nil
			if t.State() == domain.StateClosed {
				t.dial(ctx)
			}
		case <-t.heartbeatC():
			t.Send(protocol.Ping())
		}
	}
}

func (t *Transport) enqueue(cmd command) {
	t.qmu.Lock()
	t.queue = append(t.queue, cmd)
	t.qmu.Unlock()
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

func (t *Transport) drain() []command {
	t.qmu.Lock()
	defer t.qmu.Unlock()
	cmds := t.queue
	t.queue = nil
	return cmds
}

func (t *Transport) handleCommand(ctx context.Context, cmd command) {
	t.log.Debug("Transport command", "cmd", cmd.String())
	switch cmd.kind {
	case connectCommand:
		t.connect(ctx, cmd.identity)
	case disconnectCommand:
		t.disconnect()
	}
}

func (t *Transport) connect(ctx context.Context, identity domain.SessionIdentity) {
	state := t.State()
	if state == domain.StateClosing {
		t.log.Debug("Connect deferred until the connection is closed")
		t.deferred = &identity
		return
	}
	if state != domain.StateIdle && state != domain.StateClosed {
		t.log.Debug("Connect ignored", "state", state)
		return
	}
	t.disconnecting.Store(false)
	t.stopReconnect()

	t.mu.Lock()
	t.identity = identity
	t.mu.Unlock()
	t.dial(ctx)
}

func (t *Transport) dial(ctx context.Context) {
	t.gen++
	gen := t.gen
	dialCtx, cancel := context.WithTimeout(ctx, t.cfg.DialTimeout)
	t.cancelDial = cancel

	t.mu.RLock()
	identity := t.identity
	t.mu.RUnlock()

	t.transition(domain.StateConnecting, event.Lifecycle{})

	go func() {
		conn, err := t.dialer.Dial(dialCtx, identity)
		t.post(ctx, dialResult{gen: gen, conn: conn, err: err})
	}()
}

// post hands an event to the loop, or drops it once the loop is gone.
func (t *Transport) post(ctx context.Context, evt any) {
	select {
	case t.events <- evt:
	case <-ctx.Done():
		if res, ok := evt.(dialResult); ok && res.conn != nil {
			_ = res.conn.Close()
		}
	}
}

func (t *Transport) handleEvent(ctx context.Context, evt any) {
	switch e := evt.(type) {
	case dialResult:
		t.onDialResult(ctx, e)
	case frameReceived:
		t.onFrame(e)
	case connClosed:
		t.onClosed(ctx, e)
	}
}

func (t *Transport) onDialResult(ctx context.Context, res dialResult) {
	if res.gen != t.gen || t.State() != domain.StateConnecting {
		if res.conn != nil {
			_ = res.conn.Close()
		}
		return
	}
	t.stopDial()

	if res.err != nil {
		t.report(slog.LevelWarn, event.DialFailedCode, "dial failed", "error", res.err)
		t.fail(res.err)
		return
	}

	t.mu.Lock()
	t.conn = res.conn
	t.attempt = 0
	identity := t.identity
	t.mu.Unlock()

	if err := res.conn.WriteJSON(protocol.Join(string(identity.RoomID), identity.ParticipantID)); err != nil {
		t.report(slog.LevelWarn, event.SendFailedCode, "join write failed", "error", err)
	}
	t.joined = true
	t.leaveDelivered = false

	t.startHeartbeat()
	go t.read(ctx, res.gen, res.conn)

	t.transition(domain.StateOpen, event.Lifecycle{})
}

func (t *Transport) read(ctx context.Context, gen uint64, conn contract.Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			t.post(ctx, connClosed{gen: gen, err: err})
			return
		}
		t.post(ctx, frameReceived{gen: gen, data: data})
	}
}

func (t *Transport) onFrame(f frameReceived) {
	if f.gen != t.gen || t.State() != domain.StateOpen {
		t.report(slog.LevelDebug, event.FrameDroppedCode, "frame outside open connection dropped")
		return
	}
	env, err := protocol.Decode(f.data)
	if err != nil {
		t.report(slog.LevelWarn, event.MalformedFrameCode, "inbound frame dropped", "error", err, "size", len(f.data))
		return
	}
	t.handler.OnEnvelope(env)
}

func (t *Transport) onClosed(ctx context.Context, c connClosed) {
	if c.gen != t.gen {
		return
	}
	switch t.State() {
	case domain.StateClosing:
		t.releaseConn()
		t.transition(domain.StateIdle, event.Lifecycle{})
		if identity := t.deferred; identity != nil {
			t.deferred = nil
			t.connect(ctx, *identity)
		}
	case domain.StateOpen:
		t.stopHeartbeat()
		t.releaseConn()
		t.report(slog.LevelWarn, event.UnexpectedCloseCode, "connection lost", "error", c.err)
		t.fail(c.err)
	}
}

// fail moves to Closed after a dial error or an unexpected close and either
// schedules the next attempt or gives up.
func (t *Transport) fail(cause error) {
	t.mu.Lock()
	t.attempt++
	attempt := t.attempt
	t.mu.Unlock()

	if t.cfg.Policy.Exhausted(attempt) {
		t.transition(domain.StateClosed, event.Lifecycle{Err: cause})
		t.report(slog.LevelError, event.ReconnectExhaustedCode, "reconnect attempts exhausted", "attempt", attempt)
		t.transition(domain.StateIdle, event.Lifecycle{Exhausted: true, Err: cause})
		return
	}

	delay := t.cfg.Policy.Delay(attempt)
	t.stopReconnect()
	t.reconnect = t.clock.Timer(delay)
	t.report(slog.LevelInfo, event.ReconnectScheduledCode, "reconnect scheduled", "attempt", attempt, "delay", delay)
	t.transition(domain.StateClosed, event.Lifecycle{RetryIn: delay, Err: cause})
}

// disconnect sends at most one leave per teardown: the protocol leave when
// Open, the HTTP beacon otherwise.
func (t *Transport) disconnect() {
	t.deferred = nil
	switch t.State() {
	case domain.StateOpen:
		t.sendLeave()
		t.stopHeartbeat()
		t.transition(domain.StateClosing, event.Lifecycle{})
		t.mu.RLock()
		conn := t.conn
		t.mu.RUnlock()
		if conn != nil {
			_ = conn.Close()
		}
	case domain.StateConnecting:
		t.stopDial()
		t.gen++
		t.transition(domain.StateIdle, event.Lifecycle{})
		t.fireBeacon()
	case domain.StateClosed:
		t.stopReconnect()
		t.transition(domain.StateIdle, event.Lifecycle{})
		t.fireBeacon()
	case domain.StateIdle:
		t.fireBeacon()
	case domain.StateClosing:
	}
}

func (t *Transport) sendLeave() {
	t.mu.RLock()
	conn, roomID := t.conn, t.identity.RoomID
	t.mu.RUnlock()

	if conn == nil {
		return
	}
	if err := conn.WriteJSON(protocol.Leave(string(roomID))); err != nil {
		t.report(slog.LevelWarn, event.SendFailedCode, "leave write failed", "error", err)
	}
	t.leaveDelivered = true
}

func (t *Transport) fireBeacon() {
	if !t.joined || t.leaveDelivered || t.notifier == nil {
		return
	}
	t.leaveDelivered = true

	t.mu.RLock()
	identity := t.identity
	t.mu.RUnlock()

	t.beacons.Add(1)
	go func() {
		defer t.beacons.Done()
		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.BeaconTimeout)
		defer cancel()
		if err := t.notifier.NotifyLeave(ctx, identity.RoomID, identity.ParticipantID); err != nil {
			t.report(slog.LevelWarn, event.LeaveBeaconFailedCode, "leave beacon failed", "room", identity.RoomID, "error", err)
		}
	}()
}

// shutdown is the final teardown when the loop stops.
func (t *Transport) shutdown() {
	t.stopReconnect()
	t.stopHeartbeat()

	switch t.State() {
	case domain.StateOpen:
		t.sendLeave()
		t.transition(domain.StateClosing, event.Lifecycle{})
		t.releaseConn()
		t.transition(domain.StateIdle, event.Lifecycle{})
	case domain.StateClosing:
		t.releaseConn()
		t.transition(domain.StateIdle, event.Lifecycle{})
	case domain.StateConnecting, domain.StateClosed:
		t.stopDial()
		t.gen++
		t.transition(domain.StateIdle, event.Lifecycle{})
		t.fireBeacon()
	case domain.StateIdle:
		t.fireBeacon()
	}

	done := make(chan struct{})
	go func() {
		t.beacons.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(t.cfg.BeaconTimeout):
		t.log.Warn("Leave beacon still pending at shutdown")
	}
}

func (t *Transport) transition(to domain.ConnectionState, evt event.Lifecycle) {
	t.mu.Lock()
	from := t.state
	t.state = to
	attempt := t.attempt
	t.mu.Unlock()

	evt.From, evt.To, evt.Attempt = from, to, attempt
	t.log.Debug("Transport state changed", "from", from, "to", to, "attempt", attempt)
	t.handler.OnStateChange(evt)
}

func (t *Transport) releaseConn() {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (t *Transport) startHeartbeat() {
	t.stopHeartbeat()
	t.heartbeat = t.clock.Ticker(t.cfg.HeartbeatInterval)
}

func (t *Transport) stopHeartbeat() {
	if t.heartbeat != nil {
		t.heartbeat.Stop()
		t.heartbeat = nil
	}
}

func (t *Transport) stopReconnect() {
	if t.reconnect != nil {
		t.reconnect.Stop()
		t.reconnect = nil
	}
}

func (t *Transport) stopDial() {
	if t.cancelDial != nil {
		t.cancelDial()
		t.cancelDial = nil
	}
}

// nil channels block forever, which disables the select case.
func (t *Transport) reconnectC() <-chan time.Time {
	if t.reconnect == nil {
		return nil
	}
	return t.reconnect.C
}

func (t *Transport) heartbeatC() <-chan time.Time {
	if t.heartbeat == nil {
		return nil
	}
	return t.heartbeat.C
}

func (t *Transport) report(level slog.Level, code event.DiagnosticCode, msg string, attrs ...any) {
	t.diag.Report(event.Diagnostic{Level: level, Code: code, Message: msg, Attrs: attrs})
}

type nopDiagnostics struct{}

func (nopDiagnostics) Report(event.Diagnostic) {}

func (c command) String() string {
	switch c.kind {
	case connectCommand:
		return fmt.Sprintf("connect(%s)", c.identity.RoomID)
	default:
		return "disconnect"
	}
}
