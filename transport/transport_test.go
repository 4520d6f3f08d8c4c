package transport

import (
	"c2c-client/domain"
	"c2c-client/domain/event"
	"c2c-client/protocol"
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

var identity = domain.NewSessionIdentity("room-1", "alice")

type harness struct {
	transport *Transport
	handler   *recorder
	dialer    *fakeDialer
	clock     *clock.Mock
	diag      *diagRecorder
	notifier  *fakeNotifier
	cancel    context.CancelFunc
	done      chan struct{}
}

func newHarness(t *testing.T, dialer *fakeDialer) *harness {
	t.Helper()
	h := &harness{
		handler:  &recorder{},
		dialer:   dialer,
		clock:    clock.NewMock(),
		diag:     &diagRecorder{},
		notifier: &fakeNotifier{},
		done:     make(chan struct{}),
	}
	h.transport = New(DefaultConfig(), dialer, h.handler,
		WithClock(h.clock),
		WithDiagnostics(h.diag),
		WithLeaveNotifier(h.notifier),
	)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		_ = h.transport.Run(ctx)
		close(h.done)
	}()
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.cancel()
	<-h.done
}

func (h *harness) requireState(t *testing.T, state domain.ConnectionState) {
	t.Helper()
	require.Eventually(t, func() bool { return h.transport.State() == state }, waitFor, tick,
		"state is %s, want %s", h.transport.State(), state)
}

func (h *harness) open(t *testing.T) *fakeConn {
	t.Helper()
	require.True(t, h.transport.Connect(identity))
	h.requireState(t, domain.StateOpen)
	return h.dialer.Last()
}

func TestTransport_ConnectSendsJoinFirst(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, &fakeDialer{})

	// When the transport connects
	conn := h.open(t)

	// Then JOIN is the first frame and the attempt counter is zero
	req.Equal([]protocol.Envelope{protocol.Join("room-1", "alice")}, conn.Written())
	req.Equal(0, h.transport.Attempt())
	req.Equal([]domain.ConnectionState{domain.StateConnecting, domain.StateOpen}, h.handler.States())
	req.Equal(domain.StateIdle, h.handler.Lifecycles()[0].From)
}

func TestTransport_ConnectIsIgnoredWhileOpen(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, &fakeDialer{})
	h.open(t)

	// When connect is requested again
	accepted := h.transport.Connect(identity)

	// Then nothing new is dialed
	req.False(accepted)
	req.Never(func() bool { return h.dialer.Dials() > 1 }, 50*time.Millisecond, tick)
}

func TestTransport_SendOnlyWhenOpen(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, &fakeDialer{})

	// Given no connection
	req.False(h.transport.SendChat("hello"))

	// When the connection is open
	conn := h.open(t)

	// Then the chat frame goes out with the room id
	req.True(h.transport.SendChat("hello"))
	req.Equal(protocol.Chat("room-1", "hello"), conn.Written()[1])
}

func TestTransport_HeartbeatWhileOpen(t *testing.T) {
	h := newHarness(t, &fakeDialer{})
	conn := h.open(t)

	// When the heartbeat interval elapses twice
	h.clock.Add(DefaultHeartbeatInterval)
	require.Eventually(t, func() bool { return len(conn.Written()) == 2 }, waitFor, tick)
	h.clock.Add(DefaultHeartbeatInterval)

	// Then two pings follow the join
	require.Eventually(t, func() bool {
		types := conn.WrittenTypes()
		return len(types) == 3 && types[1] == protocol.TypePing && types[2] == protocol.TypePing
	}, waitFor, tick)
}

func TestTransport_DeliversFramesAndDropsMalformedOnes(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, &fakeDialer{})
	conn := h.open(t)

	// Given a valid frame, garbage and another valid frame
	conn.Push(`{"t":"pong"}`)
	conn.Push(`not json`)
	conn.Push(`{"t":"userJoined","userId":"bob"}`)

	// Then only the valid frames reach the handler, in order
	require.Eventually(t, func() bool { return len(h.handler.Envelopes()) == 2 }, waitFor, tick)
	envelopes := h.handler.Envelopes()
	req.Equal(protocol.TypePong, envelopes[0].Type)
	req.Equal("bob", envelopes[1].UserID)
	req.Contains(h.diag.Codes(), event.MalformedFrameCode)

	// Then the connection survives
	req.Equal(domain.StateOpen, h.transport.State())
}

func TestTransport_ReconnectsAfterUnexpectedClose(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, &fakeDialer{})
	first := h.open(t)

	// When the server drops the connection
	first.Drop()

	// Then a reconnect is scheduled at attempt 1 after 2s
	h.requireState(t, domain.StateClosed)
	req.Equal(1, h.transport.Attempt())
	closed := h.handler.ClosedEvents()
	req.Len(closed, 1)
	req.Equal(2*time.Second, closed[0].RetryIn)
	req.Equal(domain.StateOpen, closed[0].From)

	// Then nothing happens before the delay
	h.clock.Add(2*time.Second - time.Millisecond)
	req.Never(func() bool { return h.dialer.Dials() > 1 }, 50*time.Millisecond, tick)

	// When the delay elapses
	h.clock.Add(time.Millisecond)

	// Then the transport is open again with a fresh join and a reset counter
	h.requireState(t, domain.StateOpen)
	req.Equal(2, h.dialer.Dials())
	req.Equal(0, h.transport.Attempt())
	req.Equal([]protocol.Type{protocol.TypeJoin}, h.dialer.Last().WrittenTypes())
}

func TestTransport_BackoffUntilExhausted(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, &fakeDialer{failAll: true})

	req.True(h.transport.Connect(identity))

	expected := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second}
	for i, delay := range expected {
		// Given the i-th failure has been scheduled
		require.Eventually(t, func() bool { return len(h.handler.ClosedEvents()) == i+1 }, waitFor, tick)
		req.Equal(delay, h.handler.ClosedEvents()[i].RetryIn)
		req.Equal(i+1, h.transport.Attempt())

		// When its timer fires
		h.clock.Add(delay)
	}

	// Then the sixth failure gives up and lands in Idle
	h.requireState(t, domain.StateIdle)
	lifecycles := h.handler.Lifecycles()
	last := lifecycles[len(lifecycles)-1]
	req.True(last.Exhausted)
	req.Equal(domain.StateClosed, last.From)
	req.Equal(6, h.dialer.Dials())
	req.Contains(h.diag.Codes(), event.ReconnectExhaustedCode)

	// Then nothing is retried any more
	h.clock.Add(time.Hour)
	req.Never(func() bool { return h.dialer.Dials() > 6 }, 50*time.Millisecond, tick)
}

func TestTransport_DisconnectCancelsPendingReconnect(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, &fakeDialer{})
	h.open(t).Drop()
	h.requireState(t, domain.StateClosed)

	// When the user disconnects before the reconnect timer fires
	h.transport.Disconnect()
	h.requireState(t, domain.StateIdle)

	// Then the timer never leads to a dial
	h.clock.Add(time.Minute)
	req.Never(func() bool { return h.dialer.Dials() > 1 }, 50*time.Millisecond, tick)

	// Then the leave goes out of band exactly once
	require.Eventually(t, func() bool { return len(h.notifier.Calls()) == 1 }, waitFor, tick)
	req.Equal(leaveCall{roomID: "room-1", participantID: "alice"}, h.notifier.Calls()[0])

	h.transport.Disconnect()
	req.Never(func() bool { return len(h.notifier.Calls()) > 1 }, 50*time.Millisecond, tick)
}

func TestTransport_GracefulDisconnectSendsLeave(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, &fakeDialer{})
	conn := h.open(t)

	// When the user leaves while connected
	h.transport.Disconnect()

	// Then leave is sent on the wire and the transport goes through Closing to Idle
	h.requireState(t, domain.StateIdle)
	req.Equal([]protocol.Type{protocol.TypeJoin, protocol.TypeLeave}, conn.WrittenTypes())
	req.Equal([]domain.ConnectionState{
		domain.StateConnecting, domain.StateOpen, domain.StateClosing, domain.StateIdle,
	}, h.handler.States())

	// Then no reconnect and no beacon follow
	h.clock.Add(time.Minute)
	req.Never(func() bool { return h.dialer.Dials() > 1 }, 50*time.Millisecond, tick)
	req.Empty(h.notifier.Calls())
}

func TestTransport_ConnectRightAfterDisconnectRejoins(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, &fakeDialer{})
	first := h.open(t)

	// When the user leaves and immediately joins again
	h.transport.Disconnect()
	accepted := h.transport.Connect(identity)

	// Then the rejoin is accepted and dials once the old connection has closed
	req.True(accepted)
	req.Eventually(func() bool { return h.dialer.Dials() == 2 }, waitFor, tick)
	h.requireState(t, domain.StateOpen)
	req.Equal([]protocol.Type{protocol.TypeJoin, protocol.TypeLeave}, first.WrittenTypes())
	req.Equal([]protocol.Type{protocol.TypeJoin}, h.dialer.Last().WrittenTypes())
	req.Equal([]domain.ConnectionState{
		domain.StateConnecting, domain.StateOpen, domain.StateClosing, domain.StateIdle,
		domain.StateConnecting, domain.StateOpen,
	}, h.handler.States())

	// Then a second connect while open is still ignored
	req.False(h.transport.Connect(identity))
}

func TestTransport_DisconnectWhileDialingDiscardsLateConnection(t *testing.T) {
	req := require.New(t)
	gate := make(chan struct{})
	h := newHarness(t, &fakeDialer{gate: gate})

	// Given a dial that has not completed
	req.True(h.transport.Connect(identity))
	h.requireState(t, domain.StateConnecting)

	// When the user disconnects and the dial completes afterwards
	h.transport.Disconnect()
	h.requireState(t, domain.StateIdle)
	close(gate)

	// Then the late connection is never used
	req.Never(func() bool { return h.transport.State() != domain.StateIdle }, 50*time.Millisecond, tick)
	require.Eventually(t, func() bool {
		for _, c := range h.dialer.Conns() {
			if !c.isClosed() {
				return false
			}
		}
		return true
	}, waitFor, tick)

	// Then no beacon is sent for a session that never joined
	req.Empty(h.notifier.Calls())
}

func TestTransport_ShutdownLeavesGracefully(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, &fakeDialer{})
	conn := h.open(t)

	// When the loop is stopped
	h.stop()

	// Then leave went out and the connection is released
	req.Equal(domain.StateIdle, h.transport.State())
	req.Equal([]protocol.Type{protocol.TypeJoin, protocol.TypeLeave}, conn.WrittenTypes())
	req.True(conn.isClosed())
	req.Empty(h.notifier.Calls())
}

func TestTransport_ShutdownWhileReconnectingUsesBeacon(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, &fakeDialer{})
	h.open(t).Drop()
	h.requireState(t, domain.StateClosed)

	// When the loop is stopped with no live connection
	h.stop()

	// Then the out-of-band leave was delivered before Run returned
	req.Len(h.notifier.Calls(), 1)
	req.Equal(domain.StateIdle, h.transport.State())
}
