package transport

import (
	"c2c-client/contract"
	"c2c-client/domain"
	"c2c-client/domain/event"
	"c2c-client/protocol"
	"context"
	"errors"
	"io"
	"sync"
)

type fakeConn struct {
	mu        sync.Mutex
	written   []protocol.Envelope
	inbox     chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbox: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.inbox:
		return data, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeConn) WriteJSON(v any) error {
	if c.isClosed() {
		return errors.New("use of closed connection")
	}
	env, _ := v.(protocol.Envelope)
	c.mu.Lock()
	c.written = append(c.written, env)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// Drop simulates the server going away.
func (c *fakeConn) Drop() { _ = c.Close() }

func (c *fakeConn) Push(frame string) { c.inbox <- []byte(frame) }

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) Written() []protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Envelope(nil), c.written...)
}

func (c *fakeConn) WrittenTypes() []protocol.Type {
	var types []protocol.Type
	for _, env := range c.Written() {
		types = append(types, env.Type)
	}
	return types
}

type fakeDialer struct {
	mu      sync.Mutex
	conns   []*fakeConn
	dials   int
	failAll bool
	gate    chan struct{}
}

func (d *fakeDialer) Dial(ctx context.Context, _ domain.SessionIdentity) (contract.Conn, error) {
	d.mu.Lock()
	d.dials++
	fail, gate := d.failAll, d.gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("connection refused")
	}

	c := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) Conns() []*fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeConn(nil), d.conns...)
}

func (d *fakeDialer) Last() *fakeConn {
	conns := d.Conns()
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

type recorder struct {
	mu         sync.Mutex
	envelopes  []protocol.Envelope
	lifecycles []event.Lifecycle
}

func (r *recorder) OnEnvelope(env protocol.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, env)
}

func (r *recorder) OnStateChange(evt event.Lifecycle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lifecycles = append(r.lifecycles, evt)
}

func (r *recorder) Envelopes() []protocol.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]protocol.Envelope(nil), r.envelopes...)
}

func (r *recorder) Lifecycles() []event.Lifecycle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Lifecycle(nil), r.lifecycles...)
}

func (r *recorder) States() []domain.ConnectionState {
	var states []domain.ConnectionState
	for _, l := range r.Lifecycles() {
		states = append(states, l.To)
	}
	return states
}

// ClosedEvents returns the transitions into Closed, in order.
func (r *recorder) ClosedEvents() []event.Lifecycle {
	var out []event.Lifecycle
	for _, l := range r.Lifecycles() {
		if l.To == domain.StateClosed {
			out = append(out, l)
		}
	}
	return out
}

type diagRecorder struct {
	mu    sync.Mutex
	codes []event.DiagnosticCode
}

func (d *diagRecorder) Report(diag event.Diagnostic) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.codes = append(d.codes, diag.Code)
}

func (d *diagRecorder) Codes() []event.DiagnosticCode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]event.DiagnosticCode(nil), d.codes...)
}

type leaveCall struct {
	roomID        domain.RoomID
	participantID string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []leaveCall
}

func (n *fakeNotifier) NotifyLeave(_ context.Context, roomID domain.RoomID, participantID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, leaveCall{roomID: roomID, participantID: participantID})
	return nil
}

func (n *fakeNotifier) Calls() []leaveCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]leaveCall(nil), n.calls...)
}
