// Package projection builds the local view of the room from observed envelopes.
// Handles membership, message grouping and error classification.
// Does not render anything or interact with the connection directly.
package projection

import (
	"c2c-client/domain"
	"c2c-client/domain/event"
	"c2c-client/protocol"
	"fmt"

	"github.com/benbjohnson/clock"
)

// Reconciler owns membership and transcript. It is driven from the
// transport loop, so it is never called concurrently.
type Reconciler struct {
	self       string
	clock      clock.Clock
	membership *domain.Membership
	transcript *domain.Transcript
	synced     bool
}

func NewReconciler(self string, clk clock.Clock) *Reconciler {
	if clk == nil {
		clk = clock.New()
	}
	return &Reconciler{
		self:       self,
		clock:      clk,
		membership: domain.NewMembership(),
		transcript: domain.NewTranscript(),
	}
}

// Consume applies one inbound envelope and returns what must be displayed.
func (r *Reconciler) Consume(env protocol.Envelope) []event.DisplayEvent {
	switch env.Type {
	case protocol.TypeJoined:
		return r.onJoined(env)
	case protocol.TypeMessage:
		return r.onMessage(env)
	case protocol.TypeUserJoined:
		return r.onUserJoined(env.UserID)
	case protocol.TypeUserLeft:
		return r.onUserLeft(env.UserID)
	case protocol.TypeError:
		return []event.DisplayEvent{toUserFacingError(env)}
	default:
		// pong and anything else carry nothing to show
		return nil
	}
}

// ObserveLifecycle tracks whether the local view is known to match the server.
// Membership is kept as is on close; the next snapshot replaces it.
func (r *Reconciler) ObserveLifecycle(evt event.Lifecycle) {
	if evt.From == domain.StateOpen && evt.To != domain.StateOpen {
		r.synced = false
	}
}

func (r *Reconciler) onJoined(env protocol.Envelope) []event.DisplayEvent {
	r.membership.Reset(env.Members)
	r.synced = true
	return []event.DisplayEvent{
		event.Notice{Text: fmt.Sprintf("%s joined", env.Me), At: r.clock.Now()},
		r.membersChanged(),
		event.PresenceWarning{Active: r.membership.Len() == 1},
	}
}

func (r *Reconciler) onMessage(env protocol.Envelope) []event.DisplayEvent {
	isSelf := env.From == r.self
	group, created := r.transcript.Append(env.From, isSelf, env.Text, r.clock.Now())
	return []event.DisplayEvent{
		event.MessageRendered{Group: group, Text: env.Text, NewGroup: created},
	}
}

func (r *Reconciler) onUserJoined(id string) []event.DisplayEvent {
	if !r.membership.Add(id) {
		return nil
	}
	return []event.DisplayEvent{
		event.Notice{Text: fmt.Sprintf("%s joined", id), At: r.clock.Now()},
		r.membersChanged(),
		event.PresenceWarning{Active: false},
	}
}

func (r *Reconciler) onUserLeft(id string) []event.DisplayEvent {
	if !r.membership.Remove(id) {
		return nil
	}
	out := []event.DisplayEvent{
		event.Notice{Text: fmt.Sprintf("%s left", id), At: r.clock.Now()},
		r.membersChanged(),
	}
	if r.membership.Len() <= 1 {
		out = append(out, event.PresenceWarning{Active: true})
	}
	return out
}

func (r *Reconciler) membersChanged() event.MembersChanged {
	members := r.membership.Members()
	return event.MembersChanged{Members: members, Count: len(members)}
}

func toUserFacingError(env protocol.Envelope) event.UserFacingError {
	code := protocol.ClassifyCode(env.Code)
	message := env.Message
	if message == "" {
		message = code.DefaultMessage()
	}
	return event.UserFacingError{
		Code:       string(code),
		Message:    message,
		Terminal:   code.Terminal(),
		RetryAfter: env.RetryAfter(),
	}
}

func (r *Reconciler) Members() []string {
	return r.membership.Members()
}

func (r *Reconciler) Groups() []domain.MessageGroup {
	return r.transcript.Groups()
}

// Synced is false between a lost connection and the next joined snapshot.
func (r *Reconciler) Synced() bool {
	return r.synced
}
