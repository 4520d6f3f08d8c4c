package services

import (
	"c2c-client/contract"
	"c2c-client/domain"
	"c2c-client/domain/event"
	"c2c-client/errors"
	"c2c-client/projection"
	"c2c-client/protocol"
	"c2c-client/validation"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	DefaultRedirectDelay      = 2 * time.Second
	DefaultLeaveRedirectDelay = 500 * time.Millisecond

	reconnectingNotice = "Connection lost, reconnecting..."
	exhaustedNotice    = "Disconnected from the server. Rejoin the room to try again."
)

type IChatSession interface {
	Start()
	Submit(text string) error
	Leave()
	Members() []string
	InviteLink() string
}

// TransportFactory builds the transport with the session as its only handler.
type TransportFactory func(handler contract.TransportHandler) contract.ITransport

type Config struct {
	RedirectDelay      time.Duration
	LeaveRedirectDelay time.Duration
	// InviteBaseURL is the web origin used to build invite links.
	InviteBaseURL string
}

type Option func(*ChatSession)

func WithClock(c clock.Clock) Option {
	return func(s *ChatSession) { s.clock = c }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *ChatSession) { s.log = log }
}

// ChatSession is the page controller of one room visit: it validates input,
// forwards it to the transport and renders what the reconciler derives from
// server traffic.
type ChatSession struct {
	cfg       Config
	identity  domain.SessionIdentity
	validator *validation.Validator
	renderer  contract.Renderer
	transport contract.ITransport
	clock     clock.Clock
	log       *slog.Logger

	// Transport callbacks and UI calls come from different goroutines.
	mu         sync.Mutex
	reconciler *projection.Reconciler

	ended atomic.Bool
}

// NewChatSession validates the room code and display name before anything
// is built. An invalid identity means the session never starts.
func NewChatSession(
	cfg Config,
	roomCode, displayName string,
	v *validation.Validator,
	renderer contract.Renderer,
	newTransport TransportFactory,
	opts ...Option,
) (*ChatSession, error) {
	room, err := v.ValidateRoomCode(roomCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidIdentity, err)
	}
	name, err := v.ValidateIdentity(displayName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidIdentity, err)
	}

	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = DefaultRedirectDelay
	}
	if cfg.LeaveRedirectDelay <= 0 {
		cfg.LeaveRedirectDelay = DefaultLeaveRedirectDelay
	}

	s := &ChatSession{
		cfg:       cfg,
		identity:  domain.NewSessionIdentity(room, name),
		validator: v,
		renderer:  renderer,
		clock:     clock.New(),
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reconciler = projection.NewReconciler(name, s.clock)
	s.transport = newTransport(s)
	return s, nil
}

func (s *ChatSession) Identity() domain.SessionIdentity {
	return s.identity
}

func (s *ChatSession) Start() {
	if !s.transport.Connect(s.identity) {
		s.log.Debug("Connect request ignored", "state", s.transport.State())
	}
}

// Submit validates and sends one chat message. Nothing is sent when
// validation fails; the returned error is then a *validation.Error.
func (s *ChatSession) Submit(text string) error {
	content, err := s.validator.ValidateContent(text)
	if err != nil {
		var vErr *validation.Error
		if stdErrors.As(err, &vErr) {
			s.renderer.ShowTransientNotice(vErr.Message(), event.SeverityWarning)
		}
		return err
	}

	if !s.transport.SendChat(content) {
		s.renderer.ShowTransientNotice(reconnectingNotice, event.SeverityWarning)
		return errors.ErrNotConnected
	}
	return nil
}

// Leave disconnects and sends the user home shortly after.
func (s *ChatSession) Leave() {
	s.end(s.cfg.LeaveRedirectDelay)
}

func (s *ChatSession) end(delay time.Duration) {
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	s.transport.Disconnect()
	s.clock.AfterFunc(delay, s.renderer.RedirectHome)
}

func (s *ChatSession) Ended() bool {
	return s.ended.Load()
}

func (s *ChatSession) OnEnvelope(env protocol.Envelope) {
	s.mu.Lock()
	events := s.reconciler.Consume(env)
	s.mu.Unlock()

	for _, evt := range events {
		s.render(evt)
	}
}

func (s *ChatSession) OnStateChange(evt event.Lifecycle) {
	s.mu.Lock()
	s.reconciler.ObserveLifecycle(evt)
	s.mu.Unlock()

	s.renderer.UpdateConnectionStatusIndicator(evt.To.Status())

	switch {
	case evt.Exhausted:
		s.log.Warn("Giving up on reconnection", "room", s.identity.RoomID, "attempt", evt.Attempt)
		s.renderer.ShowTransientNotice(exhaustedNotice, event.SeverityDanger)
	case evt.To == domain.StateClosed && evt.RetryIn > 0:
		s.log.Info("Reconnecting", "room", s.identity.RoomID, "attempt", evt.Attempt, "in", evt.RetryIn)
	}
}

func (s *ChatSession) render(evt event.DisplayEvent) {
	switch e := evt.(type) {
	case event.Notice:
		s.renderer.DisplaySystemNotice(e.Text)
	case event.MessageRendered:
		s.renderer.DisplayMessage(contract.MessageView{Group: e.Group, Text: e.Text, NewGroup: e.NewGroup})
	case event.PresenceWarning:
		s.renderer.ShowPresenceWarning(e.Active)
	case event.MembersChanged:
		s.renderer.UpdateMemberCount(e.Count)
	case event.UserFacingError:
		s.onError(e)
	}
}

func (s *ChatSession) onError(e event.UserFacingError) {
	text := e.Message
	if e.RetryAfter > 0 {
		text = fmt.Sprintf("%s (retry in %s)", text, e.RetryAfter.Round(time.Second))
	}
	s.renderer.ShowTransientNotice(text, event.SeverityDanger)

	if e.Terminal {
		s.log.Warn("Session ended by server", "room", s.identity.RoomID, "code", e.Code)
		s.end(s.cfg.RedirectDelay)
	}
}

func (s *ChatSession) Members() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciler.Members()
}

func (s *ChatSession) Transcript() []domain.MessageGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciler.Groups()
}

func (s *ChatSession) InviteLink() string {
	return fmt.Sprintf("%s/join/%s", strings.TrimRight(s.cfg.InviteBaseURL, "/"), s.identity.RoomID)
}
