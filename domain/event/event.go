package event

import (
	"c2c-client/domain"
	"time"
)

type Type string

const (
	NoticeType          Type = "NOTICE"
	MessageRenderedType Type = "MESSAGE_RENDERED"
	PresenceWarningType Type = "PRESENCE_WARNING"
	MembersChangedType  Type = "MEMBERS_CHANGED"
	UserFacingErrorType Type = "USER_FACING_ERROR"
)

// DisplayEvent is a change the renderer has to show.
// The reconciler produces them; it never renders anything itself.
type DisplayEvent interface {
	Type() Type
}

// Notice is a system line in the transcript ("alice joined").
type Notice struct {
	Text string
	At   time.Time
}

func (Notice) Type() Type { return NoticeType }

// MessageRendered carries the group a message landed in.
// NewGroup is false when the message extended the trailing group.
type MessageRendered struct {
	Group    domain.MessageGroup
	Text     string
	NewGroup bool
}

func (MessageRendered) Type() Type { return MessageRenderedType }

// PresenceWarning toggles the "you are alone in this room" banner.
type PresenceWarning struct {
	Active bool
}

func (PresenceWarning) Type() Type { return PresenceWarningType }

type MembersChanged struct {
	Members []string
	Count   int
}

func (MembersChanged) Type() Type { return MembersChangedType }

// UserFacingError is a server error translated for the user.
// Terminal errors end the session.
type UserFacingError struct {
	Code       string
	Message    string
	Terminal   bool
	RetryAfter time.Duration
}

func (UserFacingError) Type() Type { return UserFacingErrorType }

type NoticeSeverity string

const (
	SeverityInfo    NoticeSeverity = "info"
	SeverityWarning NoticeSeverity = "warning"
	SeverityDanger  NoticeSeverity = "danger"
)
