package domain

import "strings"

type RoomID string

// SessionIdentity names the room and the participant for one chat session.
// It never changes once the session has started.
type SessionIdentity struct {
	RoomID        RoomID
	ParticipantID string
}

func NewSessionIdentity(roomID, participantID string) SessionIdentity {
	return SessionIdentity{
		RoomID:        RoomID(strings.TrimSpace(roomID)),
		ParticipantID: strings.TrimSpace(participantID),
	}
}

func (id SessionIdentity) IsZero() bool {
	return id.RoomID == "" || id.ParticipantID == ""
}
