// Package protocol describes the JSON frames exchanged with the chat server.
// Every frame is a flat object whose "t" field selects the variant.
package protocol

import (
	"c2c-client/errors"
	"encoding/json"
	"fmt"
)

type Type string

// Client to server.
const (
	TypeJoin  Type = "join"
	TypeChat  Type = "msg"
	TypePing  Type = "ping"
	TypeLeave Type = "leave"
)

// Server to client.
const (
	TypeJoined     Type = "joined"
	TypeMessage    Type = "message"
	TypeUserJoined Type = "userJoined"
	TypeUserLeft   Type = "userLeft"
	TypePong       Type = "pong"
	TypeError      Type = "error"
)

// Envelope is the union of every frame shape. Unused fields are omitted on the wire.
type Envelope struct {
	Type         Type     `json:"t"`
	RoomID       string   `json:"roomId,omitempty"`
	Token        string   `json:"token,omitempty"`
	Text         string   `json:"text,omitempty"`
	Me           string   `json:"me,omitempty"`
	Members      []string `json:"members,omitempty"`
	From         string   `json:"from,omitempty"`
	UserID       string   `json:"userId,omitempty"`
	Code         string   `json:"code,omitempty"`
	Message      string   `json:"message,omitempty"`
	RetryAfterMs *int64   `json:"retryAfterMs,omitempty"`
}

func Join(roomID, token string) Envelope {
	return Envelope{Type: TypeJoin, RoomID: roomID, Token: token}
}

func Chat(roomID, text string) Envelope {
	return Envelope{Type: TypeChat, RoomID: roomID, Text: text}
}

func Ping() Envelope {
	return Envelope{Type: TypePing}
}

func Leave(roomID string) Envelope {
	return Envelope{Type: TypeLeave, RoomID: roomID}
}

// Inbound reports whether t is a frame the server is allowed to send.
func (t Type) Inbound() bool {
	switch t {
	case TypeJoined, TypeMessage, TypeUserJoined, TypeUserLeft, TypePong, TypeError:
		return true
	default:
		return false
	}
}

// Decode parses a server frame and checks the fields its variant needs.
// Failures wrap errors.ErrMalformedEnvelope or errors.ErrUnknownEnvelope.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", errors.ErrMalformedEnvelope, err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", errors.ErrMalformedEnvelope)
	}
	if !env.Type.Inbound() {
		return Envelope{}, fmt.Errorf("%w: %q", errors.ErrUnknownEnvelope, env.Type)
	}

	switch env.Type {
	case TypeJoined:
		if env.Me == "" {
			return Envelope{}, fmt.Errorf("%w: joined without me", errors.ErrMalformedEnvelope)
		}
	case TypeMessage:
		if env.From == "" {
			return Envelope{}, fmt.Errorf("%w: message without sender", errors.ErrMalformedEnvelope)
		}
	case TypeUserJoined, TypeUserLeft:
		if env.UserID == "" {
			return Envelope{}, fmt.Errorf("%w: %s without userId", errors.ErrMalformedEnvelope, env.Type)
		}
	}
	return env, nil
}
