package validation

import "fmt"

type Field string

const (
	FieldIdentity Field = "identity"
	FieldContent  Field = "content"
	FieldRoomCode Field = "roomCode"
)

type Reason string

const (
	ReasonEmpty        Reason = "EMPTY"
	ReasonTooLong      Reason = "TOO_LONG"
	ReasonInvalidChars Reason = "INVALID_CHARS"
	ReasonForbidden    Reason = "FORBIDDEN"
	ReasonBadLength    Reason = "BAD_LENGTH"
)

// Error is the single failure kind returned by the Validator.
type Error struct {
	Field  Field
	Reason Reason
	// Limit is the bound that was crossed, for length failures.
	Limit int
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Message is the text shown to the user.
func (e *Error) Message() string {
	switch e.Field {
	case FieldIdentity:
		switch e.Reason {
		case ReasonEmpty:
			return "Please enter a nickname."
		case ReasonTooLong:
			return fmt.Sprintf("Nicknames are limited to %d characters.", e.Limit)
		case ReasonInvalidChars:
			return "Nicknames may only contain letters, digits, spaces, _ and -."
		case ReasonForbidden:
			return "This nickname is reserved."
		}
	case FieldContent:
		switch e.Reason {
		case ReasonEmpty:
			return "Please enter a message."
		case ReasonTooLong:
			return fmt.Sprintf("Messages are limited to %d characters.", e.Limit)
		}
	case FieldRoomCode:
		switch e.Reason {
		case ReasonEmpty:
			return "Please enter a room code."
		case ReasonBadLength:
			return "Room codes are between 3 and 20 characters."
		}
	}
	return e.Error()
}
