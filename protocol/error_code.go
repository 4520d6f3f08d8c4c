package protocol

import (
	"strings"
	"time"
)

// ErrorCode is the client-side classification of a server error frame.
type ErrorCode string

const (
	CodeRoomNotFound     ErrorCode = "ROOM_NOT_FOUND"
	CodeNotAuthenticated ErrorCode = "NOT_AUTHENTICATED"
	CodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	CodeSendFailed       ErrorCode = "SEND_FAILED"
	CodeRateLimited      ErrorCode = "RATE_LIMITED"
	CodeUnknown          ErrorCode = "UNKNOWN"
)

// server spellings that mean the same thing
var aliases = map[string]ErrorCode{
	"ROOM_NOT_FOUND":      CodeRoomNotFound,
	"NOT_AUTHENTICATED":   CodeNotAuthenticated,
	"INVALID_TOKEN":       CodeNotAuthenticated,
	"SESSION_EXPIRED":     CodeNotAuthenticated,
	"CONNECTION_FAILED":   CodeConnectionFailed,
	"JOIN_FAILED":         CodeConnectionFailed,
	"SEND_FAILED":         CodeSendFailed,
	"MESSAGE_SEND_FAILED": CodeSendFailed,
	"RATE_LIMITED":        CodeRateLimited,
	"RATE_LIMIT":          CodeRateLimited,
	"RATE_LIMIT_EXCEEDED": CodeRateLimited,
}

func ClassifyCode(raw string) ErrorCode {
	if code, ok := aliases[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return code
	}
	return CodeUnknown
}

// Terminal codes end the session: the client stops and sends the user home.
func (c ErrorCode) Terminal() bool {
	return c == CodeRoomNotFound || c == CodeNotAuthenticated
}

func (c ErrorCode) DefaultMessage() string {
	switch c {
	case CodeRoomNotFound:
		return "This room does not exist or has expired."
	case CodeNotAuthenticated:
		return "Your session is no longer valid."
	case CodeConnectionFailed:
		return "Could not join the room."
	case CodeSendFailed:
		return "Your message could not be delivered."
	case CodeRateLimited:
		return "You are sending messages too quickly."
	default:
		return "Something went wrong."
	}
}

// RetryAfter converts the optional retryAfterMs field. Zero means no hint.
func (e Envelope) RetryAfter() time.Duration {
	if e.RetryAfterMs == nil || *e.RetryAfterMs <= 0 {
		return 0
	}
	return time.Duration(*e.RetryAfterMs) * time.Millisecond
}
