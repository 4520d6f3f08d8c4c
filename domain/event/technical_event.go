package event

import "log/slog"

type DiagnosticCode string

const (
	MalformedFrameCode     DiagnosticCode = "MALFORMED_FRAME"
	FrameDroppedCode       DiagnosticCode = "FRAME_DROPPED"
	DialFailedCode         DiagnosticCode = "DIAL_FAILED"
	UnexpectedCloseCode    DiagnosticCode = "UNEXPECTED_CLOSE"
	ReconnectScheduledCode DiagnosticCode = "RECONNECT_SCHEDULED"
	ReconnectExhaustedCode DiagnosticCode = "RECONNECT_EXHAUSTED"
	SendFailedCode         DiagnosticCode = "SEND_FAILED"
	LeaveBeaconFailedCode  DiagnosticCode = "LEAVE_BEACON_FAILED"
	WorkerRestartedCode    DiagnosticCode = "WORKER_RESTARTED_AFTER_PANIC"
)

// Diagnostic is a technical event meant for logs, never for the user.
type Diagnostic struct {
	Level   slog.Level
	Code    DiagnosticCode
	Message string
	Attrs   []any
}
