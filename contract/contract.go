//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"c2c-client/domain"
	"c2c-client/domain/event"
	"c2c-client/protocol"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Conn is one live bidirectional connection.
// WriteJSON may be called from several goroutines; ReadMessage from one.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v any) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, identity domain.SessionIdentity) (Conn, error)
}

// TransportHandler receives everything the transport observes.
// Calls are made from the transport loop, one at a time.
type TransportHandler interface {
	OnEnvelope(env protocol.Envelope)
	OnStateChange(evt event.Lifecycle)
}

type ITransport interface {
	Connect(identity domain.SessionIdentity) bool
	Send(env protocol.Envelope) bool
	SendChat(text string) bool
	Disconnect()
	State() domain.ConnectionState
}

// MessageView is what the renderer needs to draw one bubble.
type MessageView struct {
	Group    domain.MessageGroup
	Text     string
	NewGroup bool
}

type Renderer interface {
	DisplayMessage(view MessageView)
	DisplaySystemNotice(text string)
	UpdateConnectionStatusIndicator(status domain.ConnectionStatus)
	ShowTransientNotice(text string, severity event.NoticeSeverity)
	ShowPresenceWarning(active bool)
	UpdateMemberCount(count int)
	RedirectHome()
}

type Diagnostics interface {
	Report(d event.Diagnostic)
}

// LeaveNotifier is the out-of-band leave path used when no live connection exists.
type LeaveNotifier interface {
	NotifyLeave(ctx context.Context, roomID domain.RoomID, participantID string) error
}
