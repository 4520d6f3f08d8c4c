package event

import (
	"c2c-client/domain"
	"time"
)

// Lifecycle is emitted by the transport on every state transition.
type Lifecycle struct {
	From    domain.ConnectionState
	To      domain.ConnectionState
	Attempt int
	// RetryIn is set when a reconnect has been scheduled.
	RetryIn time.Duration
	// Exhausted marks the Closed -> Idle transition after the last attempt.
	Exhausted bool
	Err       error
}
