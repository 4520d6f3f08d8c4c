package domain

// ConnectionState is the lifecycle position of the single live connection.
type ConnectionState int

const (
	StateIdle ConnectionState = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionStatus is what the status indicator shows.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

func (s ConnectionState) Status() ConnectionStatus {
	switch s {
	case StateConnecting:
		return StatusConnecting
	case StateOpen:
		return StatusConnected
	default:
		return StatusDisconnected
	}
}
