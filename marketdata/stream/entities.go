package stream

import "time"

// Sample is a single (timestamp, price) observation from the trade feed.
// Timestamp is in seconds since the Unix epoch. Samples are immutable and
// arrive in non-decreasing timestamp order.
type Sample struct {
	Timestamp float64
	Price     float64
}

// Status is the lifecycle state of the client's subscription.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// ConnectionInfo is a read-only diagnostic snapshot of the client.
type ConnectionInfo struct {
	Status       Status
	Symbol       string
	SessionID    string
	ErrorCount   int
	MessageCount int64
	Uptime       time.Duration
	LastUpdate   time.Time
}
