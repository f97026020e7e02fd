// Package serial holds the link-cable collaborators driven by the timing coordinator.
package serial

// Status is the outcome of polling a peer for its byte.
type Status uint8

const (
	// Success means the peer delivered a byte.
	Success Status = iota
	// NoConnection means nobody answered; the transfer falls back to the clock source.
	NoConnection
)

func (s Status) String() string {
	if s == Success {
		return "success"
	}
	return "no connection"
}

// Peer is the other end of the link cable. Transmit is called when a transfer starts
// with the byte in SB; Receive is polled once when the transfer completes.
type Peer interface {
	Transmit(value byte)
	Receive() (byte, Status)
}
