package echo

import (
	"errors"
	"fmt"
)

// ErrInvalidPacket is returned by Parse when the buffer is too short
// or malformed to hold an ICMP message.
var ErrInvalidPacket = errors.New("invalid ICMP packet")

// MessageError is the generic error for ICMP messages that report a
// failure instead of answering the probe.
type MessageError struct {
	Reply *Reply
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("ICMP error from %s (type %d, code %d)",
		e.Reply.Source, e.Reply.Type, e.Reply.Code)
}

// DestinationUnreachableError reports an ICMP Destination Unreachable
// message received in place of an Echo Reply.
type DestinationUnreachableError struct {
	Reply *Reply
}

func (e *DestinationUnreachableError) Error() string {
	return fmt.Sprintf("destination unreachable, reported by %s (code %d)",
		e.Reply.Source, e.Reply.Code)
}

// TimeExceededError reports an ICMP Time Exceeded message. During
// traceroute these mark intermediate hops, not failures.
type TimeExceededError struct {
	Reply *Reply
}

func (e *TimeExceededError) Error() string {
	return fmt.Sprintf("time exceeded, reported by %s (code %d)",
		e.Reply.Source, e.Reply.Code)
}
