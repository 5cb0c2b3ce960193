package proto

import (
	"fmt"
	"strings"
)

// Limits holds the protocol sizing constants. Parsing and formatting
// honor these as capacities rather than hardcoded literals.
type Limits struct {
	// NameLen is the nickname capacity; the longest accepted name is
	// NameLen-1 bytes.
	NameLen int
	// MaxMessageLen is the message-payload capacity; the longest
	// accepted body is MaxMessageLen-1 bytes.
	MaxMessageLen int
	// BufSize is the socket I/O buffer size. Must strictly exceed
	// MaxMessageLen so framing always fits.
	BufSize int
	// MaxClients is the connected-client cap enforced by the acceptor.
	MaxClients int
}

// DefaultLimits matches the historical server defaults.
var DefaultLimits = Limits{
	NameLen:       32,
	MaxMessageLen: 1024,
	BufSize:       4096,
	MaxClients:    128,
}

// WireLineMax returns the derived capacity of one complete wire line:
// name + ": " + message + line terminator, reserving framing room on
// every formatted line.
func (l Limits) WireLineMax() int {
	return l.NameLen + len(ChatSep) + l.MaxMessageLen + 2
}

// Validate checks the sizing invariants once at startup.
//
// Postcondition: Returns nil if the limits are coherent, or an error
// describing all violations.
func (l Limits) Validate() error {
	var errs []string
	if l.NameLen < 3 {
		errs = append(errs, fmt.Sprintf("name_len must be at least 3, got %d", l.NameLen))
	}
	if l.MaxMessageLen < 1 {
		errs = append(errs, fmt.Sprintf("max_message_len must be >= 1, got %d", l.MaxMessageLen))
	}
	if l.MaxMessageLen >= l.BufSize {
		errs = append(errs, fmt.Sprintf("max_message_len (%d) must be strictly less than buf_size (%d)", l.MaxMessageLen, l.BufSize))
	}
	if l.MaxClients <= 0 {
		errs = append(errs, fmt.Sprintf("max_clients must be > 0, got %d", l.MaxClients))
	}
	if len(errs) > 0 {
		return fmt.Errorf("limits: %s", strings.Join(errs, "; "))
	}
	return nil
}
