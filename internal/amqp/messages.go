package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gastos/internal/ledger"
)

// MessageVersion is bumped when the payload layout changes incompatibly.
const MessageVersion = 1

var ErrInvalidMessage = errors.New("invalid ledger event message")

// LedgerEventMessage carries one applied ledger action to the workers.
type LedgerEventMessage struct {
	Version     int          `json:"version"`
	Event       ledger.Event `json:"event"`
	PublishedAt time.Time    `json:"published_at"`
}

// NewLedgerEventMessage wraps ev for publishing.
func NewLedgerEventMessage(ev ledger.Event) *LedgerEventMessage {
	return &LedgerEventMessage{
		Version:     MessageVersion,
		Event:       ev,
		PublishedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Validate rejects messages a worker cannot journal.
func (m *LedgerEventMessage) Validate() error {
	switch {
	case m.Version != MessageVersion:
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidMessage, m.Version)
	case m.Event.ID == "":
		return fmt.Errorf("%w: missing event id", ErrInvalidMessage)
	case m.Event.SessionID == "":
		return fmt.Errorf("%w: missing session id", ErrInvalidMessage)
	case m.Event.Action == "":
		return fmt.Errorf("%w: missing action", ErrInvalidMessage)
	}
	return nil
}

// LedgerEventMessageFromJSON decodes and validates a message.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
