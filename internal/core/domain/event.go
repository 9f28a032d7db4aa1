package domain

import (
	"encoding/json"
	"fmt"
)

// EventType names a registry notification.
type EventType string

// Event types, one per mutating operation.
const (
	EventInitialized EventType = "initialized"
	EventRwaMinted   EventType = "rwa_minted"
	EventTransfer    EventType = "transfer"
	EventTrade       EventType = "trade"
	EventBurned      EventType = "burned"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventInitialized, EventRwaMinted, EventTransfer, EventTrade, EventBurned:
		return true
	}
	return false
}

// EventPayload is the typed body of an Event.
type EventPayload interface {
	EventType() EventType
}

// InitializedPayload is emitted once when the registry gets its administrator.
type InitializedPayload struct {
	Admin Principal `json:"admin"`
}

// RwaMintedPayload is emitted for each new token.
type RwaMintedPayload struct {
	TokenID  TokenID   `json:"token_id"`
	Owner    Principal `json:"owner"`
	Metadata string    `json:"metadata"`
}

// TransferPayload is emitted on an owner-initiated transfer.
type TransferPayload struct {
	TokenID TokenID   `json:"token_id"`
	From    Principal `json:"from"`
	To      Principal `json:"to"`
}

// TradePayload is emitted when a buyer takes a token against declared escrow.
type TradePayload struct {
	TokenID TokenID   `json:"token_id"`
	From    Principal `json:"from"`
	To      Principal `json:"to"`
	Escrow  Amount    `json:"escrow"`
}

// BurnedPayload is emitted on every successful burn, including repeats.
type BurnedPayload struct {
	TokenID TokenID   `json:"token_id"`
	Owner   Principal `json:"owner"`
}

func (InitializedPayload) EventType() EventType { return EventInitialized }
func (RwaMintedPayload) EventType() EventType   { return EventRwaMinted }
func (TransferPayload) EventType() EventType    { return EventTransfer }
func (TradePayload) EventType() EventType       { return EventTrade }
func (BurnedPayload) EventType() EventType      { return EventBurned }

// Event is a committed registry notification.
//
// Seq is assigned by the registry and increases by one per committed
// mutation, starting at 1.
type Event struct {
	Seq       uint64       `json:"seq"`
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	CreatedAt int64        `json:"created_at"` // Unix milliseconds
	Payload   EventPayload `json:"payload"`
}

// NewEvent wraps payload in an Event of the matching type.
// Seq, ID and CreatedAt are filled in when the event is recorded.
func NewEvent(payload EventPayload) Event {
	return Event{Type: payload.EventType(), Payload: payload}
}

// TokenID returns the token the event refers to, if any.
func (e *Event) TokenID() (TokenID, bool) {
	switch p := e.Payload.(type) {
	case RwaMintedPayload:
		return p.TokenID, true
	case TransferPayload:
		return p.TokenID, true
	case TradePayload:
		return p.TokenID, true
	case BurnedPayload:
		return p.TokenID, true
	}
	return 0, false
}

type eventJSON struct {
	Seq       uint64          `json:"seq"`
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	CreatedAt int64           `json:"created_at"`
	Payload   json.RawMessage `json:"payload"`
}

// UnmarshalJSON decodes the payload according to the event type.
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	payload, err := decodePayload(raw.Type, raw.Payload)
	if err != nil {
		return err
	}

	*e = Event{
		Seq:       raw.Seq,
		ID:        raw.ID,
		Type:      raw.Type,
		CreatedAt: raw.CreatedAt,
		Payload:   payload,
	}
	return nil
}

func decodePayload(t EventType, data json.RawMessage) (EventPayload, error) {
	var p EventPayload
	switch t {
	case EventInitialized:
		var v InitializedPayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		p = v
	case EventRwaMinted:
		var v RwaMintedPayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		p = v
	case EventTransfer:
		var v TransferPayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		p = v
	case EventTrade:
		var v TradePayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		p = v
	case EventBurned:
		var v BurnedPayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		p = v
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	return p, nil
}
