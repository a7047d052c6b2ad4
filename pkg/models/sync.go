package models

import "time"

// SyncMessageType is the envelope type of a message fanned out by the hub.
type SyncMessageType string

const (
	SyncCreate          SyncMessageType = "CREATE"
	SyncUpdate          SyncMessageType = "UPDATE"
	SyncDelete          SyncMessageType = "DELETE"
	SyncInvalidateCache SyncMessageType = "INVALIDATE_CACHE"
	SyncPing            SyncMessageType = "PING"
	SyncPong            SyncMessageType = "PONG"
	SyncConnected       SyncMessageType = "CONNECTED"
	SyncTerminalUp      SyncMessageType = "TERMINAL_CONNECTED"
	SyncTerminalDown    SyncMessageType = "TERMINAL_DISCONNECTED"
)

// FanOut reports whether a message type is relayed to the other terminals
// rather than answered or ignored.
func (t SyncMessageType) FanOut() bool {
	switch t {
	case SyncCreate, SyncUpdate, SyncDelete, SyncInvalidateCache:
		return true
	}
	return false
}

// SyncMessage is the envelope that tells every other terminal an entity
// changed. ServerTimestamp is assigned by the hub at ingress; timestamps
// supplied by clients are ignored for ordering.
type SyncMessage struct {
	Type            SyncMessageType `json:"type"`
	Entity          string          `json:"entity,omitempty"`
	EntityID        string          `json:"entity_id,omitempty"`
	Data            map[string]any  `json:"data,omitempty"`
	FromTerminal    string          `json:"from_terminal,omitempty"`
	FromUser        string          `json:"from_user,omitempty"`
	ServerTimestamp time.Time       `json:"server_timestamp"`
}
