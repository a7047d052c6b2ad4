package models

import "time"

// RemotePlatform identifies a delivery platform feeding the ingestion hook.
type RemotePlatform string

const (
	PlatformIfood RemotePlatform = "IFOOD"
	PlatformRappi RemotePlatform = "RAPPI"
	PlatformOther RemotePlatform = "OTHER"
)

// RemoteOrderStatus is the kitchen-side lifecycle of a delivery order.
type RemoteOrderStatus string

const (
	RemoteReceived   RemoteOrderStatus = "RECEIVED"
	RemoteConfirmed  RemoteOrderStatus = "CONFIRMED"
	RemotePreparing  RemoteOrderStatus = "PREPARING"
	RemoteReady      RemoteOrderStatus = "READY"
	RemoteDispatched RemoteOrderStatus = "DISPATCHED"
	RemoteDelivered  RemoteOrderStatus = "DELIVERED"
	RemoteCancelled  RemoteOrderStatus = "CANCELLED"
)

// remoteOrderFlow is the forward chain; CANCELLED is reachable from any
// non-terminal state.
var remoteOrderFlow = map[RemoteOrderStatus]RemoteOrderStatus{
	RemoteReceived:   RemoteConfirmed,
	RemoteConfirmed:  RemotePreparing,
	RemotePreparing:  RemoteReady,
	RemoteReady:      RemoteDispatched,
	RemoteDispatched: RemoteDelivered,
}

// Terminal reports whether the order has reached a final state.
func (s RemoteOrderStatus) Terminal() bool {
	return s == RemoteDelivered || s == RemoteCancelled
}

// CanTransitionTo checks the remote-order status chain.
func (s RemoteOrderStatus) CanTransitionTo(next RemoteOrderStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == RemoteCancelled {
		return true
	}
	return remoteOrderFlow[s] == next
}

// RemoteOrderItem is one line of an ingested delivery order.
type RemoteOrderItem struct {
	ID         string  `json:"id"`
	OrderID    string  `json:"order_id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Notes      string  `json:"notes,omitempty"`
	ExternalID string  `json:"external_id,omitempty"`
	StoreID    string  `json:"store_id"`
}

// RemoteOrder is a delivery-platform order mirrored into the POS.
// (platform, external_id) is unique per store.
type RemoteOrder struct {
	Entity

	Platform     RemotePlatform    `json:"platform"`
	ExternalID   string            `json:"external_id"`
	CustomerName string            `json:"customer_name"`
	TotalAmount  float64           `json:"total_amount"`
	Status       RemoteOrderStatus `json:"status"`
	ReceivedAt   time.Time         `json:"received_at"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
}

// IngestRemoteOrderRequest is the payload delivered by a platform adapter.
type IngestRemoteOrderRequest struct {
	Platform     RemotePlatform         `json:"platform"`
	ExternalID   string                 `json:"external_id"`
	CustomerName string                 `json:"customer_name"`
	Items        []RemoteOrderItemInput `json:"items"`
	Metadata     map[string]any         `json:"metadata,omitempty"`
}

// RemoteOrderItemInput is one line of an ingestion payload.
type RemoteOrderItemInput struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Notes      string  `json:"notes,omitempty"`
	ExternalID string  `json:"external_id,omitempty"`
}

// RemotePlatformConfig is the per-platform ingestion policy.
type RemotePlatformConfig struct {
	Entity

	Platform    RemotePlatform `json:"platform"`
	Enabled     bool           `json:"enabled"`
	AutoConfirm bool           `json:"auto_confirm"`
}
