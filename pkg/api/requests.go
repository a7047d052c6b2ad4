package api

// RegisterCardRequest is the HTTP request body for POST /api/v1/command-cards.
type RegisterCardRequest struct {
	CardNumber string `json:"card_number"`
}

// CardStatusRequest changes a card's lifecycle status.
type CardStatusRequest struct {
	Status string `json:"status"`
}

// TransferSessionRequest moves an open session to another card.
type TransferSessionRequest struct {
	ToCardID string `json:"to_card_id"`
	Reason   string `json:"reason,omitempty"`
}

// SeatQueueEntryRequest seats a waiting party, optionally at a given table.
type SeatQueueEntryRequest struct {
	TableID string `json:"table_id,omitempty"`
}

// SeatReservationRequest seats an arrived reservation. Tables are optional
// when the reservation already has an assignment.
type SeatReservationRequest struct {
	TableIDs []string `json:"table_ids,omitempty"`
}

// AssignTablesRequest replaces a reservation's table assignment.
type AssignTablesRequest struct {
	TableIDs []string `json:"table_ids"`
}

// RemoteOrderStatusRequest advances a remote order along its status chain.
type RemoteOrderStatusRequest struct {
	Status string `json:"status"`
}

// PlatformConfigRequest is the per-platform ingestion policy body.
type PlatformConfigRequest struct {
	Enabled     bool `json:"enabled"`
	AutoConfirm bool `json:"auto_confirm"`
}

// TableStatusRequest changes a registry table's status.
type TableStatusRequest struct {
	Status string `json:"status"`
}

// AcquireLockRequest asks for an editing lease on an entity.
type AcquireLockRequest struct {
	EntityType     string `json:"entity_type"`
	EntityID       string `json:"entity_id"`
	CurrentVersion int    `json:"current_version"`
}

// ValidateVersionRequest checks a client version against the current one.
type ValidateVersionRequest struct {
	EntityType     string `json:"entity_type"`
	EntityID       string `json:"entity_id"`
	ClientVersion  int    `json:"client_version"`
	CurrentVersion int    `json:"current_version"`
}

// ReleaseLockRequest gives an editing lease back.
type ReleaseLockRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	LockID     string `json:"lock_id"`
}

// ResolveConflictRequest merges client and server copies of an entity
// after a version conflict.
type ResolveConflictRequest struct {
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Strategy   string         `json:"strategy"`
	ClientData map[string]any `json:"client_data"`
	ServerData map[string]any `json:"server_data"`
}
