package models

import "time"

// CardStatus is the lifecycle state of a physical command card (comanda).
type CardStatus string

const (
	CardAvailable CardStatus = "AVAILABLE"
	CardInUse     CardStatus = "IN_USE"
	CardBlocked   CardStatus = "BLOCKED"
	CardLost      CardStatus = "LOST"
	CardDamaged   CardStatus = "DAMAGED"
	CardReserved  CardStatus = "RESERVED"
)

// CommandCard binds a physical card number to at most one active session.
type CommandCard struct {
	Entity

	CardNumber       string     `json:"card_number"`
	Status           CardStatus `json:"status"`
	CurrentSessionID string     `json:"current_session_id,omitempty"`
}

// SessionStatus is the state of a command session (open tab).
type SessionStatus string

const (
	SessionOpen   SessionStatus = "OPEN"
	SessionClosed SessionStatus = "CLOSED"
)

// CommandItem is a single line on an open tab.
type CommandItem struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	ProductID string    `json:"product_id,omitempty"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	AddedBy   string    `json:"added_by,omitempty"`
	AddedAt   time.Time `json:"added_at"`
	StoreID   string    `json:"store_id"`
}

// Total returns the line total.
func (i *CommandItem) Total() float64 {
	return float64(i.Quantity) * i.UnitPrice
}

// CommandSession aggregates the items charged against a card. When a
// credit limit is set, total_amount must never exceed it.
type CommandSession struct {
	Entity

	CardID       string        `json:"card_id"`
	CustomerName string        `json:"customer_name,omitempty"`
	TableID      string        `json:"table_id,omitempty"`
	Status       SessionStatus `json:"status"`
	TotalAmount  float64       `json:"total_amount"`
	CreditLimit  float64       `json:"credit_limit,omitempty"`
	OpenedAt     time.Time     `json:"opened_at"`
	ClosedAt     *time.Time    `json:"closed_at,omitempty"`
	OpenedBy     string        `json:"opened_by,omitempty"`
}

// OpenSessionRequest contains fields for opening a tab on a card.
type OpenSessionRequest struct {
	CustomerName string  `json:"customer_name,omitempty"`
	TableID      string  `json:"table_id,omitempty"`
	CreditLimit  float64 `json:"credit_limit,omitempty"`
}

// AddItemRequest contains fields for charging an item to a session.
type AddItemRequest struct {
	ProductID string  `json:"product_id,omitempty"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// UpdateSessionRequest carries a version-checked partial session update.
type UpdateSessionRequest struct {
	Version      int      `json:"version"`
	CustomerName *string  `json:"customer_name,omitempty"`
	TableID      *string  `json:"table_id,omitempty"`
	CreditLimit  *float64 `json:"credit_limit,omitempty"`
}

// SessionTransfer records an open session moving between cards, usually
// after the original card is lost or damaged.
type SessionTransfer struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	FromCardID    string    `json:"from_card_id"`
	ToCardID      string    `json:"to_card_id"`
	Reason        string    `json:"reason,omitempty"`
	TransferredBy string    `json:"transferred_by,omitempty"`
	TransferredAt time.Time `json:"transferred_at"`
	StoreID       string    `json:"store_id"`
}
