// Package audit provides the buffered, rotated JSONL audit trail shared
// by all POS operations.
package audit

import (
	"strings"
	"time"
)

// Severity classifies an audit entry. CRITICAL entries force an
// immediate flush.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// Well-known audit actions used by the shape-specialized helpers.
const (
	ActionConflict = "CONFLICT_RESOLUTION"
	ActionPayment  = "PAYMENT"
	ActionCashier  = "CASHIER_OPERATION"
)

// Entry is one audit record. OldValue and NewValue are redacted before
// buffering; everything else is written as given.
type Entry struct {
	Timestamp          time.Time      `json:"timestamp"`
	Action             string         `json:"action"`
	EntityType         string         `json:"entity_type"`
	EntityID           string         `json:"entity_id,omitempty"`
	UserID             string         `json:"user_id"`
	TerminalID         string         `json:"terminal_id"`
	Severity           Severity       `json:"severity"`
	Description        string         `json:"description"`
	OldValue           map[string]any `json:"old_value,omitempty"`
	NewValue           map[string]any `json:"new_value,omitempty"`
	Metadata           map[string]any `json:"metadata,omitempty"`
	SyncStatus         string         `json:"sync_status,omitempty"`
	ConflictResolution string         `json:"conflict_resolution,omitempty"`
	IPAddress          string         `json:"ip_address,omitempty"`
	SessionID          string         `json:"session_id,omitempty"`
}

// RedactedValue replaces the value of every sensitive field.
const RedactedValue = "***REDACTED***"

// sensitiveFields are the top-level keys scrubbed from old/new values,
// matched case-insensitively.
var sensitiveFields = map[string]struct{}{
	"password":    {},
	"token":       {},
	"api_key":     {},
	"secret":      {},
	"card_number": {},
	"cvv":         {},
	"cpf":         {},
	"rg":          {},
	"credit_card": {},
}

// Redact returns a copy of m with sensitive top-level keys replaced by
// RedactedValue. The scan is shallow: nested objects are not walked.
// Idempotent.
func Redact(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if _, sensitive := sensitiveFields[strings.ToLower(k)]; sensitive {
			out[k] = RedactedValue
		} else {
			out[k] = v
		}
	}
	return out
}
