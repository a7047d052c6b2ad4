package models

import "time"

// QueueStatus is the lifecycle state of a waiting-list entry.
type QueueStatus string

const (
	QueueWaiting   QueueStatus = "WAITING"
	QueueNotified  QueueStatus = "NOTIFIED"
	QueueSeated    QueueStatus = "SEATED"
	QueueCancelled QueueStatus = "CANCELLED"
	QueueNoShow    QueueStatus = "NO_SHOW"
)

// Terminal reports whether no further transitions are allowed.
func (s QueueStatus) Terminal() bool {
	return s == QueueSeated || s == QueueCancelled || s == QueueNoShow
}

// Active reports whether the entry participates in queue ordering.
func (s QueueStatus) Active() bool {
	return s == QueueWaiting || s == QueueNotified
}

// PartySizeCategory buckets a headcount for analytics and estimation.
type PartySizeCategory string

const (
	PartySmall  PartySizeCategory = "SMALL"  // 1-2
	PartyMedium PartySizeCategory = "MEDIUM" // 3-4
	PartyLarge  PartySizeCategory = "LARGE"  // 5-6
	PartyXLarge PartySizeCategory = "XLARGE" // 7+
)

// CategoryForPartySize maps a headcount to its category bucket.
func CategoryForPartySize(n int) PartySizeCategory {
	switch {
	case n <= 2:
		return PartySmall
	case n <= 4:
		return PartyMedium
	case n <= 6:
		return PartyLarge
	default:
		return PartyXLarge
	}
}

// NotificationMethod selects how a customer is told their table is ready.
type NotificationMethod string

const (
	NotifySMS          NotificationMethod = "SMS"
	NotifyWhatsApp     NotificationMethod = "WHATSAPP"
	NotifyAnnouncement NotificationMethod = "ANNOUNCEMENT"
	NotifyNone         NotificationMethod = "NONE"
)

// QueueEntry is a walk-in party's position in the waiting list.
// position_in_queue is dense and starts at 1 over WAITING+NOTIFIED entries
// of the same store.
type QueueEntry struct {
	Entity

	CustomerName         string             `json:"customer_name"`
	CustomerPhone        string             `json:"customer_phone"`
	PartySize            int                `json:"party_size"`
	PartySizeCategory    PartySizeCategory  `json:"party_size_category"`
	Status               QueueStatus        `json:"status"`
	PositionInQueue      int                `json:"position_in_queue"`
	CheckInTime          time.Time          `json:"check_in_time"`
	EstimatedWaitMinutes float64            `json:"estimated_wait_minutes"`
	NotificationTime     *time.Time         `json:"notification_time,omitempty"`
	SeatedTime           *time.Time         `json:"seated_time,omitempty"`
	CancelledTime        *time.Time         `json:"cancelled_time,omitempty"`
	AssignedTableID      string             `json:"assigned_table_id,omitempty"`
	TablePreferences     []TablePreference  `json:"table_preferences,omitempty"`
	NotificationMethod   NotificationMethod `json:"notification_method"`
	Metadata             map[string]any     `json:"metadata,omitempty"`
}

// ActualWaitMinutes is defined only once the party has been seated.
func (e *QueueEntry) ActualWaitMinutes() (float64, bool) {
	if e.Status != QueueSeated || e.SeatedTime == nil {
		return 0, false
	}
	return e.SeatedTime.Sub(e.CheckInTime).Minutes(), true
}

// AddQueueEntryRequest contains fields for admitting a party to the queue.
type AddQueueEntryRequest struct {
	CustomerName       string             `json:"customer_name"`
	CustomerPhone      string             `json:"customer_phone"`
	PartySize          int                `json:"party_size"`
	NotificationMethod NotificationMethod `json:"notification_method,omitempty"`
	TablePreferences   []TablePreference  `json:"table_preferences,omitempty"`
	Metadata           map[string]any     `json:"metadata,omitempty"`
}

// NotificationStatus is the delivery state of a queue notification.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "PENDING"
	NotificationSent      NotificationStatus = "SENT"
	NotificationDelivered NotificationStatus = "DELIVERED"
	NotificationFailed    NotificationStatus = "FAILED"
)

// NotificationRecord tracks a single customer notification and its retries.
type NotificationRecord struct {
	ID               string             `json:"id"`
	QueueEntryID     string             `json:"queue_entry_id"`
	NotificationType NotificationMethod `json:"notification_type"`
	Status           NotificationStatus `json:"status"`
	Message          string             `json:"message"`
	SentAt           *time.Time         `json:"sent_at,omitempty"`
	DeliveredAt      *time.Time         `json:"delivered_at,omitempty"`
	ErrorMessage     string             `json:"error_message,omitempty"`
	RetryCount       int                `json:"retry_count"`
	CreatedAt        time.Time          `json:"created_at"`
	StoreID          string             `json:"store_id"`
}

// WaitEstimate is the result of a wait-time estimation.
type WaitEstimate struct {
	PartySize        int            `json:"party_size"`
	EstimatedMinutes float64        `json:"estimated_minutes"`
	ConfidenceLevel  float64        `json:"confidence_level"`
	Factors          map[string]any `json:"factors"`
}

// TableSuggestion scores a candidate table for a waiting party.
type TableSuggestion struct {
	TableID     string   `json:"table_id"`
	TableNumber int      `json:"table_number"`
	Capacity    int      `json:"capacity"`
	Score       float64  `json:"score"`
	Reasons     []string `json:"reasons,omitempty"`
}

// QueueStatistics is the aggregate view of a store's waiting list.
type QueueStatistics struct {
	TotalInQueue          int                       `json:"total_in_queue"`
	AverageWaitMinutes    float64                   `json:"average_wait_minutes"`
	LongestWaitMinutes    float64                   `json:"longest_wait_minutes"`
	PartySizeDistribution map[PartySizeCategory]int `json:"party_size_distribution"`
	EstimatedClearMinutes float64                   `json:"estimated_clear_minutes"`
	NoShowRate            float64                   `json:"no_show_rate"`
	EstimateAccuracy24h   float64                   `json:"estimate_accuracy_24h"`
}
