package model

import "time"

// TransactionType enumerates ledger entry kinds.
type TransactionType string

// Transaction types.
const (
	TransactionCheckin    TransactionType = "checkin"
	TransactionCheckout   TransactionType = "checkout"
	TransactionTransfer   TransactionType = "transfer"
	TransactionRemoval    TransactionType = "removal"
	TransactionNoteUpdate TransactionType = "note_update"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionCheckin, TransactionCheckout, TransactionTransfer,
		TransactionRemoval, TransactionNoteUpdate:
		return true
	}
	return false
}

// Transaction is an immutable ledger row describing one item state change.
type Transaction struct {
	ID              int64           `json:"id"`
	ItemID          int64           `json:"item_id"`
	Type            TransactionType `json:"transaction_type"`
	FromUserID      *int64          `json:"from_user_id,omitempty"`
	ToUserID        *int64          `json:"to_user_id,omitempty"`
	FromLocationID  *int64          `json:"from_location_id,omitempty"`
	ToLocationID    *int64          `json:"to_location_id,omitempty"`
	ProcessedBy     int64           `json:"processed_by"`
	Notes           string          `json:"notes,omitempty"`
	ConditionBefore string          `json:"condition_before,omitempty"`
	ConditionAfter  string          `json:"condition_after,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`

	// Joined fields (not always populated).
	ItemUUID    string `json:"item_uuid,omitempty"`
	ProductName string `json:"product_name,omitempty"`
}

// QueueEntry is a pending or printed QR label.
type QueueEntry struct {
	ID          int64      `json:"id"`
	ItemID      int64      `json:"item_id"`
	UUID        string     `json:"uuid"`
	QueuedBy    int64      `json:"queued_by"`
	Note        string     `json:"note,omitempty"`
	TimeQueued  time.Time  `json:"timequeued"`
	Printed     bool       `json:"printed"`
	TimePrinted *time.Time `json:"timeprinted,omitempty"`
	PrintedBy   *int64     `json:"printed_by,omitempty"`

	// Joined fields (not always populated).
	ProductName  string `json:"product_name,omitempty"`
	StudentLabel string `json:"student_label,omitempty"`
	ProductID    *int64 `json:"product_id,omitempty"`
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}
