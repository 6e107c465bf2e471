package model

import "time"

// Item is a single physical unit. At most one of LocationID and CurrentUserID
// is set; removed items have neither.
type Item struct {
	ID              int64      `json:"id"`
	UUID            string     `json:"uuid,omitempty"`
	ProductID       *int64     `json:"product_id,omitempty"`
	LocationID      *int64     `json:"location_id,omitempty"`
	CurrentUserID   *int64     `json:"current_user_id,omitempty"`
	Status          string     `json:"status"`
	ConditionStatus string     `json:"condition_status"`
	ConditionNotes  string     `json:"condition_notes,omitempty"`
	SerialNumber    string     `json:"serial_number,omitempty"`
	StudentLabel    string     `json:"student_label,omitempty"`
	RemovalDate     *time.Time `json:"removal_date,omitempty"`
	RemovalMethod   string     `json:"removal_method,omitempty"`
	TimeCreated     time.Time  `json:"timecreated"`
	TimeModified    time.Time  `json:"timemodified"`
}

// Item statuses.
const (
	ItemStatusAvailable   = "available"
	ItemStatusCheckedOut  = "checked_out"
	ItemStatusInTransit   = "in_transit"
	ItemStatusMaintenance = "maintenance"
	ItemStatusDamaged     = "damaged"
	ItemStatusLost        = "lost"
	ItemStatusRemoved     = "removed"
)

// Item conditions.
const (
	ConditionExcellent = "excellent"
	ConditionGood      = "good"
	ConditionFair      = "fair"
	ConditionPoor      = "poor"
)

// Removal methods.
const (
	RemovalQRScan       = "qr_scan"
	RemovalEmergencyUPC = "emergency_upc"
	RemovalManual       = "manual"
)

// ValidItemStatus reports whether s is a known item status.
func ValidItemStatus(s string) bool {
	switch s {
	case ItemStatusAvailable, ItemStatusCheckedOut, ItemStatusInTransit,
		ItemStatusMaintenance, ItemStatusDamaged, ItemStatusLost, ItemStatusRemoved:
		return true
	}
	return false
}

// ValidCondition reports whether c is a known condition.
func ValidCondition(c string) bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Labeled reports whether the item carries a QR label.
func (i *Item) Labeled() bool {
	return i.UUID != ""
}

// Removed reports whether the item has reached the terminal status.
func (i *Item) Removed() bool {
	return i.Status == ItemStatusRemoved
}

// UUIDHistory associates an item with a UUID it has been assigned.
type UUIDHistory struct {
	ID          int64     `json:"id"`
	ItemID      int64     `json:"itemid"`
	UUID        string    `json:"uuid"`
	IsActive    bool      `json:"is_active"`
	CreatedBy   int64     `json:"created_by"`
	TimeCreated time.Time `json:"timecreated"`
}
