package model

import "time"

// Location is a storage place that can hold items.
type Location struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Address      string    `json:"address,omitempty"`
	Zone         string    `json:"zone,omitempty"`
	Active       bool      `json:"active"`
	TimeCreated  time.Time `json:"timecreated"`
	TimeModified time.Time `json:"timemodified"`
}
