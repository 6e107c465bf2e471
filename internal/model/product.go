package model

import "time"

// Product is a catalog entry. Many items can share one product and its UPC.
type Product struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	Model        string    `json:"model,omitempty"`
	Category     string    `json:"category,omitempty"`
	UPC          string    `json:"upc,omitempty"`
	IsConsumable bool      `json:"is_consumable"`
	Active       bool      `json:"active"`
	ImageMime    string    `json:"image_mime,omitempty"`
	TimeCreated  time.Time `json:"timecreated"`
	TimeModified time.Time `json:"timemodified"`
}
