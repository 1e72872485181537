package models

import (
	"time"

	"boxoffice/src/types"
)

type Tournament struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	Name     string `json:"name"`
	Slug     string `gorm:"uniqueIndex" json:"slug"`
	Type     string `json:"type,omitempty"`
	Year     uint   `json:"year,omitempty"`
	Venue    string `json:"venue"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	Events []Event `json:"events,omitempty"`

	types.Timestamps
}

type Event struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	TournamentID uint   `json:"tournament_id,omitempty"`
	Title        string `json:"title"`
	Slug         string `gorm:"uniqueIndex" json:"slug"`
	// Display fields frozen into order item snapshots.
	Date      string    `json:"date"`
	Day       string    `json:"day"`
	Month     string    `json:"month"`
	Time      string    `json:"time"`
	EventDate time.Time `json:"event_date"`
	// MinPrice is a denormalized cache over purchasable categories. It is
	// recalculated by services.RecalculateMinPrice, never edited directly.
	MinPrice float64 `json:"min_price"`
	IsActive bool    `gorm:"default:true" json:"is_active"`

	Tournament Tournament `json:"-"`
	Categories []Category `json:"categories,omitempty"`

	types.Timestamps
}

// Venue returns the venue display string captured into snapshots. Requires
// Tournament to be preloaded.
func (e *Event) Venue() string {
	return e.Tournament.Venue
}

// Category is the inventory unit: seat counters change only through the
// inventory service under a row lock.
type Category struct {
	ID             uint    `gorm:"primarykey" json:"id"`
	EventID        uint    `json:"event_id,omitempty"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	Color          string  `gorm:"default:'#1e824c'" json:"color,omitempty"`
	SeatsTotal     uint    `gorm:"default:100" json:"seats_total"`
	SeatsAvailable uint    `gorm:"default:100" json:"seats_available"`
	SortOrder      uint    `gorm:"default:0" json:"sort_order"`
	IsActive       bool    `gorm:"default:true" json:"is_active"`
	ShowOnFrontend bool    `gorm:"default:true" json:"show_on_frontend"`

	Event Event `json:"-"`

	types.Timestamps
}

// Purchasable reports whether the category can currently be sold at all.
// It does not look at seat counts; sold-out is a separate condition.
func (c *Category) Purchasable() bool {
	return c.IsActive && c.ShowOnFrontend
}
