package models

import "boxoffice/src/types"

// SalesChannel determines the frozen currency of orders it originates.
// Channels are seeded at boot, not auto-vivified on first access.
type SalesChannel struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	Name     string `gorm:"uniqueIndex" json:"name"`
	Domain   string `gorm:"uniqueIndex" json:"domain"`
	Currency string `gorm:"default:'USD'" json:"currency"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	types.Timestamps
}
