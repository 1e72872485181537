package services

import (
	"errors"
	"log"

	"boxoffice/src/config"
	"boxoffice/src/db"
	"boxoffice/src/models"

	"gorm.io/gorm"
)

// EnsureDefaultSalesChannel seeds the default channel on boot if it does not
// exist yet. Channels are never created on demand during checkout.
func EnsureDefaultSalesChannel() error {
	conn := db.GetDb()
	var channel models.SalesChannel
	err := conn.Where("domain = ?", config.DefaultChannelDomain).First(&channel).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	channel = models.SalesChannel{
		Name:     "Dubai Tennis Tickets",
		Domain:   config.DefaultChannelDomain,
		Currency: "USD",
		IsActive: true,
	}
	if err := conn.Create(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return err
	}
	log.Printf("seeded default sales channel %s\n", channel.Domain)
	return nil
}

// ResolveSalesChannel maps a request origin to an active channel, falling
// back to the default one. Returns nil when no channel is configured at all.
func ResolveSalesChannel(tx *gorm.DB, domain string) *models.SalesChannel {
	if domain != "" {
		var channel models.SalesChannel
		err := tx.Where("domain = ? AND is_active = ?", domain, true).First(&channel).Error
		if err == nil {
			return &channel
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("error resolving sales channel for %s: %s\n", domain, err.Error())
		}
	}
	var fallback models.SalesChannel
	err := tx.Where("domain = ? AND is_active = ?", config.DefaultChannelDomain, true).First(&fallback).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("error loading default sales channel: %s\n", err.Error())
		}
		return nil
	}
	return &fallback
}
