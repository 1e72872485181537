package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"boxoffice/src/db"
	"boxoffice/src/lib"
	"boxoffice/src/models"
	"boxoffice/src/types"

	"gorm.io/gorm"
)

func eventCacheKey(slug string) string {
	return fmt.Sprintf("event:%s", slug)
}

const eventListCacheKey = "events:list"

// ReserveSeats decrements the seat counter for a category inside tx. The row
// must already be locked by the caller; this re-checks availability against
// the locked row so the check and the decrement see the same value.
func ReserveSeats(tx *gorm.DB, category *models.Category, quantity uint) error {
	if !category.Purchasable() {
		return types.CategoryNotPurchasableError(category.Name, "closed")
	}
	if category.SeatsAvailable == 0 {
		return types.CategoryNotPurchasableError(category.Name, "sold_out")
	}
	if category.SeatsAvailable < quantity {
		return types.InsufficientSeatsError(category.Name, category.SeatsAvailable, quantity)
	}
	category.SeatsAvailable -= quantity
	return tx.Model(category).Update("seats_available", category.SeatsAvailable).Error
}

// ReleaseSeats returns seats to a category, clamped at SeatsTotal so repeated
// releases for the same order can never inflate inventory past capacity.
func ReleaseSeats(tx *gorm.DB, categoryId uint, quantity uint) error {
	var category models.Category
	if err := db.ForUpdate(tx).First(&category, categoryId).Error; err != nil {
		return err
	}
	restored := category.SeatsAvailable + quantity
	if restored > category.SeatsTotal {
		restored = category.SeatsTotal
	}
	return tx.Model(&category).Update("seats_available", restored).Error
}

// RecalculateMinPrice refreshes the denormalized minimum price of an event
// from its purchasable categories with seats remaining. Events with no such
// category get zero.
func RecalculateMinPrice(tx *gorm.DB, eventId uint) error {
	var minPrice sql.NullFloat64
	err := tx.Model(&models.Category{}).
		Where("event_id = ? AND is_active = ? AND show_on_frontend = ? AND seats_available > 0", eventId, true, true).
		Select("MIN(price)").
		Row().
		Scan(&minPrice)
	if err != nil {
		return err
	}
	price := 0.0
	if minPrice.Valid {
		price = minPrice.Float64
	}
	return tx.Model(&models.Event{}).Where("id = ?", eventId).Update("min_price", price).Error
}

// UpdateCategory applies an admin update to catalog data and keeps the parent
// event's cached minimum price in sync. Catalog edits never touch existing
// orders; item snapshots are frozen.
func UpdateCategory(categoryId uint, body *types.UpdateCategoryRequestBody) (*models.Category, error) {
	var category models.Category
	err := db.GetDb().Transaction(func(tx *gorm.DB) error {
		if err := db.ForUpdate(tx).First(&category, categoryId).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return types.CategoryNotFoundError(categoryId, 0)
			}
			return err
		}
		updates := map[string]any{}
		if body.Price != nil {
			updates["price"] = *body.Price
		}
		if body.IsActive != nil {
			updates["is_active"] = *body.IsActive
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&category).Updates(updates).Error; err != nil {
			return err
		}
		return RecalculateMinPrice(tx, category.EventID)
	})
	if err != nil {
		return nil, err
	}
	invalidateEventCache(category.EventID)
	return &category, nil
}

// invalidateEventCache drops cached catalog reads after inventory or pricing
// changes. Failures are logged, not returned; the cache carries TTLs.
func invalidateEventCache(eventId uint) {
	var event models.Event
	if err := db.GetDb().First(&event, eventId).Error; err != nil {
		log.Printf("could not load event %d for cache invalidation: %s\n", eventId, err.Error())
		return
	}
	lib.CacheDel(context.Background(), eventCacheKey(event.Slug), eventListCacheKey)
}
