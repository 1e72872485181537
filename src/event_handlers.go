package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"boxoffice/src/db"
	"boxoffice/src/lib"
	"boxoffice/src/models"
	"boxoffice/src/types"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const eventCacheTTL = 5 * time.Minute

func eventRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)

	apiv1.GET("/events", func(ctx *gin.Context) {
		if cached := lib.CacheGet(context.Background(), "events:list"); cached != "" {
			ctx.Data(http.StatusOK, "application/json", []byte(cached))
			return
		}
		var events []models.Event
		err := db.GetDb().
			Where("is_active = ?", true).
			Order("event_date ASC").
			Find(&events).
			Error
		if err != nil {
			log.Printf("Error listing events: %s\n", err.Error())
			ctx.Status(http.StatusInternalServerError)
			return
		}
		body, err := json.Marshal(gin.H{"events": events})
		if err != nil {
			ctx.Status(http.StatusInternalServerError)
			return
		}
		lib.CacheSet(context.Background(), "events:list", string(body), eventCacheTTL)
		ctx.Data(http.StatusOK, "application/json", body)
	})

	apiv1.GET("/events/:slug", func(ctx *gin.Context) {
		slug := ctx.Param("slug")
		cacheKey := fmt.Sprintf("event:%s", slug)
		if cached := lib.CacheGet(context.Background(), cacheKey); cached != "" {
			ctx.Data(http.StatusOK, "application/json", []byte(cached))
			return
		}
		var event models.Event
		err := db.GetDb().
			Preload("Tournament").
			Preload("Categories", func(tx *gorm.DB) *gorm.DB {
				return tx.Where("is_active = ? AND show_on_frontend = ?", true, true).Order("sort_order ASC")
			}).
			Where("slug = ? AND is_active = ?", slug, true).
			First(&event).
			Error
		if err == gorm.ErrRecordNotFound {
			ctx.JSON(http.StatusNotFound, gin.H{"error": types.ErrCodeEventNotFound})
			return
		}
		if err != nil {
			log.Printf("Error loading event %s: %s\n", slug, err.Error())
			ctx.Status(http.StatusInternalServerError)
			return
		}
		body, err := json.Marshal(gin.H{"event": event, "venue": event.Venue()})
		if err != nil {
			ctx.Status(http.StatusInternalServerError)
			return
		}
		lib.CacheSet(context.Background(), cacheKey, string(body), eventCacheTTL)
		ctx.Data(http.StatusOK, "application/json", body)
	})

	return apiv1
}
