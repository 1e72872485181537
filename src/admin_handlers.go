package main

import (
	"net/http"
	"strconv"

	"boxoffice/src/middlewares"
	"boxoffice/src/services"
	"boxoffice/src/types"

	"github.com/gin-gonic/gin"
)

func adminRoutes(g *gin.Engine) *gin.RouterGroup {
	admin := g.Group(apiPrefix + "/admin")
	admin.Use(middlewares.AdminMiddleware)
	{
		admin.POST("/orders/:id/reprocess", func(ctx *gin.Context) {
			var params types.OrderURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": types.ErrCodeValidation, "message": err.Error()})
				return
			}
			result, err := services.ReprocessOrder(params.ID)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, result)
		})

		admin.POST("/orders/:id/cancel", func(ctx *gin.Context) {
			var params types.OrderURIParams
			if err := ctx.ShouldBindUri(&params); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": types.ErrCodeValidation, "message": err.Error()})
				return
			}
			order, err := services.CancelOrder(params.ID, types.SOURCE_ADMIN, "cancelled by admin")
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{
				"id":           order.ID,
				"order_number": order.OrderNumber,
				"status":       order.Status,
			})
		})

		admin.POST("/outbox/retry", func(ctx *gin.Context) {
			attempted, err := services.RetryPending()
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"attempted": attempted})
		})

		admin.GET("/outbox/pending", func(ctx *gin.Context) {
			count, err := services.PendingCount()
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"pending": count})
		})

		admin.POST("/tournaments", func(ctx *gin.Context) {
			var body types.CreateTournamentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": types.ErrCodeValidation, "message": err.Error()})
				return
			}
			tournament, err := services.CreateTournament(&body)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"tournament": tournament})
		})

		admin.POST("/events", func(ctx *gin.Context) {
			var body types.CreateEventRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": types.ErrCodeValidation, "message": err.Error()})
				return
			}
			event, err := services.CreateEvent(&body)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			ctx.JSON(http.StatusCreated, gin.H{"event": event})
		})

		admin.PATCH("/categories/:id", func(ctx *gin.Context) {
			id, err := strconv.Atoi(ctx.Param("id"))
			if err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": types.ErrCodeValidation, "message": "invalid category id"})
				return
			}
			var body types.UpdateCategoryRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": types.ErrCodeValidation, "message": err.Error()})
				return
			}
			category, err := services.UpdateCategory(uint(id), &body)
			if err != nil {
				abortWithServiceError(ctx, err)
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"category": category})
		})
	}
	return admin
}
