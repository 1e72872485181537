package main

import (
	"log"
	"net/http"

	"boxoffice/src/services"
	"boxoffice/src/types"

	"github.com/gin-gonic/gin"
)

func orderRoutes(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)

	apiv1.POST("/orders", func(ctx *gin.Context) {
		var body types.CreateOrderRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": types.ErrCodeValidation, "message": err.Error()})
			return
		}
		order, err := services.CreateOrder(&body, ctx.Request.Host)
		if err != nil {
			abortWithServiceError(ctx, err)
			return
		}
		ctx.JSON(http.StatusCreated, gin.H{
			"id":           order.ID,
			"order_number": order.OrderNumber,
			"status":       order.Status,
			"total_amount": order.TotalAmount,
			"currency":     order.Currency,
			"items":        order.Items,
		})
	})

	// Creates the order and its hosted checkout session in one round trip.
	apiv1.POST("/checkout/create-session", func(ctx *gin.Context) {
		var body types.CreateOrderRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": types.ErrCodeValidation, "message": err.Error()})
			return
		}
		order, err := services.CreateOrder(&body, ctx.Request.Host)
		if err != nil {
			abortWithServiceError(ctx, err)
			return
		}
		_, checkoutURL, err := services.CreateOrderCheckoutSession(order.ID.String())
		if err != nil {
			// The order exists and its seats are held; the client can retry
			// session creation without re-submitting the cart.
			log.Printf("error creating checkout session for order %s: %s\n", order.OrderNumber, err.Error())
			ctx.JSON(http.StatusBadGateway, gin.H{
				"error":        "checkout_session_failed",
				"order_id":     order.ID,
				"order_number": order.OrderNumber,
			})
			return
		}
		ctx.JSON(http.StatusCreated, gin.H{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"checkout_url": checkoutURL,
		})
	})

	apiv1.POST("/stripe/create-checkout-session", func(ctx *gin.Context) {
		var body types.CreateSessionRequestBody
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": types.ErrCodeValidation, "message": err.Error()})
			return
		}
		order, checkoutURL, err := services.CreateOrderCheckoutSession(body.OrderID)
		if err != nil {
			abortWithServiceError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
			"checkout_url": checkoutURL,
		})
	})

	// Read-only status poll for the post-checkout page. Payment state changes
	// only through webhooks or reprocessing, never through this endpoint.
	apiv1.GET("/orders/:id/status", func(ctx *gin.Context) {
		var params types.OrderURIParams
		if err := ctx.ShouldBindUri(&params); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": types.ErrCodeValidation, "message": err.Error()})
			return
		}
		order, err := services.GetOrder(params.ID)
		if err != nil {
			abortWithServiceError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, gin.H{
			"id":           order.ID,
			"order_number": order.OrderNumber,
			"status":       order.Status,
			"total_amount": order.TotalAmount,
			"currency":     order.Currency,
			"paid_at":      order.PaidAt,
		})
	})

	return apiv1
}
