package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/httpx"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/order"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/payment"
)

// placeOrderHandler godoc
// @Summary      Place an order
// @Description  Reserves stock for every line, snapshots prices, and creates the order. Online payments return an intent to complete.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        request body order.PlaceOrderRequest true "checkout payload"
// @Success      201 {object} map[string]any
// @Failure      400 {object} httpx.ErrorResponse
// @Router       /orders [post]
func placeOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		buyer := httpx.CurrentUser(c)

		var req order.PlaceOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.WriteError(c, http.StatusBadRequest, httpx.CodeValidation, "invalid request body")
			return
		}

		lines := make([]order.Line, 0, len(req.Items))
		for _, it := range req.Items {
			lines = append(lines, order.Line{
				ProductID:  it.ProductID,
				VariantKey: it.VariantKey,
				Quantity:   it.Quantity,
			})
		}

		placed, err := svc.PlaceOrder(c.Request.Context(), buyer, lines, req.PaymentMethod, req.DeliveryAddress)
		if err != nil {
			httpx.WriteDomainError(c, err)
			return
		}

		resp := gin.H{"order": placed.Order}
		if placed.Intent != nil {
			resp["payment"] = placed.Intent
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// listOrdersHandler godoc
// @Summary      List orders
// @Description  scope=self returns the caller's orders; scope=all requires the admin role.
// @Tags         orders
// @Produce      json
// @Param        scope query string false "self|all" default(self)
// @Success      200 {object} map[string]any
// @Failure      403 {object} httpx.ErrorResponse
// @Router       /orders [get]
func listOrdersHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		buyer := httpx.CurrentUser(c)
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		var (
			orders []order.Order
			err    error
		)
		switch c.DefaultQuery("scope", "self") {
		case "all":
			if !buyer.IsAdmin() {
				httpx.WriteError(c, http.StatusForbidden, httpx.CodeForbidden, "admin access required")
				return
			}
			orders, err = svc.ListAll(c.Request.Context(), limit, offset)
		case "self":
			orders, err = svc.ListByBuyer(c.Request.Context(), buyer.ID, limit, offset)
		default:
			httpx.WriteError(c, http.StatusBadRequest, httpx.CodeValidation, "scope must be self or all")
			return
		}
		if err != nil {
			httpx.WriteDomainError(c, err)
			return
		}
		if orders == nil {
			orders = []order.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders})
	}
}

// getOrderHandler godoc
// @Summary      Get one order
// @Tags         orders
// @Produce      json
// @Param        id path string true "order id"
// @Success      200 {object} order.Order
// @Failure      404 {object} httpx.ErrorResponse
// @Router       /orders/{id} [get]
func getOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		buyer := httpx.CurrentUser(c)
		o, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.WriteDomainError(c, err)
			return
		}
		if o.BuyerID != buyer.ID && !buyer.IsAdmin() {
			// Do not leak existence of other buyers' orders.
			httpx.WriteError(c, http.StatusNotFound, httpx.CodeNotFound, "order not found")
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// confirmOrderHandler godoc
// @Summary      Confirm a fresh order (admin)
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "order id"
// @Param        request body order.ConfirmOrderRequest true "delivery estimate"
// @Success      200 {object} order.Order
// @Failure      409 {object} httpx.ErrorResponse
// @Router       /orders/{id}/confirm [put]
func confirmOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.ConfirmOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.WriteError(c, http.StatusBadRequest, httpx.CodeValidation, "invalid request body")
			return
		}
		eta, err := parseDate(req.EstimatedDeliveryDate)
		if err != nil {
			httpx.WriteError(c, http.StatusBadRequest, httpx.CodeValidation, "invalid estimatedDeliveryDate")
			return
		}
		o, err := svc.Confirm(c.Request.Context(), c.Param("id"), eta)
		if err != nil {
			httpx.WriteDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// updateStatusHandler godoc
// @Summary      Change order status (admin)
// @Description  Applies the status through the transition table; illegal moves return 409.
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "order id"
// @Param        request body order.UpdateStatusRequest true "target status"
// @Success      200 {object} order.Order
// @Failure      409 {object} httpx.ErrorResponse
// @Router       /orders/{id}/status [put]
func updateStatusHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.WriteError(c, http.StatusBadRequest, httpx.CodeValidation, "invalid request body")
			return
		}
		o, err := svc.Transition(c.Request.Context(), c.Param("id"), order.Status(req.Status))
		if err != nil {
			httpx.WriteDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// feedbackHandler godoc
// @Summary      Record delivery feedback (admin)
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "order id"
// @Param        request body order.FeedbackRequest true "feedback status"
// @Success      200 {object} order.Order
// @Failure      409 {object} httpx.ErrorResponse
// @Router       /orders/{id}/feedback [put]
func feedbackHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.FeedbackRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.WriteError(c, http.StatusBadRequest, httpx.CodeValidation, "invalid request body")
			return
		}
		o, err := svc.RecordFeedback(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			httpx.WriteDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// notifyMessageHandler godoc
// @Summary      Send an ad-hoc message to the buyer (admin)
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "order id"
// @Param        request body order.NotifyMessageRequest true "message"
// @Success      202 {object} map[string]any
// @Router       /orders/{id}/notify/message [post]
func notifyMessageHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.NotifyMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.WriteError(c, http.StatusBadRequest, httpx.CodeValidation, "invalid request body")
			return
		}
		if err := svc.SendMessage(c.Request.Context(), c.Param("id"), req.Message); err != nil {
			httpx.WriteDomainError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": true})
	}
}

// purgeOrderHandler godoc
// @Summary      Irreversibly delete an order (admin)
// @Tags         orders
// @Param        id path string true "order id"
// @Success      204
// @Failure      404 {object} httpx.ErrorResponse
// @Router       /orders/{id} [delete]
func purgeOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Purge(c.Request.Context(), c.Param("id")); err != nil {
			httpx.WriteDomainError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

type createIntentRequest struct {
	Amount string `json:"amount" example:"499.00"`
}

// createIntentHandler godoc
// @Summary      Open a payable intent at the gateway
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body createIntentRequest true "amount"
// @Success      200 {object} payment.Intent
// @Failure      502 {object} httpx.ErrorResponse
// @Router       /payments/intent [post]
func createIntentHandler(intents payment.IntentCreator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createIntentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.WriteError(c, http.StatusBadRequest, httpx.CodeValidation, "invalid request body")
			return
		}
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || amount.IsNegative() || amount.IsZero() {
			httpx.WriteError(c, http.StatusBadRequest, httpx.CodeValidation, "amount must be a positive decimal")
			return
		}
		intent, err := intents.CreateIntent(c.Request.Context(), amount)
		if err != nil {
			httpx.WriteDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, intent)
	}
}

type verifyPaymentRequest struct {
	OrderID   string `json:"order_id"`
	IntentID  string `json:"intent_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

// verifyPaymentHandler godoc
// @Summary      Verify payment proof and mark the order paid
// @Description  Recomputes the gateway signature over intent and payment ids. A mismatch leaves the order untouched.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body verifyPaymentRequest true "payment proof"
// @Success      200 {object} map[string]any
// @Failure      402 {object} httpx.ErrorResponse
// @Router       /payments/verify [post]
func verifyPaymentHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.WriteError(c, http.StatusBadRequest, httpx.CodeValidation, "invalid request body")
			return
		}
		o, err := svc.ConfirmPayment(c.Request.Context(), req.OrderID, req.IntentID, req.PaymentID, req.Signature)
		if err != nil {
			httpx.WriteDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "order": o})
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("unsupported date format")
}
