package httpx

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/order"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/payment"
)

const (
	CodeValidation        = "validation_error"
	CodeInsufficientStock = "insufficient_stock"
	CodeIllegalTransition = "illegal_transition"
	CodePaymentFailed     = "payment_verification_failed"
	CodePaymentGateway    = "payment_gateway_error"
	CodeNotFound          = "not_found"
	CodeUnauthorized      = "unauthorized"
	CodeForbidden         = "forbidden"
	CodeInternal          = "internal_error"
)

// ErrorResponse is the error envelope returned by every endpoint.
// swagger:model ErrorResponse
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func WriteError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, ErrorResponse{Message: msg, Code: code})
}

// WriteDomainError maps the fulfillment error taxonomy onto HTTP once, so
// handlers never reinvent the mapping.
func WriteDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrValidation):
		WriteError(c, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, order.ErrInsufficientStock):
		WriteError(c, http.StatusBadRequest, CodeInsufficientStock, err.Error())
	case errors.Is(err, order.ErrIllegalTransition):
		WriteError(c, http.StatusConflict, CodeIllegalTransition, err.Error())
	case errors.Is(err, payment.ErrVerificationFailed):
		WriteError(c, http.StatusPaymentRequired, CodePaymentFailed, err.Error())
	case errors.Is(err, payment.ErrGateway):
		WriteError(c, http.StatusBadGateway, CodePaymentGateway, err.Error())
	case errors.Is(err, order.ErrNotFound):
		WriteError(c, http.StatusNotFound, CodeNotFound, err.Error())
	default:
		WriteError(c, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}
