package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Dispatch endpoints
	RequestMatchHandler  gin.HandlerFunc
	RespondOfferHandler  gin.HandlerFunc
	CancelBookingHandler gin.HandlerFunc
	SignalBookingHandler gin.HandlerFunc
	GetBookingHandler    gin.HandlerFunc

	// Operational endpoints
	HealthHandler  gin.HandlerFunc
	MetricsHandler gin.HandlerFunc
}
