package routes

import (
	"time"

	"servicehub/handlers"
	"servicehub/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterDispatchRoutes registers booking and offer endpoints.
func RegisterDispatchRoutes(r *gin.Engine, hb *handlers.HandlerBundle, limiter gin.HandlerFunc, opsToken string) {
	api := r.Group("/api/dispatch")
	if limiter != nil {
		api.Use(limiter)
	}
	{
		api.POST("/match", hb.RequestMatchHandler)
		api.POST("/offers/:offerId/respond", hb.RespondOfferHandler)

		api.GET("/bookings/:id", hb.GetBookingHandler)
		api.POST("/bookings/:id/cancel", hb.CancelBookingHandler)
		api.POST("/bookings/:id/signal", middleware.ServiceTokenMiddleware(opsToken), hb.SignalBookingHandler)
	}
}

// RegisterOpsRoutes registers health and metrics endpoints.
func RegisterOpsRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
	if hb.MetricsHandler != nil {
		r.GET("/metrics", hb.MetricsHandler)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, limiter gin.HandlerFunc, opsToken string) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	RegisterDispatchRoutes(r, hb, limiter, opsToken)
	RegisterOpsRoutes(r, hb)
}
