package handlers

import (
	"net/http"

	"servicehub/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the last dependency health snapshot. It answers 503
// when the booking store is unreachable.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if !status.CheckedAt.IsZero() && !status.Mongo {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": http.StatusText(code), "dependencies": status})
}
