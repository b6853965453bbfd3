package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// requestLocation resuelve la zona del cliente desde ?tz= o el header X-Timezone.
func requestLocation(c *gin.Context, fallback *time.Location) *time.Location {
	name := strings.TrimSpace(c.Query("tz"))
	if name == "" {
		name = strings.TrimSpace(c.GetHeader("X-Timezone"))
	}
	if name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if fallback == nil {
		return time.Local
	}
	return fallback
}
