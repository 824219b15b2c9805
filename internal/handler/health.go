package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RootHandler reports that the service is up.
func RootHandler(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "name": name, "status": "running"})
	}
}
