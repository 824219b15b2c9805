package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
)

// ShowLogsHandler serves the log file of the :level parameter as text/plain.
func ShowLogsHandler(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		level := c.Param("level")
		path, ok := logger.LogFile(level)
		if !ok {
			detail(c, http.StatusNotFound, "unknown log level: "+level)
			return
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			detail(c, http.StatusNotFound, "log file not found: "+level)
			return
		}

		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Header("Cache-Control", "no-cache")
		c.File(path)
	}
}

// ClearLogsHandler truncates the log file of the :level parameter.
func ClearLogsHandler(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := logger.CleanLogs(c.Param("level")); err != nil {
			detail(c, http.StatusNotFound, err.Error())
			return
		}
		c.Status(http.StatusNoContent)
	}
}
