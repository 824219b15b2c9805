package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/model"
	"github.com/jarupong555/Detec-V1.0/internal/service/catalog"
	"github.com/jarupong555/Detec-V1.0/internal/service/stream"
)

// StreamOpener starts (or joins) a camera worker and returns a client stream.
type StreamOpener interface {
	Open(ctx context.Context, camera model.Camera) (*stream.Stream, error)
}

// StreamHandler serves a camera as a multipart JPEG stream.
func StreamHandler(cameras CameraCatalog, streams StreamOpener, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		cam, err := cameras.Get(id)
		if errors.Is(err, catalog.ErrNotFound) {
			detail(c, http.StatusNotFound, "camera not found")
			return
		}
		if err != nil {
			logger.Error("Error loading camera %s: %v", id, err)
			detail(c, http.StatusInternalServerError, "failed to load camera")
			return
		}

		ctx := c.Request.Context()
		s, err := streams.Open(ctx, *cam)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warning("Camera %s unavailable: %v", id, err)
			detail(c, http.StatusServiceUnavailable, "camera unavailable")
			return
		}

		logger.Info("Stream client connected to camera %s", id)
		c.Header("Content-Type", stream.ContentType)
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Connection", "keep-alive")
		c.Status(http.StatusOK)

		c.Stream(func(w io.Writer) bool {
			chunk, err := s.Next(ctx)
			if err != nil {
				return false
			}
			_, err = w.Write(chunk)
			return err == nil
		})
		logger.Info("Stream client left camera %s", id)
	}
}
