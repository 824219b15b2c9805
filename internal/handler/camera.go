package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/model"
	"github.com/jarupong555/Detec-V1.0/internal/service/catalog"
)

// CameraCatalog is the catalog surface used by the HTTP handlers.
type CameraCatalog interface {
	Create(req dto.CameraRequest) (*model.Camera, error)
	Get(id string) (*model.Camera, error)
	List() ([]model.Camera, error)
	Delete(id string) (bool, error)
	EffectiveClasses() string
	SetGlobalClasses(classes string) error
}

// WorkerStatus reports whether a camera currently has a live worker.
type WorkerStatus interface {
	Running(cameraID string) bool
}

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

func toCameraResponse(cam model.Camera, workers WorkerStatus) dto.CameraResponse {
	return dto.CameraResponse{
		ID:            cam.ID,
		Name:          cam.Name,
		Location:      cam.Location,
		Protocol:      string(cam.Protocol),
		Source:        cam.Source,
		DetectClasses: cam.DetectClasses,
		StreamURL:     catalog.StreamURL(cam.ID),
		Running:       workers != nil && workers.Running(cam.ID),
		CreatedAt:     cam.CreatedAt,
	}
}

// ListCamerasHandler returns every camera in the catalog.
func ListCamerasHandler(cameras CameraCatalog, workers WorkerStatus, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := cameras.List()
		if err != nil {
			logger.Error("Error listing cameras: %v", err)
			detail(c, http.StatusInternalServerError, "failed to list cameras")
			return
		}

		out := make([]dto.CameraResponse, 0, len(list))
		for _, cam := range list {
			out = append(out, toCameraResponse(cam, workers))
		}
		c.JSON(http.StatusOK, out)
	}
}

// AddCameraHandler validates and stores a camera.
func AddCameraHandler(cameras CameraCatalog, workers WorkerStatus, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.CameraRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			detail(c, http.StatusBadRequest, err.Error())
			return
		}

		cam, err := cameras.Create(req)
		if errors.Is(err, catalog.ErrInvalidCamera) {
			detail(c, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			logger.Error("Error adding camera: %v", err)
			detail(c, http.StatusInternalServerError, "failed to add camera")
			return
		}
		c.JSON(http.StatusCreated, toCameraResponse(*cam, workers))
	}
}

// GetCameraHandler returns one camera.
func GetCameraHandler(cameras CameraCatalog, workers WorkerStatus, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cam, err := cameras.Get(c.Param("id"))
		if errors.Is(err, catalog.ErrNotFound) {
			detail(c, http.StatusNotFound, "camera not found")
			return
		}
		if err != nil {
			logger.Error("Error loading camera %s: %v", c.Param("id"), err)
			detail(c, http.StatusInternalServerError, "failed to load camera")
			return
		}
		c.JSON(http.StatusOK, toCameraResponse(*cam, workers))
	}
}

// DeleteCameraHandler removes a camera and stops its worker.
func DeleteCameraHandler(cameras CameraCatalog, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := cameras.Delete(c.Param("id"))
		if err != nil {
			logger.Error("Error deleting camera %s: %v", c.Param("id"), err)
			detail(c, http.StatusInternalServerError, "failed to delete camera")
			return
		}
		c.JSON(http.StatusOK, dto.DeleteResult{OK: ok})
	}
}

// GetClassesHandler returns the class selection used by cameras without an override.
func GetClassesHandler(cameras CameraCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.ClassesConfig{Classes: cameras.EffectiveClasses()})
	}
}

// SetClassesHandler stores the global class selection.
func SetClassesHandler(cameras CameraCatalog, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.ClassesConfig
		if err := c.ShouldBindJSON(&req); err != nil {
			detail(c, http.StatusBadRequest, err.Error())
			return
		}
		if err := cameras.SetGlobalClasses(req.Classes); err != nil {
			logger.Error("Error storing classes: %v", err)
			detail(c, http.StatusInternalServerError, "failed to store classes")
			return
		}
		c.JSON(http.StatusOK, dto.ClassesConfig{Classes: cameras.EffectiveClasses()})
	}
}
