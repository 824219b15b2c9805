package handler

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/model"
	"github.com/jarupong555/Detec-V1.0/internal/repository"
	"github.com/jarupong555/Detec-V1.0/internal/service/storage"
)

// GetPicturesHandler returns a filtered, paginated list of saved images.
func GetPicturesHandler(store *storage.Store, imageRepo repository.ImageRepository,
	detectionRepo repository.DetectionRepository, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := atoiDefault(c.Query("page"), 1)
		limit := atoiDefault(c.Query("limit"), 24)

		filter := &dto.ImageFilters{
			Camera:     c.Query("camera"),
			Location:   c.Query("location"),
			Object:     c.Query("object"),
			DateAfter:  parseDate(c.Query("dateAfter")),
			DateBefore: parseDate(c.Query("dateBefore")),
			TimeAfter:  parseTimeOfDay(c.Query("timeAfter")),
			TimeBefore: parseTimeOfDay(c.Query("timeBefore")),
			Limit:      limit,
			Offset:     (page - 1) * limit,
		}

		images, err := imageRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying images from database: %v", err)
			detail(c, http.StatusInternalServerError, "failed to query images")
			return
		}

		totalSize, err := imageRepo.GetDirectorySize()
		if err != nil {
			logger.Error("Error getting image directory size: %v", err)
			totalSize = 0
		}

		totalCount, err := imageRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting images: %v", err)
			totalCount = len(images)
		}

		var byImage map[int64][]model.Detection
		objectNames := []string{}
		if detectionRepo != nil {
			ids := make([]int64, len(images))
			for i, img := range images {
				ids[i] = img.ID
			}
			if byImage, err = detectionRepo.GetByImageIDs(ids); err != nil {
				logger.Error("Error getting detections for images: %v", err)
			}
			if names, err := detectionRepo.GetAllObjectNames(); err != nil {
				logger.Error("Error getting object names: %v", err)
			} else {
				objectNames = names
			}
		}

		pictures := make([]dto.ImageInfo, 0, len(images))
		for _, img := range images {
			objects, detections := summarizeDetections(byImage[img.ID])
			pictures = append(pictures, dto.ImageInfo{
				ID:         img.ID,
				Name:       img.Filename,
				Date:       img.Timestamp,
				TimeOfDay:  img.Timestamp,
				Camera:     img.Camera,
				Location:   img.Location,
				Objects:    objects,
				Detections: detections,
			})
		}

		c.JSON(http.StatusOK, dto.ImagesData{
			Images:      pictures,
			SavedDir:    store.Root(),
			Size:        totalSize,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
			Objects:     objectNames,
		})
	}
}

// summarizeDetections returns the distinct object names of an image in
// detection order, plus its boxes.
func summarizeDetections(rows []model.Detection) ([]string, []dto.DetectionResult) {
	objects := []string{}
	detections := make([]dto.DetectionResult, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, det := range rows {
		if !seen[det.ObjectName] {
			seen[det.ObjectName] = true
			objects = append(objects, det.ObjectName)
		}
		detections = append(detections, dto.DetectionResult{
			ClassID:    det.ClassID,
			Label:      det.ObjectName,
			Confidence: det.Confidence,
			X:          det.X,
			Y:          det.Y,
			Width:      det.Width,
			Height:     det.Height,
			TrackID:    det.TrackID,
		})
	}
	return objects, detections
}

// ViewPictureHandler serves one saved image selected by its index id.
func ViewPictureHandler(imageRepo repository.ImageRepository, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Query("id"), 10, 64)
		if err != nil {
			detail(c, http.StatusBadRequest, "id parameter is required")
			return
		}

		img, err := imageRepo.GetByID(id)
		if err != nil {
			logger.Error("Error loading image %d: %v", id, err)
			detail(c, http.StatusInternalServerError, "failed to load image")
			return
		}
		if img == nil {
			detail(c, http.StatusNotFound, "image not found")
			return
		}
		if _, err := os.Stat(img.FilePath); errors.Is(err, os.ErrNotExist) {
			detail(c, http.StatusNotFound, "image file missing")
			return
		}

		c.Header("Content-Type", "image/jpeg")
		c.File(img.FilePath)
	}
}

// PictureStatsHandler reports totals per location and per object class.
func PictureStatsHandler(imageRepo repository.ImageRepository, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := imageRepo.GetStats()
		if err != nil {
			logger.Error("Error computing image stats: %v", err)
			detail(c, http.StatusInternalServerError, "failed to compute stats")
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// DeletePictureHandler removes an image from disk and from the index.
func DeletePictureHandler(imageRepo repository.ImageRepository, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			detail(c, http.StatusBadRequest, "invalid image id")
			return
		}

		img, err := imageRepo.GetByID(id)
		if err != nil {
			logger.Error("Error loading image %d: %v", id, err)
			detail(c, http.StatusInternalServerError, "failed to load image")
			return
		}
		if img == nil {
			c.JSON(http.StatusOK, dto.DeleteResult{OK: false})
			return
		}

		if err := os.Remove(img.FilePath); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to delete file %s: %v", img.FilePath, err)
		}
		if err := imageRepo.Delete(id); err != nil {
			logger.Error("Failed to delete from database: %v", err)
			detail(c, http.StatusInternalServerError, "failed to delete image")
			return
		}

		logger.Info("Deleted picture: %s", img.Filename)
		c.JSON(http.StatusOK, dto.DeleteResult{OK: true})
	}
}

// ClearPicturesHandler deletes every saved image and clears the index.
func ClearPicturesHandler(store *storage.Store, imageRepo repository.ImageRepository, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		removed, err := store.Clear(imageRepo.DeleteAll)
		if err != nil {
			logger.Error("Error clearing pictures: %v", err)
			detail(c, http.StatusInternalServerError, "unable to clear pictures")
			return
		}

		logger.Info("Cleared %d pictures from directory: %s", removed, store.Root())
		c.Status(http.StatusNoContent)
	}
}

// atoiDefault converts s to int or returns def when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a "2006-01-02" date (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseTimeOfDay validates a "15:04" time of day and returns it normalized to
// "15:04:05", or "" when invalid.
func parseTimeOfDay(v string) string {
	if v == "" {
		return ""
	}
	t, err := time.Parse("15:04", v)
	if err != nil {
		return ""
	}
	return t.Format("15:04:05")
}
