package repository

import (
	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"github.com/jarupong555/Detec-V1.0/internal/model"
)

// CameraRepository defines the interface for the camera catalog.
type CameraRepository interface {
	Insert(cam *model.Camera) error
	GetByID(id string) (*model.Camera, error)
	GetAll() ([]model.Camera, error)
	FindBySource(protocol model.Protocol, source string) (*model.Camera, error)
	Delete(id string) (bool, error)
}

// SettingsRepository stores global key/value settings.
type SettingsRepository interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// ImageRepository defines the interface for image data operations.
type ImageRepository interface {
	// Create operations
	Insert(img *model.Image) (int64, error)

	// Read operations
	GetByID(id int64) (*model.Image, error)
	GetAll(filter *dto.ImageFilters) ([]model.Image, error)
	GetTotalCount(filter *dto.ImageFilters) (int, error)
	GetDirectorySize() (int64, error)
	GetStats() (*model.ImageStats, error)

	// Delete operations
	Delete(id int64) error
	DeleteByPath(path string) error
	DeleteAll() error
}

// DetectionRepository defines the interface for detection data operations.
// Detections are removed together with their image by ImageRepository.
type DetectionRepository interface {
	InsertBatch(detections []model.Detection) error
	GetByImageIDs(imageIDs []int64) (map[int64][]model.Detection, error)
	GetAllObjectNames() ([]string, error)
}
