package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"github.com/jarupong555/Detec-V1.0/internal/logger"
	"github.com/jarupong555/Detec-V1.0/internal/model"
	"github.com/jarupong555/Detec-V1.0/internal/repository"
)

const globalClassesKey = "global_classes"

var (
	ErrNotFound      = errors.New("camera not found")
	ErrInvalidCamera = errors.New("invalid camera")
)

// DeleteHook runs after a camera has been removed from the catalog.
type DeleteHook func(cameraID string)

// Service owns the camera catalog and the global class selection.
type Service struct {
	cameras        repository.CameraRepository
	settings       repository.SettingsRepository
	defaultClasses string
	logger         *logger.Logger

	hooksMu sync.RWMutex
	hooks   []DeleteHook

	now   func() time.Time
	newID func() string
}

// NewService creates a catalog. defaultClasses is the class selection used
// while no global setting has been stored.
func NewService(cameras repository.CameraRepository, settings repository.SettingsRepository, defaultClasses string, log *logger.Logger) *Service {
	return &Service{
		cameras:        cameras,
		settings:       settings,
		defaultClasses: defaultClasses,
		logger:         log,
		now:            time.Now,
		newID:          newCameraID,
	}
}

func newCameraID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// OnDelete registers a hook run after every successful delete.
func (s *Service) OnDelete(hook DeleteHook) {
	s.hooksMu.Lock()
	s.hooks = append(s.hooks, hook)
	s.hooksMu.Unlock()
}

// StreamURL is the path serving the camera's live stream.
func StreamURL(id string) string {
	return "/api/stream/" + id
}

// Validate normalizes a request into a camera without an id.
func Validate(req dto.CameraRequest) (model.Camera, error) {
	protocol, ok := model.ParseProtocol(req.Protocol)
	if !ok {
		return model.Camera{}, fmt.Errorf("%w: unsupported protocol %q", ErrInvalidCamera, req.Protocol)
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		return model.Camera{}, fmt.Errorf("%w: source is required", ErrInvalidCamera)
	}

	cam := model.Camera{
		Name:     strings.TrimSpace(req.Name),
		Location: strings.TrimSpace(req.Location),
		Protocol: protocol,
		Source:   source,
	}
	if req.DetectClasses != nil && strings.TrimSpace(*req.DetectClasses) != "" {
		classes := strings.TrimSpace(*req.DetectClasses)
		cam.DetectClasses = &classes
	}
	return cam, nil
}

// Create validates and stores a new camera under a fresh id.
func (s *Service) Create(req dto.CameraRequest) (*model.Camera, error) {
	cam, err := Validate(req)
	if err != nil {
		return nil, err
	}
	cam.ID = s.newID()
	cam.CreatedAt = s.now().UTC()

	if err := s.cameras.Insert(&cam); err != nil {
		return nil, fmt.Errorf("failed to add camera: %w", err)
	}
	s.logger.Info("Added camera %s (%s %s)", cam.ID, cam.Protocol, cam.Source)
	return &cam, nil
}

// Get returns the camera or ErrNotFound.
func (s *Service) Get(id string) (*model.Camera, error) {
	cam, err := s.cameras.GetByID(id)
	if err != nil {
		return nil, err
	}
	if cam == nil {
		return nil, ErrNotFound
	}
	return cam, nil
}

// List returns every camera in creation order.
func (s *Service) List() ([]model.Camera, error) {
	return s.cameras.GetAll()
}

// Delete removes a camera and runs the delete hooks. It reports whether
// anything was removed.
func (s *Service) Delete(id string) (bool, error) {
	removed, err := s.cameras.Delete(id)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}

	s.hooksMu.RLock()
	hooks := append([]DeleteHook(nil), s.hooks...)
	s.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(id)
	}
	s.logger.Info("Deleted camera %s", id)
	return true, nil
}

// GlobalClasses returns the stored global class selection, or "" when none
// has been set.
func (s *Service) GlobalClasses() string {
	value, ok, err := s.settings.Get(globalClassesKey)
	if err != nil {
		s.logger.Error("Failed to read global classes: %v", err)
		return ""
	}
	if !ok {
		return ""
	}
	return value
}

// EffectiveClasses is the selection applied to cameras without an override.
func (s *Service) EffectiveClasses() string {
	if v := s.GlobalClasses(); v != "" {
		return v
	}
	if s.defaultClasses != "" {
		return s.defaultClasses
	}
	return "all"
}

// SetGlobalClasses stores the global class selection.
func (s *Service) SetGlobalClasses(classes string) error {
	classes = strings.TrimSpace(classes)
	if err := s.settings.Set(globalClassesKey, classes); err != nil {
		return fmt.Errorf("failed to store global classes: %w", err)
	}
	s.logger.Info("Global classes set to %q", classes)
	return nil
}
