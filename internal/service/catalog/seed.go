package catalog

import (
	"fmt"
	"strings"

	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"github.com/jarupong555/Detec-V1.0/internal/model"
)

// ParseCameraList parses "name,location,protocol,source;..." entries.
// A source may itself contain commas; everything after the third comma is
// kept as the source.
func ParseCameraList(list string) ([]dto.CameraRequest, error) {
	var reqs []dto.CameraRequest
	for i, entry := range strings.Split(list, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ",", 4)
		if len(parts) != 4 {
			return nil, fmt.Errorf("camera list entry %d: expected name,location,protocol,source", i+1)
		}
		reqs = append(reqs, dto.CameraRequest{
			Name:     strings.TrimSpace(parts[0]),
			Location: strings.TrimSpace(parts[1]),
			Protocol: strings.TrimSpace(parts[2]),
			Source:   strings.TrimSpace(parts[3]),
		})
	}
	return reqs, nil
}

// Seed adds the cameras of a CAMERA_LIST value, skipping sources already in
// the catalog. It returns the cameras that were added.
func (s *Service) Seed(list string) ([]model.Camera, error) {
	reqs, err := ParseCameraList(list)
	if err != nil {
		return nil, err
	}

	var added []model.Camera
	for _, req := range reqs {
		cam, err := Validate(req)
		if err != nil {
			s.logger.Warning("Skipping camera %q from list: %v", req.Name, err)
			continue
		}
		existing, err := s.cameras.FindBySource(cam.Protocol, cam.Source)
		if err != nil {
			return added, err
		}
		if existing != nil {
			continue
		}
		created, err := s.Create(req)
		if err != nil {
			return added, err
		}
		added = append(added, *created)
	}
	return added, nil
}
