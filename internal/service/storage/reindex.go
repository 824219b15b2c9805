package storage

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jarupong555/Detec-V1.0/internal/model"
	"github.com/jarupong555/Detec-V1.0/internal/repository"
)

// collisionSuffix matches the "-N" added when two saves share a timestamp.
var collisionSuffix = regexp.MustCompile(`-\d+$`)

// ParsedName is the information encoded in a saved image name.
type ParsedName struct {
	Class     string
	Camera    string
	Timestamp time.Time
}

// ParseFilename splits "<class>_<camera>_<yyyymmdd>_<hh-mm-ss.mmm>[-N].jpg".
// Timestamps are interpreted in loc.
func ParseFilename(filename string, loc *time.Location) (ParsedName, error) {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	name = collisionSuffix.ReplaceAllString(name, "")
	parts := strings.Split(name, "_")

	if len(parts) < 4 {
		return ParsedName{}, fmt.Errorf("invalid filename format: %s", filename)
	}

	n := len(parts)
	timestamp, err := time.ParseInLocation(TimestampLayout, parts[n-2]+"_"+parts[n-1], loc)
	if err != nil {
		return ParsedName{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}

	return ParsedName{
		Class:     parts[0],
		Camera:    strings.Join(parts[1:n-2], "_"),
		Timestamp: timestamp,
	}, nil
}

// ReindexResult summarizes a Reindex run.
type ReindexResult struct {
	Indexed int
	Skipped int
}

// Reindex walks every folder of the store and records each image in the
// index. Images already indexed under the same path are replaced along with
// their detections. Names that cannot be parsed fall back to the file time and
// an unknown camera.
func (s *Store) Reindex(imageRepo repository.ImageRepository, detectionRepo repository.DetectionRepository) (ReindexResult, error) {
	var result ReindexResult

	folders, err := s.Folders()
	if err != nil {
		return result, err
	}

	for _, folder := range folders {
		files, err := s.List(folder)
		if err != nil {
			s.logger.Warning("Skipping folder %s: %v", folder, err)
			continue
		}

		for _, file := range files {
			parsed, err := ParseFilename(file.Name, s.opts.Location)
			if err != nil {
				s.logger.Warning("Unrecognized image name %s: %v", file.Name, err)
				parsed = ParsedName{Camera: "unknown", Timestamp: file.ModTime}
			}

			if err := imageRepo.DeleteByPath(file.Path); err != nil {
				s.logger.Error("Failed to reset index entry of %s: %v", file.Path, err)
				result.Skipped++
				continue
			}
			id, err := imageRepo.Insert(&model.Image{
				Filename:  file.Name,
				Camera:    parsed.Camera,
				Location:  folder,
				Timestamp: parsed.Timestamp,
				FilePath:  file.Path,
				FileSize:  file.Size,
			})
			if err != nil {
				s.logger.Error("Failed to index %s: %v", file.Path, err)
				result.Skipped++
				continue
			}

			if detectionRepo != nil && parsed.Class != "" {
				// File names carry the label only, so the class id is unknown.
				if err := detectionRepo.InsertBatch([]model.Detection{{ImageID: id, ClassID: -1, ObjectName: parsed.Class}}); err != nil {
					s.logger.Warning("Failed to index detection of %s: %v", file.Name, err)
				}
			}
			result.Indexed++
		}
	}
	return result, nil
}
