package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jarupong555/Detec-V1.0/internal/model"
)

// DetectionRepository stores the boxes found on each saved image.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// InsertBatch stores the detections of one or more images in a single transaction.
func (r *DetectionRepository) InsertBatch(detections []model.Detection) error {
	if len(detections) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO detections (image_id, class_id, object_name, track_id, x, y, width, height, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, det := range detections {
		var track sql.NullInt64
		if det.TrackID != nil {
			track = sql.NullInt64{Int64: int64(*det.TrackID), Valid: true}
		}
		if _, err := stmt.Exec(det.ImageID, det.ClassID, det.ObjectName, track,
			det.X, det.Y, det.Width, det.Height, det.Confidence); err != nil {
			return fmt.Errorf("failed to insert detection for image %d: %w", det.ImageID, err)
		}
	}

	return tx.Commit()
}

// GetByImageIDs returns the detections of the given images keyed by image id,
// in insertion order. Images without detections are absent from the map.
func (r *DetectionRepository) GetByImageIDs(imageIDs []int64) (map[int64][]model.Detection, error) {
	result := make(map[int64][]model.Detection, len(imageIDs))
	if len(imageIDs) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(imageIDs)), ",")
	args := make([]interface{}, len(imageIDs))
	for i, id := range imageIDs {
		args[i] = id
	}

	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, image_id, class_id, object_name, track_id, x, y, width, height, confidence
		FROM detections WHERE image_id IN (`+placeholders+`) ORDER BY id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var det model.Detection
		var track sql.NullInt64
		if err := rows.Scan(&det.ID, &det.ImageID, &det.ClassID, &det.ObjectName, &track,
			&det.X, &det.Y, &det.Width, &det.Height, &det.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		if track.Valid {
			id := int(track.Int64)
			det.TrackID = &id
		}
		result[det.ImageID] = append(result[det.ImageID], det)
	}

	return result, rows.Err()
}

// GetAllObjectNames returns every distinct detected object name, sorted.
func (r *DetectionRepository) GetAllObjectNames() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT DISTINCT object_name FROM detections ORDER BY object_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer rows.Close()

	objects := []string{}
	for rows.Next() {
		var obj string
		if err := rows.Scan(&obj); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		objects = append(objects, obj)
	}

	return objects, rows.Err()
}
