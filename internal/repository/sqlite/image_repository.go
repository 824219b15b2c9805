package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jarupong555/Detec-V1.0/internal/dto"
	"github.com/jarupong555/Detec-V1.0/internal/model"
)

const imageColumns = "i.id, i.filename, i.camera, i.camera_id, i.location, i.timestamp, i.filepath, i.filesize"

// ImageRepository implements repository.ImageRepository for SQLite.
type ImageRepository struct {
	db *DB
}

// NewImageRepository creates a new SQLite image repository.
func NewImageRepository(db *DB) *ImageRepository {
	return &ImageRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanImage(row rowScanner) (model.Image, error) {
	var img model.Image
	err := row.Scan(&img.ID, &img.Filename, &img.Camera, &img.CameraID, &img.Location, &img.Timestamp, &img.FilePath, &img.FileSize)
	return img, err
}

// Insert adds a new image record to the database. A record with the same path is replaced.
func (r *ImageRepository) Insert(img *model.Image) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT OR REPLACE INTO images (filename, camera, camera_id, location, timestamp, filepath, filesize)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, img.Filename, img.Camera, img.CameraID, img.Location, img.Timestamp, img.FilePath, img.FileSize)
	if err != nil {
		return 0, fmt.Errorf("failed to insert image: %w", err)
	}

	return result.LastInsertId()
}

// GetByID retrieves an image by its ID. It returns nil when absent.
func (r *ImageRepository) GetByID(id int64) (*model.Image, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	img, err := scanImage(r.db.Conn().QueryRow(`SELECT `+imageColumns+` FROM images i WHERE i.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return &img, nil
}

// filterClause builds the WHERE clause shared by GetAll and GetTotalCount.
func filterClause(filter *dto.ImageFilters) (string, []interface{}) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return where, args
	}

	if filter.Camera != "" {
		where += " AND (i.camera = ? OR i.camera_id = ?)"
		args = append(args, filter.Camera, filter.Camera)
	}
	if filter.Location != "" {
		where += " AND i.location = ?"
		args = append(args, filter.Location)
	}
	if filter.Object != "" {
		where += " AND EXISTS (SELECT 1 FROM detections d WHERE d.image_id = i.id AND d.object_name = ?)"
		args = append(args, filter.Object)
	}
	if !filter.DateAfter.IsZero() {
		where += " AND DATE(i.timestamp) >= DATE(?)"
		args = append(args, filter.DateAfter)
	}
	if !filter.DateBefore.IsZero() {
		where += " AND DATE(i.timestamp) <= DATE(?)"
		args = append(args, filter.DateBefore)
	}
	if filter.TimeAfter != "" {
		where += " AND TIME(i.timestamp) >= TIME(?)"
		args = append(args, filter.TimeAfter)
	}
	if filter.TimeBefore != "" {
		where += " AND TIME(i.timestamp) <= TIME(?)"
		args = append(args, filter.TimeBefore)
	}
	return where, args
}

// GetAll retrieves images based on filter criteria, newest first.
func (r *ImageRepository) GetAll(filter *dto.ImageFilters) ([]model.Image, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	query := `SELECT ` + imageColumns + ` FROM images i` + where + ` ORDER BY i.timestamp DESC, i.id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var images []model.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// GetTotalCount returns the total count of images matching the filter.
func (r *ImageRepository) GetTotalCount(filter *dto.ImageFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM images i`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count images: %w", err)
	}
	return count, nil
}

// GetDirectorySize returns the total size in bytes of indexed images.
func (r *ImageRepository) GetDirectorySize() (int64, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var size int64
	if err := r.db.Conn().QueryRow(`SELECT COALESCE(SUM(filesize), 0) FROM images`).Scan(&size); err != nil {
		return 0, fmt.Errorf("failed to sum image sizes: %w", err)
	}
	return size, nil
}

// GetStats returns statistics about stored images.
func (r *ImageRepository) GetStats() (*model.ImageStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.ImageStats{
		PerLocation:  make(map[string]int),
		ObjectCounts: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*), COALESCE(SUM(filesize), 0) FROM images`).
		Scan(&stats.TotalImages, &stats.TotalSizeBytes); err != nil {
		return nil, fmt.Errorf("failed to count images: %w", err)
	}

	rows, err := r.db.Conn().Query(`SELECT location, COUNT(*) FROM images GROUP BY location`)
	if err != nil {
		return nil, fmt.Errorf("failed to group images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var location string
		var count int
		if err := rows.Scan(&location, &count); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		stats.PerLocation[location] = count
	}

	// Most detected objects
	objectRows, err := r.db.Conn().Query(`
		SELECT object_name, COUNT(*) as cnt
		FROM detections
		GROUP BY object_name
		ORDER BY cnt DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to group detections: %w", err)
	}
	defer objectRows.Close()

	for objectRows.Next() {
		var obj string
		var count int
		if err := objectRows.Scan(&obj, &count); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		stats.ObjectCounts[obj] = count
	}

	return stats, nil
}

// Delete removes an image by its ID.
func (r *ImageRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()
	return r.deleteLocked(id)
}

func (r *ImageRepository) deleteLocked(id int64) error {
	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE image_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	if _, err := r.db.Conn().Exec(`DELETE FROM images WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// DeleteByPath removes the image stored at path. Missing records are ignored.
func (r *ImageRepository) DeleteByPath(path string) error {
	r.db.Lock()
	defer r.db.Unlock()

	var imageID int64
	err := r.db.Conn().QueryRow(`SELECT id FROM images WHERE filepath = ?`, path).Scan(&imageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get image id: %w", err)
	}
	return r.deleteLocked(imageID)
}

// DeleteAll removes all images and their detections.
func (r *ImageRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections`); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	if _, err := r.db.Conn().Exec(`DELETE FROM images`); err != nil {
		return fmt.Errorf("failed to delete images: %w", err)
	}
	return nil
}
