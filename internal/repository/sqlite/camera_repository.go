package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jarupong555/Detec-V1.0/internal/model"
)

const cameraColumns = "id, name, location, protocol, source, detect_classes, created_at"

// CameraRepository implements repository.CameraRepository for SQLite.
type CameraRepository struct {
	db *DB
}

// NewCameraRepository creates a new SQLite camera repository.
func NewCameraRepository(db *DB) *CameraRepository {
	return &CameraRepository{db: db}
}

func scanCamera(row rowScanner) (model.Camera, error) {
	var (
		cam      model.Camera
		protocol string
		classes  sql.NullString
	)
	if err := row.Scan(&cam.ID, &cam.Name, &cam.Location, &protocol, &cam.Source, &classes, &cam.CreatedAt); err != nil {
		return cam, err
	}
	cam.Protocol = model.Protocol(protocol)
	if classes.Valid {
		s := classes.String
		cam.DetectClasses = &s
	}
	return cam, nil
}

// Insert stores a camera. Inserting an existing id replaces the record.
func (r *CameraRepository) Insert(cam *model.Camera) error {
	r.db.Lock()
	defer r.db.Unlock()

	var classes sql.NullString
	if cam.DetectClasses != nil {
		classes = sql.NullString{String: *cam.DetectClasses, Valid: true}
	}

	_, err := r.db.Conn().Exec(`
		INSERT OR REPLACE INTO cameras (`+cameraColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, cam.ID, cam.Name, cam.Location, string(cam.Protocol), cam.Source, classes, cam.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert camera: %w", err)
	}
	return nil
}

// GetByID retrieves a camera by id. It returns nil when absent.
func (r *CameraRepository) GetByID(id string) (*model.Camera, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	cam, err := scanCamera(r.db.Conn().QueryRow(`SELECT `+cameraColumns+` FROM cameras WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get camera: %w", err)
	}
	return &cam, nil
}

// GetAll returns every camera in creation order.
func (r *CameraRepository) GetAll() ([]model.Camera, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT ` + cameraColumns + ` FROM cameras ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cameras: %w", err)
	}
	defer rows.Close()

	cameras := []model.Camera{}
	for rows.Next() {
		cam, err := scanCamera(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan camera: %w", err)
		}
		cameras = append(cameras, cam)
	}
	return cameras, rows.Err()
}

// FindBySource returns the camera reading from the given source, or nil.
func (r *CameraRepository) FindBySource(protocol model.Protocol, source string) (*model.Camera, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	cam, err := scanCamera(r.db.Conn().QueryRow(
		`SELECT `+cameraColumns+` FROM cameras WHERE protocol = ? AND source = ? LIMIT 1`, string(protocol), source))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find camera: %w", err)
	}
	return &cam, nil
}

// Delete removes a camera and reports whether it existed.
func (r *CameraRepository) Delete(id string) (bool, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM cameras WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete camera: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete camera: %w", err)
	}
	return n > 0, nil
}
