package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
)

// SettingsRepository implements repository.SettingsRepository for SQLite.
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new SQLite settings repository.
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the value of key and whether it is set.
func (r *SettingsRepository) Get(key string) (string, bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var value string
	err := r.db.Conn().QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (r *SettingsRepository) Set(key, value string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}
