package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	t.Setenv("DATA_DIR", "/tmp/detec")
	t.Setenv("TZ", "")

	cfg := Load()

	if cfg.Port != 8000 {
		t.Errorf("Port = %d, expected 8000", cfg.Port)
	}
	if cfg.DetectClasses != "person" {
		t.Errorf("DetectClasses = %q, expected person", cfg.DetectClasses)
	}
	if cfg.DetectEveryN != 1 {
		t.Errorf("DetectEveryN = %d, expected 1", cfg.DetectEveryN)
	}
	if cfg.SaveCooldown != 5*time.Second {
		t.Errorf("SaveCooldown = %v, expected 5s", cfg.SaveCooldown)
	}
	if cfg.MaxSaved != 30 {
		t.Errorf("MaxSaved = %d, expected 30", cfg.MaxSaved)
	}
	if cfg.SavedDirectory != "/tmp/detec/saved" {
		t.Errorf("SavedDirectory = %q", cfg.SavedDirectory)
	}
	if cfg.JPEGQuality != 80 {
		t.Errorf("JPEGQuality = %d, expected 80", cfg.JPEGQuality)
	}
	if cfg.TimeZone != "Asia/Bangkok" {
		t.Errorf("TimeZone = %q, expected Asia/Bangkok", cfg.TimeZone)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	t.Setenv("DETECT_EVERY_N", "0")
	t.Setenv("SAVE_COOLDOWN_SECONDS", "1.5")
	t.Setenv("MAX_SAVED_PER_FOLDER", "12")
	t.Setenv("DETECTOR", "REMOTE")
	t.Setenv("PORT", "not-a-number")

	cfg := Load()

	if cfg.DetectEveryN != 1 {
		t.Errorf("DetectEveryN = %d, expected clamp to 1", cfg.DetectEveryN)
	}
	if cfg.SaveCooldown != 1500*time.Millisecond {
		t.Errorf("SaveCooldown = %v, expected 1.5s", cfg.SaveCooldown)
	}
	if cfg.MaxSavedPerFolder != 12 {
		t.Errorf("MaxSavedPerFolder = %d, expected 12", cfg.MaxSavedPerFolder)
	}
	if cfg.Detector != "remote" {
		t.Errorf("Detector = %q, expected remote", cfg.Detector)
	}
	if cfg.Port != 8000 {
		t.Errorf("Port = %d, expected fallback 8000", cfg.Port)
	}
}

func TestParseFolderLimits(t *testing.T) {
	limits := ParseFolderLimits("lobby:10, gate : 50,broken,neg:-1,bad:x")

	if len(limits) != 2 {
		t.Fatalf("expected 2 limits, got %v", limits)
	}
	if limits["lobby"] != 10 || limits["gate"] != 50 {
		t.Errorf("unexpected limits %v", limits)
	}
}

func TestLocation_Fallback(t *testing.T) {
	cfg := &Config{TimeZone: "Nowhere/Invalid"}
	if cfg.Location() != time.UTC {
		t.Errorf("expected UTC fallback")
	}
}
