package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service settings read from the environment.
type Config struct {
	Port    int
	AppName string

	DataDirectory  string
	SavedDirectory string
	DatabasePath   string
	LogDirectory   string

	DetectClasses     string
	DetectEveryN      int
	SaveCooldown      time.Duration
	MaxSaved          int
	MaxSavedPerFolder int
	FolderLimits      map[string]int
	JPEGQuality       int

	Detector         string // "dnn" or "remote"
	ModelPath        string
	ConfigPath       string
	LabelsPath       string
	ConfThreshold    float64
	IOUThreshold     float64
	Device           string
	DetectorURL      string
	FailureThreshold int
	FailureBackoff   time.Duration

	NotifyURL     string
	NotifyTimeout time.Duration
	TimeZone      string

	BufferSeconds int
	TargetFPS     int
	Warmup        time.Duration
	USBWidth      int
	USBHeight     int

	StopTimeout  time.Duration
	ReadRetry    time.Duration
	PollInterval time.Duration

	PersistWorkers int
	PersistQueue   int

	CameraList string
}

// Load reads ENV_FILE (default .env) when present and builds the Config.
func Load() *Config {
	_ = godotenv.Load(getEnv("ENV_FILE", ".env"))

	dataDir := getEnv("DATA_DIR", filepath.Join(".", "data"))

	return &Config{
		Port:    getEnvAsInt("PORT", 8000),
		AppName: getEnv("APP_NAME", "detec"),

		DataDirectory:  dataDir,
		SavedDirectory: getEnv("SAVED_DIR", filepath.Join(dataDir, "saved")),
		DatabasePath:   getEnv("DB_PATH", filepath.Join(dataDir, "detec.db")),
		LogDirectory:   getEnv("LOG_DIR", filepath.Join(".", "logs")),

		DetectClasses:     getEnv("DETECT_CLASSES", "person"),
		DetectEveryN:      max(1, getEnvAsInt("DETECT_EVERY_N", 1)),
		SaveCooldown:      getEnvAsSeconds("SAVE_COOLDOWN_SECONDS", 5),
		MaxSaved:          getEnvAsInt("MAX_SAVED", 30),
		MaxSavedPerFolder: getEnvAsInt("MAX_SAVED_PER_FOLDER", 0),
		FolderLimits:      ParseFolderLimits(os.Getenv("FOLDER_LIMITS")),
		JPEGQuality:       getEnvAsInt("JPEG_QUALITY", 80),

		Detector:         strings.ToLower(getEnv("DETECTOR", "dnn")),
		ModelPath:        getEnv("MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		ConfigPath:       getEnv("CONFIG_PATH", filepath.Join(".", "models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		LabelsPath:       getEnv("LABELS_PATH", ""),
		ConfThreshold:    getEnvAsFloat("CONF_THRES", 0.25),
		IOUThreshold:     getEnvAsFloat("IOU_THRES", 0.45),
		Device:           strings.ToLower(getEnv("DEVICE", "cpu")),
		DetectorURL:      getEnv("DETECTOR_URL", "http://localhost:9000"),
		FailureThreshold: getEnvAsInt("DETECT_FAILURE_THRESHOLD", 10),
		FailureBackoff:   getEnvAsSeconds("DETECT_FAILURE_BACKOFF_SECONDS", 30),

		NotifyURL:     getEnv("NOTIFY_URL", ""),
		NotifyTimeout: getEnvAsSeconds("NOTIFY_TIMEOUT_SECONDS", 5),
		TimeZone:      getEnv("TZ", "Asia/Bangkok"),

		BufferSeconds: getEnvAsInt("BUFFER_SECONDS", 8),
		TargetFPS:     getEnvAsInt("TARGET_FPS", 25),
		Warmup:        getEnvAsSeconds("WARMUP_SECONDS", 8),
		USBWidth:      getEnvAsInt("USB_WIDTH", 640),
		USBHeight:     getEnvAsInt("USB_HEIGHT", 360),

		StopTimeout:  getEnvAsSeconds("STOP_TIMEOUT_SECONDS", 3),
		ReadRetry:    time.Duration(getEnvAsInt("READ_RETRY_MS", 1000)) * time.Millisecond,
		PollInterval: time.Duration(getEnvAsInt("POLL_INTERVAL_MS", 50)) * time.Millisecond,

		PersistWorkers: max(1, getEnvAsInt("PERSIST_WORKERS", 2)),
		PersistQueue:   max(1, getEnvAsInt("PERSIST_QUEUE", 32)),

		CameraList: getEnv("CAMERA_LIST", ""),
	}
}

// Location resolves TimeZone, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseFolderLimits parses "lobby:10,gate:50" into a per-folder retention map.
// Malformed entries are skipped.
func ParseFolderLimits(raw string) map[string]int {
	limits := make(map[string]int)
	for _, part := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			continue
		}
		limits[strings.TrimSpace(name)] = n
	}
	return limits
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsSeconds(key string, defaultValue float64) time.Duration {
	return time.Duration(getEnvAsFloat(key, defaultValue) * float64(time.Second))
}
