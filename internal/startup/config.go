package startup

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"media-picker/internal/logging"
	"media-picker/internal/memory"
)

// Config holds all application configuration
type Config struct {
	MediaDir           string `validate:"required"`
	CacheDir           string `validate:"required"`
	DatabaseDir        string `validate:"required"`
	Port               string `validate:"required,numeric"`
	MetricsPort        string `validate:"required,numeric"`
	MetricsEnabled     bool
	IndexInterval      time.Duration `validate:"gt=0"`
	WatchEnabled       bool
	CapabilityTier     string `validate:"oneof=modern legacy"`
	PermissionsGranted bool
	ThumbnailSize      int `validate:"gte=16,lte=1024"`
	Workers            int `validate:"gte=0"`
	LogHealthChecks    bool
	OTLPEndpoint       string  `validate:"omitempty,url"`
	MemoryLimit        int64   `validate:"gte=0"`
	MemoryRatio        float64 `validate:"gte=0,lte=1"`

	// Derived paths
	DatabasePath string

	// Feature flags based on tool availability
	FFmpegAvailable  bool
	FFprobeAvailable bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// defaults are applied to viper before reading the environment.
var defaults = map[string]any{
	"MEDIA_DIR":           "/media",
	"CACHE_DIR":           "/cache",
	"DATABASE_DIR":        "/database",
	"PORT":                "8080",
	"METRICS_PORT":        "9090",
	"METRICS_ENABLED":     "true",
	"INDEX_INTERVAL":      "30m",
	"WATCH_ENABLED":       "true",
	"CAPABILITY_TIER":     "modern",
	"PERMISSIONS_GRANTED": "false",
	"THUMBNAIL_SIZE":      "128",
	"WORKERS":             "0",
	"LOG_HEALTH_CHECKS":   "false",
	"MEMORY_LIMIT":        "0",
	"MEMORY_RATIO":        strconv.FormatFloat(memory.DefaultMemoryRatio, 'f', 2, 64),
}

// LoadConfig prints the banner, loads configuration and prepares the
// directories the service needs.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config, err := Load()
	if err != nil {
		return nil, err
	}

	logging.Info("  MEDIA_DIR:           %s", config.MediaDir)
	logging.Info("  CACHE_DIR:           %s", config.CacheDir)
	logging.Info("  DATABASE_DIR:        %s", config.DatabaseDir)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  METRICS_PORT:        %s", config.MetricsPort)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  INDEX_INTERVAL:      %s", config.IndexInterval)
	logging.Info("  WATCH_ENABLED:       %v", config.WatchEnabled)
	logging.Info("  CAPABILITY_TIER:     %s", config.CapabilityTier)
	logging.Info("  PERMISSIONS_GRANTED: %v", config.PermissionsGranted)
	logging.Info("  THUMBNAIL_SIZE:      %d", config.ThumbnailSize)
	logging.Info("  WORKERS:             %d", config.Workers)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
	if config.OTLPEndpoint != "" {
		logging.Info("  OTLP endpoint:       %s", config.OTLPEndpoint)
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := config.Prepare(); err != nil {
		return nil, err
	}

	config.FFmpegAvailable = checkTool("ffmpeg")
	config.FFprobeAvailable = checkTool("ffprobe")

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Repository index:   ENABLED (required)")
	logging.Info("    Cache:              ENABLED (required)")
	logging.Info("    Frame thumbnails:   %s", enabledString(config.FFmpegAvailable))
	logging.Info("    Container metadata: %s", enabledString(config.FFprobeAvailable))
	logging.Info("    Folder watching:    %s", enabledString(config.WatchEnabled))
	logging.Info("    Metrics:            %s", enabledString(config.MetricsEnabled))
	logging.Info("    Tracing export:     %s", enabledString(config.OTLPEndpoint != ""))

	return config, nil
}

// Load reads configuration from an optional .env file (ENV_FILE, default
// .env) and the environment. Malformed values fall back to their defaults
// with a warning; the result is then validated.
func Load() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		logging.Debug("  No %s file loaded: %v", envFile, err)
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	config := &Config{
		MediaDir:           v.GetString("MEDIA_DIR"),
		CacheDir:           v.GetString("CACHE_DIR"),
		DatabaseDir:        v.GetString("DATABASE_DIR"),
		Port:               v.GetString("PORT"),
		MetricsPort:        v.GetString("METRICS_PORT"),
		MetricsEnabled:     getBool(v, "METRICS_ENABLED"),
		IndexInterval:      getDuration(v, "INDEX_INTERVAL"),
		WatchEnabled:       getBool(v, "WATCH_ENABLED"),
		CapabilityTier:     strings.ToLower(v.GetString("CAPABILITY_TIER")),
		PermissionsGranted: getBool(v, "PERMISSIONS_GRANTED"),
		ThumbnailSize:      getInt(v, "THUMBNAIL_SIZE"),
		Workers:            getInt(v, "WORKERS"),
		LogHealthChecks:    getBool(v, "LOG_HEALTH_CHECKS"),
		OTLPEndpoint:       v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		MemoryLimit:        int64(getInt(v, "MEMORY_LIMIT")),
		MemoryRatio:        getFloat(v, "MEMORY_RATIO"),
	}

	if err := validate.Struct(config); err != nil {
		return nil, describeValidation(err)
	}

	var err error
	for _, dir := range []*string{&config.MediaDir, &config.CacheDir, &config.DatabaseDir} {
		if *dir, err = filepath.Abs(*dir); err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", *dir, err)
		}
	}
	config.DatabasePath = filepath.Join(config.DatabaseDir, "media.db")

	return config, nil
}

// Prepare checks the media directory and creates the cache and database
// directories. Only the media directory may be missing.
func (c *Config) Prepare() error {
	logging.Info("  Media directory (absolute):    %s", c.MediaDir)
	logging.Info("  Cache directory (absolute):    %s", c.CacheDir)
	logging.Info("  Database directory (absolute): %s", c.DatabaseDir)

	if err := ensureDirectory(c.MediaDir, "media"); err != nil {
		logging.Warn("  Media directory issue: %v", err)
	}

	if err := ensureDirectory(c.DatabaseDir, "database"); err != nil {
		return fmt.Errorf("database directory error: %w", err)
	}
	if err := testWriteAccess(c.DatabaseDir); err != nil {
		return fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	// Every pipeline run writes here, so there is nothing to degrade to.
	if err := ensureDirectory(c.CacheDir, "cache"); err != nil {
		return fmt.Errorf("cache directory error: %w", err)
	}
	if err := testWriteAccess(c.CacheDir); err != nil {
		return fmt.Errorf("cache directory is not writable (required for pipeline runs): %w", err)
	}
	logging.Info("  [OK] Cache directory is writable")

	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func getDuration(v *viper.Viper, key string) time.Duration {
	value := v.GetString(key)
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		def := defaults[key].(string)
		logging.Warn("  Invalid %s %q, using default: %s", key, value, def)
		d, _ = time.ParseDuration(def)
	}
	return d
}

func getBool(v *viper.Viper, key string) bool {
	value := v.GetString(key)
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		def, _ := strconv.ParseBool(defaults[key].(string))
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, def)
		return def
	}
	return parsed
}

func getInt(v *viper.Viper, key string) int {
	value := v.GetString(key)
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		def, _ := strconv.Atoi(defaults[key].(string))
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, def)
		return def
	}
	return parsed
}

func getFloat(v *viper.Viper, key string) float64 {
	value := v.GetString(key)
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		def, _ := strconv.ParseFloat(defaults[key].(string), 64)
		logging.Warn("Invalid number for %s: %q, using default: %v", key, value, def)
		return def
	}
	return parsed
}

func checkTool(name string) bool {
	path, err := exec.LookPath(name)
	if err != nil {
		logging.Warn("  %s not found in PATH", name)
		return false
	}
	logging.Debug("  %s path: %s", name, path)
	return true
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}
