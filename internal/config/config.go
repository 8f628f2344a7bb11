package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr         string
	DataPath           string
	OutputDir          string
	WriteOutput        bool
	LEDRows            int
	LEDCols            int
	PreviewScale       int
	MaxUploadSizeBytes int64
	LogLevel           string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		DataPath:           getEnv("DATA_PATH", "./data/sessions.json"),
		OutputDir:          getEnv("OUTPUT_DIR", "./output"),
		WriteOutput:        getEnvBool("WRITE_OUTPUT", true),
		LEDRows:            getEnvInt("LED_ROWS", 5),
		LEDCols:            getEnvInt("LED_COLS", 40),
		PreviewScale:       getEnvInt("PREVIEW_SCALE", 12),
		MaxUploadSizeBytes: getEnvInt64("MAX_UPLOAD_SIZE_BYTES", 16*1024*1024),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	if cfg.LEDRows <= 0 || cfg.LEDCols <= 0 {
		return Config{}, errors.New("led rows/cols must be > 0")
	}
	if cfg.PreviewScale <= 0 || cfg.PreviewScale > 64 {
		return Config{}, errors.New("preview scale must be in [1,64]")
	}
	if cfg.MaxUploadSizeBytes <= 0 {
		return Config{}, errors.New("max upload size must be > 0")
	}
	if cfg.WriteOutput && strings.TrimSpace(cfg.OutputDir) == "" {
		return Config{}, errors.New("output dir is required when write output is enabled")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
