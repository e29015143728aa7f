package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type envConfig struct {
	APP_PORT      string
	LOG_FILE_PATH string
	LOG_LEVEL     string

	DB_HOST              string
	DB_PORT              string
	DB_USER              string
	DB_PASSWORD          string
	DB_NAME              string
	DB_SSL_MODE          string
	DB_MAX_OPEN_CONNS    int
	DB_MAX_IDLE_CONNS    int
	DB_CONN_MAX_LIFETIME time.Duration

	// EXCEL_MAPPING_FILE is an optional YAML file overriding the employee sheet layout.
	EXCEL_MAPPING_FILE string
	IMPORT_WORKERS     int
	MAX_UPLOAD_MB      int64
}

// DefaultEnvConfig holds the settings loaded by LoadEnvConfig.
var DefaultEnvConfig = defaults()

func defaults() *envConfig {
	return &envConfig{
		APP_PORT:             "8080",
		LOG_LEVEL:            "info",
		DB_PORT:              "5432",
		DB_SSL_MODE:          "disable",
		DB_MAX_OPEN_CONNS:    10,
		DB_MAX_IDLE_CONNS:    5,
		DB_CONN_MAX_LIFETIME: 30 * time.Minute,
		IMPORT_WORKERS:       4,
		MAX_UPLOAD_MB:        20,
	}
}

// LoadEnvConfig reads .env when present, then the process environment.
func LoadEnvConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg, err := fromEnv(os.LookupEnv)
	if err != nil {
		return err
	}
	DefaultEnvConfig = cfg
	return nil
}

func fromEnv(lookup func(string) (string, bool)) (*envConfig, error) {
	cfg := defaults()
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var err error
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" && err == nil {
			n, convErr := strconv.Atoi(v)
			if convErr != nil {
				err = fmt.Errorf("invalid %s %q: %w", key, v, convErr)
				return
			}
			*dst = n
		}
	}

	str("APP_PORT", &cfg.APP_PORT)
	str("LOG_FILE_PATH", &cfg.LOG_FILE_PATH)
	str("LOG_LEVEL", &cfg.LOG_LEVEL)
	str("DB_HOST", &cfg.DB_HOST)
	str("DB_PORT", &cfg.DB_PORT)
	str("DB_USER", &cfg.DB_USER)
	str("DB_PASSWORD", &cfg.DB_PASSWORD)
	str("DB_NAME", &cfg.DB_NAME)
	str("DB_SSL_MODE", &cfg.DB_SSL_MODE)
	num("DB_MAX_OPEN_CONNS", &cfg.DB_MAX_OPEN_CONNS)
	num("DB_MAX_IDLE_CONNS", &cfg.DB_MAX_IDLE_CONNS)
	str("EXCEL_MAPPING_FILE", &cfg.EXCEL_MAPPING_FILE)
	num("IMPORT_WORKERS", &cfg.IMPORT_WORKERS)

	var uploadMB int
	num("MAX_UPLOAD_MB", &uploadMB)
	if uploadMB > 0 {
		cfg.MAX_UPLOAD_MB = int64(uploadMB)
	}

	if v, ok := lookup("DB_CONN_MAX_LIFETIME"); ok && v != "" && err == nil {
		d, convErr := time.ParseDuration(v)
		if convErr != nil {
			err = fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", v, convErr)
		}
		cfg.DB_CONN_MAX_LIFETIME = d
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
