package lambdaboot

import (
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/photobooth/internal/logging"
	"github.com/fpang/photobooth/internal/store"
)

// Environment variables read by LoadConfig.
const (
	EnvPort         = "PORT"
	EnvBaseURL      = "PHOTOBOOTH_BASE_URL"
	EnvBaseURLParam = "PHOTOBOOTH_BASE_URL_PARAM"
	EnvAssetsDir    = "PHOTOBOOTH_ASSETS_DIR"
	EnvDataDir      = "PHOTOBOOTH_DATA_DIR"
	EnvS3Bucket     = "PHOTOBOOTH_S3_BUCKET"
	EnvShareTable   = "PHOTOBOOTH_SHARE_TABLE"
	EnvEventBus     = "PHOTOBOOTH_EVENT_BUS"
	EnvShareTTL     = "PHOTOBOOTH_SHARE_TTL"
)

// Config is the host configuration. Empty AWS fields select the local
// file-backed implementations.
type Config struct {
	Port         string
	BaseURL      string
	BaseURLParam string
	AssetsDir    string
	DataDir      string
	S3Bucket     string
	ShareTable   string
	EventBus     string
	ShareTTL     time.Duration
}

// LoadConfig reads Config from the environment.
func LoadConfig() Config {
	cfg := Config{
		Port:         logging.EnvOrDefault(EnvPort, "8080"),
		BaseURL:      logging.EnvOrDefault(EnvBaseURL, ""),
		BaseURLParam: logging.EnvOrDefault(EnvBaseURLParam, ""),
		AssetsDir:    logging.EnvOrDefault(EnvAssetsDir, "."),
		DataDir:      logging.EnvOrDefault(EnvDataDir, "./data"),
		S3Bucket:     logging.EnvOrDefault(EnvS3Bucket, ""),
		ShareTable:   logging.EnvOrDefault(EnvShareTable, ""),
		EventBus:     logging.EnvOrDefault(EnvEventBus, ""),
		ShareTTL:     store.DefaultShareTTL,
	}
	if v := logging.EnvOrDefault(EnvShareTTL, ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Warn().Str("value", v).Msg("Invalid share TTL, using default")
		} else {
			cfg.ShareTTL = d
		}
	}
	return cfg
}

// NeedsAWS reports whether any configured backend lives in AWS.
func (c Config) NeedsAWS() bool {
	return c.S3Bucket != "" || c.ShareTable != "" || c.EventBus != "" || (c.BaseURL == "" && c.BaseURLParam != "")
}

// SlotDir is where the hand-off slot file lives.
func (c Config) SlotDir() string { return filepath.Join(c.DataDir, "slot") }

// ShareDir is where local share blobs and records live.
func (c Config) ShareDir() string { return filepath.Join(c.DataDir, "shares") }
