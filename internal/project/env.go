package project

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by ApplyEnv.
const (
	EnvRemoteURL   = "ZEAL_REMOTE_URL"
	EnvS3Endpoint  = "ZEAL_S3_ENDPOINT"
	EnvS3Region    = "ZEAL_S3_REGION"
	EnvS3Bucket    = "ZEAL_S3_BUCKET"
	EnvS3AccessKey = "ZEAL_S3_ACCESS_KEY"
	EnvS3SecretKey = "ZEAL_S3_SECRET_KEY"
	EnvS3UseSSL    = "ZEAL_S3_USE_SSL"
	EnvCacheDir    = "ZEAL_CACHE_DIR"
)

// LoadDotEnv loads root/.env into the process environment. Variables that
// are already set keep their value; a missing file is not an error.
func LoadDotEnv(root string) error {
	err := godotenv.Load(filepath.Join(root, ".env"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv overlays environment settings onto cfg.
func ApplyEnv(cfg *Config) {
	inc := &cfg.Include
	inc.RemoteURL = firstNonEmpty(os.Getenv(EnvRemoteURL), inc.RemoteURL)
	inc.CacheDir = firstNonEmpty(os.Getenv(EnvCacheDir), inc.CacheDir)

	s3 := &inc.S3
	s3.Endpoint = firstNonEmpty(os.Getenv(EnvS3Endpoint), s3.Endpoint)
	s3.Region = firstNonEmpty(os.Getenv(EnvS3Region), s3.Region)
	s3.Bucket = firstNonEmpty(os.Getenv(EnvS3Bucket), s3.Bucket)
	s3.AccessKey = firstNonEmpty(os.Getenv(EnvS3AccessKey), s3.AccessKey)
	s3.SecretKey = firstNonEmpty(os.Getenv(EnvS3SecretKey), s3.SecretKey)
	if raw := strings.TrimSpace(os.Getenv(EnvS3UseSSL)); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			s3.UseSSL = v
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
