package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const credentialsEnv = "STORE_CREDENTIALS_B64"

type Config struct {
	Port           string
	DownloadDir    string
	PublicBaseURL  string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	Store StoreCredentials

	RedisAddr string
	RedisDB   int

	LogLevel  string
	LogFormat string
}

// StoreCredentials is the JSON document carried base64-encoded in
// STORE_CREDENTIALS_B64.
type StoreCredentials struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
}

// Load reads .env (if any) and the process environment. A missing or
// unreadable credential blob is an error so the process can fail fast.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	creds, err := DecodeCredentials(os.Getenv(credentialsEnv))
	if err != nil {
		return nil, err
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB value: %w", err)
	}
	readTimeout, err := time.ParseDuration(getEnv("HTTP_READ_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_READ_TIMEOUT value: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("HTTP_WRITE_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_WRITE_TIMEOUT value: %w", err)
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		DownloadDir:    getEnv("DOWNLOAD_DIR", "downloads"),
		PublicBaseURL:  strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		Store:          creds,
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisDB:        redisDB,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
	}, nil
}

// DecodeCredentials decodes the base64 JSON credential blob.
func DecodeCredentials(blob string) (StoreCredentials, error) {
	var creds StoreCredentials

	blob = strings.Trim(strings.TrimSpace(blob), `"`)
	if blob == "" {
		return creds, fmt.Errorf("%s environment variable is not set", credentialsEnv)
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return creds, fmt.Errorf("decode %s: %w", credentialsEnv, err)
	}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return creds, fmt.Errorf("parse %s: %w", credentialsEnv, err)
	}
	if creds.URI == "" {
		return creds, fmt.Errorf("%s: uri is required", credentialsEnv)
	}
	if creds.Database == "" {
		return creds, fmt.Errorf("%s: database is required", credentialsEnv)
	}
	return creds, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
