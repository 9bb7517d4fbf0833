package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type MicrosoftConfig struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	RedirectURI  string
}

type StorageConfig struct {
	Provider        string // "s3", "gcs" or "" when uploads are disabled
	S3Bucket        string
	S3Region        string
	GCSBucket       string
	GCSCredentials  string
	PresignValidity time.Duration
}

type Config struct {
	Port         string
	MongoURI     string
	DBName       string
	JWTSecret    string
	SessionTTL   time.Duration
	CookieSecure bool
	FrontendURL  string
	Microsoft    MicrosoftConfig
	Storage      StorageConfig
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}

	return Config{
		Port:         getEnvOrDefault("PORT", "8080"),
		MongoURI:     getEnvOrDefault("MONGO_URI", ""),
		DBName:       getEnvOrDefault("DB_NAME", "visittrack"),
		JWTSecret:    getEnvOrDefault("JWT_SECRET", ""),
		SessionTTL:   getDurationEnv("SESSION_TTL_DAYS", 7, 24*time.Hour),
		CookieSecure: getEnvOrDefault("APP_ENV", "development") == "production",
		FrontendURL:  getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
		Microsoft: MicrosoftConfig{
			ClientID:     getEnvOrDefault("MICROSOFT_CLIENT_ID", ""),
			ClientSecret: getEnvOrDefault("MICROSOFT_CLIENT_SECRET", ""),
			TenantID:     getEnvOrDefault("MICROSOFT_TENANT_ID", "common"),
			RedirectURI:  getEnvOrDefault("MICROSOFT_REDIRECT_URI", ""),
		},
		Storage: StorageConfig{
			Provider:        getEnvOrDefault("STORAGE_PROVIDER", ""),
			S3Bucket:        getEnvOrDefault("AWS_S3_BUCKET", ""),
			S3Region:        getEnvOrDefault("AWS_REGION", "ap-southeast-1"),
			GCSBucket:       getEnvOrDefault("GOOGLE_CLOUD_STORAGE_BUCKET", ""),
			GCSCredentials:  getEnvOrDefault("GOOGLE_APPLICATION_CREDENTIALS", ""),
			PresignValidity: getDurationEnv("PRESIGN_TTL_MINUTES", 15, time.Minute),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}
