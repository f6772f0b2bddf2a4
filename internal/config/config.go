package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Storage      StorageConfig
	Verification VerificationConfig
	Log          LogConfig
}

type AppConfig struct {
	Port       string
	Env        string
	PublicURL  string // dipakai untuk URL verifikasi di QR slip
	SchoolName string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type JWTConfig struct {
	Secret          string
	ExpireHours     int
	RefreshExpHours int
}

type StorageConfig struct {
	Driver        string // minio | s3
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	Region        string
	PublicBaseURL string
}

type VerificationConfig struct {
	// Roles membatasi peran yang muncul di antrian verifikasi. Kosong berarti
	// semua peran non-admin.
	Roles []string
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

func Load() *Config {
	// Load .env jika ada (development), di production pakai env variable langsung
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, reading from environment variables")
	}

	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "24"))
	jwtRefreshExpire, _ := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRE_HOURS", "168"))
	storageSSL, _ := strconv.ParseBool(getEnv("STORAGE_USE_SSL", "false"))
	logJSON, _ := strconv.ParseBool(getEnv("LOG_JSON", "false"))
	logDebug, _ := strconv.ParseBool(getEnv("LOG_DEBUG", "false"))

	// Driver s3 memakai endpoint AWS bawaan kecuali STORAGE_ENDPOINT diisi
	storageDriver := strings.ToLower(getEnv("STORAGE_DRIVER", "minio"))
	defaultEndpoint := "localhost:9000"
	if storageDriver == "s3" {
		defaultEndpoint = ""
	}

	return &Config{
		App: AppConfig{
			Port:       getEnv("APP_PORT", "8080"),
			Env:        getEnv("APP_ENV", "development"),
			PublicURL:  strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
			SchoolName: getEnv("SCHOOL_NAME", "SMK Negeri 1"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "bengkel_user"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "bengkel_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-this-secret"),
			ExpireHours:     jwtExpire,
			RefreshExpHours: jwtRefreshExpire,
		},
		Storage: StorageConfig{
			Driver:        storageDriver,
			Endpoint:      getEnv("STORAGE_ENDPOINT", defaultEndpoint),
			AccessKey:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretKey:     getEnv("STORAGE_SECRET_KEY", "minioadmin123"),
			Bucket:        getEnv("STORAGE_BUCKET", "alat-images"),
			UseSSL:        storageSSL,
			Region:        getEnv("STORAGE_REGION", "us-east-1"),
			PublicBaseURL: strings.TrimRight(getEnv("STORAGE_PUBLIC_URL", ""), "/"),
		},
		Verification: VerificationConfig{
			Roles: splitList(getEnv("VERIFICATION_ROLES", "")),
		},
		Log: LogConfig{
			JSON:  logJSON,
			Debug: logDebug,
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
