package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server Configuration
	Port        string
	Environment string
	Debug       bool
	LogLevel    string

	// Database Configuration
	DBDriver       string
	DatabaseURL    string
	SQLitePath     string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Activity log Configuration
	ActivityStore string
	MongoURI      string
	MongoDBName   string

	// JWT Configuration
	JWTSecret        string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	// Storage Configuration
	StorageProvider  string
	UploadPath       string
	TempPath         string
	PublicBaseURL    string
	MaxFileSize      int64
	AllowedFileTypes []string
	TempFileMaxAge   time.Duration

	// S3 Configuration
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSBucketName      string
	S3Endpoint         string
	S3PublicURL        string
	R2AccountID        string

	// Media Configuration
	FFprobePath       string
	FFmpegPath        string
	EnrichmentTimeout time.Duration
	EnrichmentWorkers int
	ThumbnailWidth    int
	ThumbnailHeight   int
	ThumbnailOffset   string
	ImageMaxPixels    int64

	// Security Configuration
	CORSAllowedOrigins []string
	RateLimitEnabled   bool

	// Application Configuration
	AppName    string
	AppVersion string

	// Seed Configuration
	AdminDefaultEmail string
	AdminDefaultPass  string
	AdminDefaultName  string
	SeedPrograms      bool
}

const (
	defaultJWTSecret        = "tvcms-dev-jwt-secret-change-in-production"
	defaultJWTRefreshSecret = "tvcms-dev-refresh-secret-change-in-production"
)

// LoadConfig loads configuration from environment variables, reading a .env file first when present
func LoadConfig() *Config {
	_ = godotenv.Load()

	environment := getEnv("ENVIRONMENT", "development")

	return &Config{
		// Server Configuration
		Port:        getEnv("PORT", "5000"),
		Environment: environment,
		Debug:       getEnvAsBool("DEBUG", environment == "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Database Configuration
		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DatabaseURL:    getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=tvcms port=5432 sslmode=disable"),
		SQLitePath:     getEnv("SQLITE_PATH", "./data/tvcms.db"),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),

		// Activity log Configuration
		ActivityStore: strings.ToLower(getEnv("ACTIVITY_STORE", "sql")),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB_NAME", "tvcms"),

		// JWT Configuration
		JWTSecret:        getEnv("JWT_SECRET", defaultJWTSecret),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", defaultJWTRefreshSecret),
		AccessTokenTTL:   getEnvAsDuration("JWT_EXPIRE", "168h"),        // 7 days
		RefreshTokenTTL:  getEnvAsDuration("JWT_REFRESH_EXPIRE", "720h"), // 30 days

		// Storage Configuration
		StorageProvider:  strings.ToLower(getEnv("STORAGE_PROVIDER", "local")),
		UploadPath:       getEnv("UPLOAD_PATH", "./uploads"),
		TempPath:         getEnv("TEMP_PATH", "./tmp"),
		PublicBaseURL:    getEnv("PUBLIC_BASE_URL", "/uploads"),
		MaxFileSize:      getEnvAsInt64("MAX_FILE_SIZE", 5368709120), // 5GB
		AllowedFileTypes: getEnvAsSlice("ALLOWED_FILE_TYPES", []string{}),
		TempFileMaxAge:   getEnvAsDuration("TEMP_FILE_MAX_AGE", "24h"),

		// S3 Configuration
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSBucketName:      getEnv("AWS_BUCKET_NAME", ""),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3PublicURL:        getEnv("S3_PUBLIC_URL", ""),
		R2AccountID:        getEnv("R2_ACCOUNT_ID", ""),

		// Media Configuration
		FFprobePath:       getEnv("FFPROBE_PATH", "ffprobe"),
		FFmpegPath:        getEnv("FFMPEG_PATH", "ffmpeg"),
		EnrichmentTimeout: getEnvAsDuration("ENRICHMENT_TIMEOUT", "2m"),
		EnrichmentWorkers: getEnvAsInt("ENRICHMENT_WORKERS", 2),
		ThumbnailWidth:    getEnvAsInt("THUMBNAIL_WIDTH", 320),
		ThumbnailHeight:   getEnvAsInt("THUMBNAIL_HEIGHT", 240),
		ThumbnailOffset:   getEnv("THUMBNAIL_OFFSET", "00:00:02"),
		ImageMaxPixels:    getEnvAsInt64("IMAGE_MAX_PIXELS", 100_000_000),

		// Security Configuration
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),
		RateLimitEnabled: getEnvAsBool("RATE_LIMIT_ENABLED", true),

		// Application Configuration
		AppName:    getEnv("APP_NAME", "TV UPEA Media CMS"),
		AppVersion: getEnv("APP_VERSION", "1.0.0"),

		// Seed Configuration
		AdminDefaultEmail: getEnv("ADMIN_DEFAULT_EMAIL", "admin@tvupea.com"),
		AdminDefaultPass:  getEnv("ADMIN_DEFAULT_PASS", "admin123"),
		AdminDefaultName:  getEnv("ADMIN_DEFAULT_NAME", "Administrador"),
		SeedPrograms:      getEnvAsBool("SEED_PROGRAMS", true),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	if parsed, err := time.ParseDuration(defaultValue); err == nil {
		return parsed
	}
	return 24 * time.Hour // fallback
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// GetServerAddress returns the server address for listening
func (c *Config) GetServerAddress() string {
	return ":" + c.Port
}

// ValidateConfig validates the configuration
func (c *Config) ValidateConfig() error {
	var errs []error

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			errs = append(errs, errors.New("JWT_SECRET must be changed in production"))
		}
		if c.JWTRefreshSecret == defaultJWTRefreshSecret {
			errs = append(errs, errors.New("JWT_REFRESH_SECRET must be changed in production"))
		}
	}

	if c.JWTSecret == c.JWTRefreshSecret {
		errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ"))
	}

	if err := c.validateDatabase(); err != nil {
		errs = append(errs, err)
	}

	if err := c.validateStorage(); err != nil {
		errs = append(errs, err)
	}

	if c.EnrichmentWorkers <= 0 {
		errs = append(errs, fmt.Errorf("ENRICHMENT_WORKERS must be positive, got %d", c.EnrichmentWorkers))
	}

	if c.ImageMaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("IMAGE_MAX_PIXELS must be positive, got %d", c.ImageMaxPixels))
	}

	if c.EnrichmentTimeout <= 0 {
		errs = append(errs, errors.New("ENRICHMENT_TIMEOUT must be positive"))
	}

	if c.ThumbnailWidth <= 0 || c.ThumbnailHeight <= 0 {
		errs = append(errs, errors.New("THUMBNAIL_WIDTH and THUMBNAIL_HEIGHT must be positive"))
	}

	return errors.Join(errs...)
}
