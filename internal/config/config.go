package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// EnvFileLoaded reports whether a .env file was read.
	EnvFileLoaded bool

	Env      string
	Port     string
	LogLevel string

	CORSOrigins string

	DBDriver          string // postgres | sqlite
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	SQLitePath        string
	DBMaxIdleConns    int
	DBMaxOpenConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	JWTSecret string

	FXBaseURL        string
	FXRatePerSecond  float64
	FXRequestTimeout time.Duration

	ReportRefreshInterval time.Duration
	AnomalyThreshold      float64

	// Optional overrides of the built-in VAMP thresholds.
	VisaStandard         float64
	VisaExcessive        float64
	MastercardStandard   float64
	MastercardExcessive  float64
	CoverLetterMinLength int
}

// LoadEnv loads variables from the given files (.env by default) without
// overriding the process environment. It reports whether they were read.
func LoadEnv(filenames ...string) bool {
	return godotenv.Load(filenames...) == nil
}

// Load reads the .env file (if any) and builds Config from the environment.
func Load() Config {
	envFileLoaded := LoadEnv()

	return Config{
		EnvFileLoaded: envFileLoaded,

		Env:         GetEnv("ENV", "development"),
		Port:        GetEnv("PORT", "3000"),
		LogLevel:    strings.ToLower(GetEnv("LOG_LEVEL", "info")),
		CORSOrigins: GetEnv("CORS_ORIGINS", "http://localhost:5173"),

		DBDriver:          strings.ToLower(GetEnv("DB_DRIVER", "postgres")),
		DBHost:            GetEnv("DB_HOST", "localhost"),
		DBPort:            GetEnv("DB_PORT", "5432"),
		DBUser:            GetEnv("DB_USER", "postgres"),
		DBPassword:        GetEnv("DB_PASSWORD", "postgres"),
		DBName:            GetEnv("DB_NAME", "chargeback"),
		DBSSLMode:         GetEnv("DB_SSLMODE", "disable"),
		SQLitePath:        GetEnv("SQLITE_PATH", "chargeback.db"),
		DBMaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
		DBConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		DBConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),

		RedisHost:     GetEnv("REDIS_HOST", "localhost"),
		RedisPort:     GetEnv("REDIS_PORT", "6379"),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       GetIntEnv("REDIS_DB", 0),
		CacheTTL:      GetDurationEnv("CACHE_TTL", 24*time.Hour),

		JWTSecret: GetEnv("JWT_SECRET", ""),

		FXBaseURL:        GetEnv("FX_BASE_URL", "https://api.frankfurter.app"),
		FXRatePerSecond:  GetFloatEnv("FX_RATE_PER_SECOND", 5),
		FXRequestTimeout: GetDurationEnv("FX_REQUEST_TIMEOUT", 10*time.Second),

		ReportRefreshInterval: GetDurationEnv("REPORT_REFRESH_INTERVAL", 4*time.Hour),
		AnomalyThreshold:      GetFloatEnv("ANOMALY_THRESHOLD", 1.8),

		VisaStandard:         GetFloatEnv("VAMP_VISA_STANDARD", 0),
		VisaExcessive:        GetFloatEnv("VAMP_VISA_EXCESSIVE", 0),
		MastercardStandard:   GetFloatEnv("VAMP_MASTERCARD_STANDARD", 0),
		MastercardExcessive:  GetFloatEnv("VAMP_MASTERCARD_EXCESSIVE", 0),
		CoverLetterMinLength: GetIntEnv("COVER_LETTER_MIN_LENGTH", 50),
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetFloatEnv returns a float environment variable or a default value.
func GetFloatEnv(key string, defaultVal float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable (e.g. "4h") or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// IsProduction checks if the app runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}
