package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	HTTPAddr    string
	CORSOrigins []string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBTimezone string

	JWTSecret string

	DraftDir string
	DraftTTL time.Duration

	UploadDir     string
	PublicBaseURL string

	GeocodeBaseURL string
	GeocodeAPIKey  string
	GeocodeHost    string
	GeocodeTimeout time.Duration

	LogFile  string
	LogLevel string
}

// Load reads .env (if present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found – relying on env vars")
	}

	return Config{
		HTTPAddr:    getEnv("HTTP_ADDR", "0.0.0.0:8080"),
		CORSOrigins: getList("CORS_ORIGINS"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "route_planner"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
		DBTimezone: getEnv("DB_TIMEZONE", "UTC"),

		JWTSecret: getEnv("JWT_SECRET", "supersecret"),

		DraftDir: getEnv("DRAFT_DIR", "./data/drafts"),
		DraftTTL: getDuration("DRAFT_TTL", 30*24*time.Hour),

		UploadDir:     getEnv("UPLOAD_DIR", "./data/uploads"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080/uploads"),

		GeocodeBaseURL: getEnv("GEOCODE_BASE_URL", "https://geoapify-platform.p.rapidapi.com/v1/geocode"),
		GeocodeAPIKey:  getEnv("GEOCODE_API_KEY", ""),
		GeocodeHost:    getEnv("GEOCODE_HOST", "geoapify-platform.p.rapidapi.com"),
		GeocodeTimeout: getDuration("GEOCODE_TIMEOUT", 10*time.Second),

		LogFile:  getEnv("LOG_FILE", "./logs/app.log"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),
	}
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

// getList splits a comma-separated variable, dropping empty entries.
func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// getDuration accepts Go duration strings ("720h") or plain seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, exists := os.LookupEnv(key)
	if !exists || v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("invalid duration for %s=%q, using %s", key, v, defaultValue)
	return defaultValue
}
