package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Required variables are enforced by must();
// everything else has a sensible default.
type Config struct {
	Env            string        // application environment (e.g. "dev", "prod")
	Port           string        // HTTP port to listen on
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	JWTSecret      string        // secret used to sign JWTs
	AccessTTLMin   int           // access token time-to-live in minutes
	RefreshTTLDays int           // refresh token time-to-live in days
	RefreshRotate  bool          // rotate the refresh token on every refresh
	BcryptCost     int           // bcrypt cost for password hashing
	GeocoderBase   string        // geocoding provider base URL ("" = Nominatim default)
	GeocoderAgent  string        // User-Agent sent to the geocoding provider
	GeocoderTO     time.Duration // outbound geocoding timeout
	SearchCacheTTL time.Duration // TTL for cached search results
	GeoCacheTTL    time.Duration // TTL for cached geocoding lookups
}

// Load reads configuration from the environment (and a .env file when
// present).  Missing required variables cause a fatal log and exit.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   intDefault("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: intDefault("REFRESH_TOKEN_TTL_DAYS", 7),
		RefreshRotate:  envBool("REFRESH_ROTATE", false),
		BcryptCost:     intDefault("BCRYPT_COST", 12),
		GeocoderBase:   os.Getenv("GEOCODER_BASE_URL"),
		GeocoderAgent:  envStr("GEOCODER_USER_AGENT", "store-locator-app"),
		GeocoderTO:     envDur("GEOCODER_TIMEOUT", 10*time.Second),
		SearchCacheTTL: envDur("SEARCH_CACHE_TTL", 5*time.Minute),
		GeoCacheTTL:    envDur("GEOCODE_CACHE_TTL", 30*24*time.Hour),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intDefault reads an integer variable, falling back to def when unset.
// An unparseable value is fatal rather than silently defaulted.
func intDefault(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
