// Package config loads application configuration from environment variables,
// optionally preloaded from a .env file.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string
	DBPass         string // may be empty
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	StoreDriver      string // "mysql" or "memory"
	Migrate          bool   // apply the embedded schema at startup
	AllowAdminSignup bool   // let /auth/register create admins

	LogLevel  string
	LogFormat string
	LogOutput string

	EventsEnabled bool   // run the booking event consumer
	RabbitURL     string // AMQP url; empty disables publishing
}

// Load reads configuration values from the environment and returns a
// Config. A .env file in the working directory is loaded first when present.
// Missing required variables cause the program to exit with a fatal log
// message. The database variables are only required for the mysql driver.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		StoreDriver:      envStr("STORE_DRIVER", DriverMySQL),
		Migrate:          envBool("DB_MIGRATE", true),
		AllowAdminSignup: envBool("ALLOW_ADMIN_SIGNUP", false),

		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: os.Getenv("LOG_FORMAT"),
		LogOutput: os.Getenv("LOG_OUTPUT"),

		EventsEnabled: envBool("EVENTS_ENABLED", false),
		RabbitURL:     os.Getenv("RABBITMQ_URL"),
	}
	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case DriverMemory:
	default:
		log.Fatalf("invalid STORE_DRIVER: %q", cfg.StoreDriver)
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
