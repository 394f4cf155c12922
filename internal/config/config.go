package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Default endpoints of the public lookup service and the IP echo service
const (
	DefaultBaseURL   = "http://minuteware.net:8908"
	DefaultIPEchoURL = "http://jsonip.com/"
)

// Config holds all application configuration
type Config struct {
	// Logging
	LogLevel  string `validate:"oneof=trace debug info warn error"`
	LogPretty bool

	// Lookup client
	BaseURL   string `validate:"required,url"`
	IPEchoURL string `validate:"required,url"`

	// Contract suite
	Live             bool   // run the contract suite against BaseURL
	ExpectationsPath string // optional YAML overrides for contract expectations

	// Reference server
	Port              string `validate:"required,numeric"`
	ProxyProtocol     bool   // accept PROXY protocol headers from a load balancer
	TrustProxyHeaders bool   // honour X-Real-IP / X-Forwarded-For

	// Rate limiting
	RateLimitType   string `validate:"oneof=memory redis"`
	RateLimit       int    `validate:"gt=0"`
	RateLimitWindow int    `validate:"gt=0"` // seconds

	// Datastore configuration
	DatastoreType string `validate:"oneof=csv mysql redis mmdb"`
	DatastorePath string // CSV or mmdb file

	MySQLDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int `validate:"gte=0"`
}

// Load reads configuration from environment variables, after loading a .env
// file if one is present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or defaults")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only
func FromEnv() *Config {
	return &Config{
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogPretty: getEnvAsBool("LOG_PRETTY", true),

		BaseURL:   strings.TrimRight(getEnv("GEOLOOKUP_BASE_URL", DefaultBaseURL), "/"),
		IPEchoURL: getEnv("IPECHO_URL", DefaultIPEchoURL),

		Live:             getEnvAsBool("GEOLOOKUP_LIVE", false),
		ExpectationsPath: getEnv("CONTRACT_EXPECTATIONS", ""),

		Port:              getEnv("PORT", "8908"),
		ProxyProtocol:     getEnvAsBool("PROXY_PROTOCOL", false),
		TrustProxyHeaders: getEnvAsBool("TRUST_PROXY_HEADERS", true),

		RateLimitType:   strings.ToLower(getEnv("RATE_LIMITER_TYPE", "memory")),
		RateLimit:       getEnvAsInt("RATE_LIMIT", 10),
		RateLimitWindow: getEnvAsInt("RATE_LIMIT_WINDOW", 1),

		DatastoreType: strings.ToLower(getEnv("DATASTORE_TYPE", "csv")),
		DatastorePath: getEnv("DATASTORE_PATH", "./data/geoip.csv"),

		MySQLDSN: getEnv("MYSQL_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
	}
}

// Validate checks field constraints and the datastore-specific requirements
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.DatastoreType == "mysql" && c.MySQLDSN == "" {
		return fmt.Errorf("invalid configuration: MYSQL_DSN is required for the mysql datastore")
	}
	if (c.DatastoreType == "csv" || c.DatastoreType == "mmdb") && c.DatastorePath == "" {
		return fmt.Errorf("invalid configuration: DATASTORE_PATH is required for the %s datastore", c.DatastoreType)
	}
	return nil
}

// ProxyHeadersTrusted reports whether forwarding headers may override the
// connection address. The PROXY protocol already supplies the client address,
// so enabling it disables the headers.
func (c *Config) ProxyHeadersTrusted() bool {
	return c.TrustProxyHeaders && !c.ProxyProtocol
}

// EffectiveRate is the per-IP request rate in requests per second
func (c *Config) EffectiveRate() float64 {
	return float64(c.RateLimit) / float64(c.RateLimitWindow)
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt reads an environment variable as an integer.
// Unset or unparsable values yield the default.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBool reads an environment variable as a boolean
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
