package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by GOVERNOR_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("GOVERNOR_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// APIKey returns the static bearer token protecting the v1 routes.
// Empty disables auth (local development).
func APIKey() string {
	return os.Getenv("API_KEY")
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// ProjectorInterval returns how often the kill-switch projection is
// recomputed in the background. Defaults to 30s.
func ProjectorInterval() time.Duration {
	d, err := time.ParseDuration(os.Getenv("PROJECTOR_INTERVAL"))
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Promotion/demotion gate thresholds. Deployments tune the numbers; only
// their monotonicity properties are fixed in code.

func ProvisionalQualityFloor() float64 {
	return envFloat("GATE_PROVISIONAL_QUALITY_FLOOR", 0.60)
}

func ValidatedQualityFloor() float64 {
	return envFloat("GATE_VALIDATED_QUALITY_FLOOR", 0.75)
}

func ProvisionalTierFloor() string {
	return envString("GATE_PROVISIONAL_TIER_FLOOR", "observed")
}

func ValidatedTierFloor() string {
	return envString("GATE_VALIDATED_TIER_FLOOR", "measured")
}

func MinDistinctDays() int {
	return envInt("GATE_MIN_DISTINCT_DAYS", 3)
}

func FailureCeiling() int {
	return envInt("GATE_FAILURE_CEILING", 5)
}

func DecayQualityFloor() float64 {
	return envFloat("GATE_DECAY_QUALITY_FLOOR", 0.20)
}

func DecayMinResolved() int {
	return envInt("GATE_DECAY_MIN_RESOLVED", 10)
}

func envString(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
