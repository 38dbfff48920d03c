package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"facultyleave/internal/domain/approval"
)

type Config struct {
	Addr                    string
	DatabaseURL             string
	JWTSecret               string
	Environment             string
	RedisAddr               string
	RedisDB                 int
	FacultyCacheTTL         time.Duration
	CORSAllowedOrigins      []string
	MaxBodyBytes            int64
	RunMigrations           bool
	RunSeed                 bool
	SeedRosterPath          string
	TerminalApproverDefault string
	TerminalApprovers       string
	LeaveBackdateDays       int
	LeaveMaxSpanDays        int
	CCLWorkCreditDays       float64
	LetterInstitutionName   string
	IdempotencyTTL          time.Duration
	RateLimitPerMinute      int
}

// Load reads the environment, after merging a .env file from the working directory
// when one exists. Variables already set in the environment win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:                    getEnv("APP_ADDR", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		Environment:             getEnv("APP_ENV", "development"),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		RedisDB:                 getEnvInt("REDIS_DB", 0),
		FacultyCacheTTL:         getEnvDuration("FACULTY_CACHE_TTL", 10*time.Minute),
		CORSAllowedOrigins:      getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		MaxBodyBytes:            int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RunMigrations:           getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:                 getEnvBool("RUN_SEED", false),
		SeedRosterPath:          getEnv("SEED_ROSTER_PATH", ""),
		TerminalApproverDefault: getEnv("TERMINAL_APPROVER_DEFAULT", "principal"),
		TerminalApprovers:       getEnv("TERMINAL_APPROVERS", ""),
		LeaveBackdateDays:       getEnvInt("LEAVE_BACKDATE_DAYS", 35),
		LeaveMaxSpanDays:        getEnvInt("LEAVE_MAX_SPAN_DAYS", 365),
		CCLWorkCreditDays:       getEnvFloat("CCL_WORK_CREDIT_DAYS", 1),
		LetterInstitutionName:   getEnv("LETTER_INSTITUTION_NAME", "Leave Office"),
		IdempotencyTTL:          getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		RateLimitPerMinute:      getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Approvers parses the per-campus terminal approver settings.
func (c Config) Approvers() (approval.ApproverConfig, error) {
	return approval.ParseApproverConfig(c.TerminalApproverDefault, c.TerminalApprovers)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Environment == "production" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.LeaveBackdateDays < 0 {
		return fmt.Errorf("LEAVE_BACKDATE_DAYS must not be negative")
	}
	if c.LeaveMaxSpanDays <= 0 {
		return fmt.Errorf("LEAVE_MAX_SPAN_DAYS must be positive")
	}
	if c.CCLWorkCreditDays <= 0 {
		return fmt.Errorf("CCL_WORK_CREDIT_DAYS must be positive")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if _, err := c.Approvers(); err != nil {
		return fmt.Errorf("TERMINAL_APPROVERS: %w", err)
	}
	return nil
}
