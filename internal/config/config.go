package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Profile  string
	HTTPAddr string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTIssuer       string
	JWTAudience     string
	JWTAccessSecret string

	TokenPepper    string
	CollabTokenTTL time.Duration
	PortalBaseURL  string

	IdentityServiceURL string

	CORSOrigins         []string
	APIRateLimitRPM     int
	InviteRateLimitRPM  int
	TokenSweepInterval  time.Duration
	ShutdownGracePeriod time.Duration

	LogLevel string

	OTELServiceName           string
	OTELEnvironment           string
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsEnabled        bool
	OTELTracesEnabled         bool
	OTELLogsEnabled           bool
	OTELMetricsExportInterval time.Duration
}

// Load reads configuration from the environment, applies defaults, and
// validates the result. Production profiles refuse weak or missing secrets.
func Load() (*Config, error) {
	cfg := &Config{
		Profile:  getEnv("APP_PROFILE", "dev"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseDSN: os.Getenv("DATABASE_DSN"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),

		JWTIssuer:       getEnv("JWT_ISSUER", "contract-platform"),
		JWTAudience:     getEnv("JWT_AUDIENCE", "contract-collab-service"),
		JWTAccessSecret: os.Getenv("JWT_ACCESS_SECRET"),

		TokenPepper:    os.Getenv("COLLAB_TOKEN_PEPPER"),
		CollabTokenTTL: getDuration("COLLAB_TOKEN_TTL", 24*time.Hour),
		PortalBaseURL:  getEnv("PORTAL_BASE_URL", "http://localhost:8080"),

		IdentityServiceURL: os.Getenv("IDENTITY_SERVICE_URL"),

		CORSOrigins:         splitAndTrim(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		APIRateLimitRPM:     getInt("API_RATE_LIMIT_RPM", 600),
		InviteRateLimitRPM:  getInt("INVITE_RATE_LIMIT_RPM", 60),
		TokenSweepInterval:  getDuration("TOKEN_SWEEP_INTERVAL", time.Hour),
		ShutdownGracePeriod: getDuration("SHUTDOWN_GRACE_PERIOD", 15*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "contract-collab-service"),
		OTELEnvironment:           getEnv("OTEL_ENVIRONMENT", "dev"),
		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure:  getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELMetricsEnabled:        getBool("OTEL_METRICS_ENABLED", false),
		OTELTracesEnabled:         getBool("OTEL_TRACES_ENABLED", false),
		OTELLogsEnabled:           getBool("OTEL_LOGS_ENABLED", false),
		OTELMetricsExportInterval: getDuration("OTEL_METRICS_EXPORT_INTERVAL", 30*time.Second),
	}

	if err := cfg.validate(); err != nil {
		err = fmt.Errorf("validate config: %w", err)
		recordConfigValidationEvent(context.Background(), cfg.Profile, "failure", classifyConfigLoadError(err))
		return nil, err
	}
	recordConfigValidationEvent(context.Background(), cfg.Profile, "success", "none")
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Profile {
	case "dev", "test", "prod":
	default:
		return fmt.Errorf("unknown APP_PROFILE %q", c.Profile)
	}
	if c.CollabTokenTTL <= 0 {
		return fmt.Errorf("COLLAB_TOKEN_TTL must be positive")
	}
	if !strings.HasPrefix(c.PortalBaseURL, "http://") && !strings.HasPrefix(c.PortalBaseURL, "https://") {
		return fmt.Errorf("PORTAL_BASE_URL must be an absolute http(s) URL")
	}
	if c.Profile == "prod" {
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required in prod")
		}
		if len(c.JWTAccessSecret) < 32 {
			return fmt.Errorf("JWT_ACCESS_SECRET must be at least 32 bytes in prod")
		}
		if len(c.TokenPepper) < 16 {
			return fmt.Errorf("COLLAB_TOKEN_PEPPER must be at least 16 bytes in prod")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
