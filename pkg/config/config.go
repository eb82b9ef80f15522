package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseURL        string
	AppEnv             string
	AppURL             string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	JWTSecret          string
	FrontendURL        string
	AllowedEmails      []string

	// Analytics query service (Tinybird pipes)
	AnalyticsHost         string
	AnalyticsToken        string
	AnalyticsFastPipe     string
	AnalyticsFallbackPipe string
	AnalyticsCountryPipe  string

	// Event sink (Tinybird Events API). Defaults to the analytics credentials.
	EventSinkHost  string
	EventSinkToken string

	// UpstreamTimeout bounds every outbound call to the sink and the pipes.
	UpstreamTimeout time.Duration

	// RedisURL enables cross-instance link change notifications when set.
	RedisURL string
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	analyticsHost := getEnv("ANALYTICS_HOST", getEnv("TINYBIRD_HOST", ""))
	analyticsToken := getEnv("ANALYTICS_TOKEN", getEnv("TINYBIRD_TOKEN", ""))

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        getEnv("DATABASE_URL", "file:db.sqlite"),
		AppEnv:             getEnv("APP_ENV", "local"),
		AppURL:             strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback"),
		JWTSecret:          getEnv("JWT_SECRET", "secret"),
		FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:8080/dashboard"),
		AllowedEmails:      splitList(getEnv("ALLOWED_EMAILS", "")),

		AnalyticsHost:         strings.TrimRight(analyticsHost, "/"),
		AnalyticsToken:        analyticsToken,
		AnalyticsFastPipe:     getEnv("ANALYTICS_FAST_PIPE", "fast_link_analytics"),
		AnalyticsFallbackPipe: getEnv("ANALYTICS_FALLBACK_PIPE", "link_analytics"),
		AnalyticsCountryPipe:  getEnv("ANALYTICS_COUNTRY_PIPE", "link_country_analytics"),

		EventSinkHost:  strings.TrimRight(getEnv("EVENT_SINK_HOST", analyticsHost), "/"),
		EventSinkToken: getEnv("EVENT_SINK_TOKEN", analyticsToken),

		UpstreamTimeout: getDuration("UPSTREAM_TIMEOUT", 5*time.Second),
		RedisURL:        getEnv("REDIS_URL", ""),
	}
}

// IsProduction reports whether cookies should be marked Secure and logs emitted as JSON.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
