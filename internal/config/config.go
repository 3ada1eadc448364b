package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Port   string
	DBPath string

	// Sources is the ordered provider list the chain is built from.
	Sources          []string
	TwelveDataAPIKey string

	QuoteTTL          time.Duration
	FxTTL             time.Duration
	ValidationTTLDays int

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration

	// RefreshSchedule is a cron spec for background quote warming; empty
	// disables the refresher.
	RefreshSchedule string
}

func Load() Config {
	return Config{
		Port:              getEnv("PORT", "8080"),
		DBPath:            getEnv("DB_PATH", "finansista.db"),
		Sources:           getEnvList("MARKET_DATA_SOURCES", []string{"twelvedata", "stooq"}),
		TwelveDataAPIKey:  getEnv("TWELVEDATA_API_KEY", ""),
		QuoteTTL:          time.Duration(getEnvInt("QUOTE_TTL_SECONDS", 60)) * time.Second,
		FxTTL:             time.Duration(getEnvInt("FX_TTL_SECONDS", 3600)) * time.Second,
		ValidationTTLDays: getEnvInt("VALIDATION_TTL_DAYS", 7),
		HTTPTimeout:       time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 10)) * time.Second,
		RefreshSchedule:   getEnv("REFRESH_SCHEDULE", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n := 0
	for _, c := range v {
		if c < '0' || c > '9' {
			return fallback
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
