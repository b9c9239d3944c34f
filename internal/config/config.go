package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppPort         string
	DBDSN           string
	RedisAddr       string
	JWTSecret       string
	JWTExpiresMin   int
	GoogleClientID  string
	GoogleSecret    string
	GoogleRedirect  string
	FrontendBaseURL string

	// AutoApproveAfter is how long a submission may sit pending before the
	// sweep approves it on the buyer's behalf. Calendar time, default 7 days.
	AutoApproveAfter time.Duration
	SweepInterval    time.Duration
}

func Load() Config {
	expires, _ := strconv.Atoi(get("JWT_EXPIRES_MIN", "10080"))
	autoApproveHours, _ := strconv.Atoi(get("AUTO_APPROVE_AFTER_HOURS", "168"))
	sweepMin, _ := strconv.Atoi(get("SWEEP_INTERVAL_MIN", "60"))

	return Config{
		AppPort:          get("APP_PORT", "8080"),
		DBDSN:            must("DB_DSN"),
		RedisAddr:        get("REDIS_ADDR", "localhost:6379"),
		JWTSecret:        must("JWT_SECRET"),
		JWTExpiresMin:    expires,
		GoogleClientID:   get("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:     get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirect:   get("GOOGLE_REDIRECT_URL", ""),
		FrontendBaseURL:  get("FRONTEND_BASE_URL", "http://localhost:3000"),
		AutoApproveAfter: time.Duration(autoApproveHours) * time.Hour,
		SweepInterval:    time.Duration(sweepMin) * time.Minute,
	}
}

func get(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
