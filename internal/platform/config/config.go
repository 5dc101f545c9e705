package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr           string
	DatabaseURL    string
	RedisURL       string
	KafkaBrokers   []string
	AuditTopic     string
	InviteLinkKey  string
	InviteLinkBase string
	SweepInterval  time.Duration
	CodeCacheTTL   time.Duration
}

// RedisConfig holds Redis connection tuning. URL empty means Redis is
// not configured and the verification cache is skipped.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisFromEnv builds a RedisConfig with production defaults.
func RedisFromEnv() RedisConfig {
	return RedisConfig{
		URL:          os.Getenv("REDIS_URL"),
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Defaults kept as vars so tests can shrink intervals.
var (
	SweepInterval = 10 * time.Minute
	CodeCacheTTL  = 30 * time.Second
)

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("HOMEROOM_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	if s := os.Getenv("SWEEP_INTERVAL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			SweepInterval = d
		}
	}
	if s := os.Getenv("CODE_CACHE_TTL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			CodeCacheTTL = d
		}
	}

	inviteKey := os.Getenv("INVITE_LINK_KEY")
	if inviteKey == "" {
		inviteKey = "dev-secret-key-change-in-production"
	}
	inviteBase := os.Getenv("INVITE_LINK_BASE")
	if inviteBase == "" {
		inviteBase = "http://localhost:8080/invitations/accept"
	}

	var brokers []string
	if s := os.Getenv("KAFKA_BROKERS"); s != "" {
		for _, b := range strings.Split(s, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "homeroom.audit"
	}

	return Server{
		Addr:           addr,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		KafkaBrokers:   brokers,
		AuditTopic:     auditTopic,
		InviteLinkKey:  inviteKey,
		InviteLinkBase: inviteBase,
		SweepInterval:  SweepInterval,
		CodeCacheTTL:   CodeCacheTTL,
	}
}
