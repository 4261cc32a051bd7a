// Package config builds runtime configuration from environment variables so
// main stays lean. Every knob has a development default; production overrides
// them through the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures all service-level configuration.
type Config struct {
	Addr          string
	PostgresDSN   string
	RedisURL      string
	KafkaBrokers  []string
	KafkaTopic    string
	JWTSigningKey string

	// PublicBaseURL is the externally reachable prefix encoded into QR
	// certificates.
	PublicBaseURL string

	// File storage roots. Both are public-servable; returned URLs are
	// relative paths rooted here.
	UploadDir      string
	CertificateDir string

	// DocumentTTL sets an expiry on every accepted upload; zero disables
	// expiry.
	DocumentTTL time.Duration

	// Chain client settings for the minting ledger.
	ChainEndpoint   string
	ContractAddress string
	MintTimeout     time.Duration

	// Reconciliation sweep: cadence between runs and how old an in-flight
	// record must be before the sweep touches it.
	SweepInterval   time.Duration
	SweepGrace      time.Duration
	DocumentGCEvery time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:            envOr("RESIDENCY_ADDR", ":8080"),
		PostgresDSN:     os.Getenv("RESIDENCY_POSTGRES_DSN"),
		RedisURL:        os.Getenv("RESIDENCY_REDIS_URL"),
		KafkaBrokers:    splitList(os.Getenv("RESIDENCY_KAFKA_BROKERS")),
		KafkaTopic:      envOr("RESIDENCY_KAFKA_TOPIC", "residency.lifecycle"),
		JWTSigningKey:   envOr("RESIDENCY_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PublicBaseURL:   envOr("RESIDENCY_PUBLIC_BASE_URL", "http://localhost:8080"),
		UploadDir:       envOr("RESIDENCY_UPLOAD_DIR", "public/uploads"),
		CertificateDir:  envOr("RESIDENCY_CERTIFICATE_DIR", "public/certificates"),
		DocumentTTL:     envDuration("RESIDENCY_DOCUMENT_TTL", 0),
		ChainEndpoint:   os.Getenv("RESIDENCY_CHAIN_ENDPOINT"),
		ContractAddress: os.Getenv("RESIDENCY_CONTRACT_ADDRESS"),
		MintTimeout:     envDuration("RESIDENCY_MINT_TIMEOUT", 90*time.Second),
		SweepInterval:   envDuration("RESIDENCY_SWEEP_INTERVAL", 5*time.Minute),
		SweepGrace:      envDuration("RESIDENCY_SWEEP_GRACE", 10*time.Minute),
		DocumentGCEvery: envDuration("RESIDENCY_DOCUMENT_GC_EVERY", time.Hour),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
