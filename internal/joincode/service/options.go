package service

import (
	"log/slog"

	"homeroom/internal/joincode"
	codemetrics "homeroom/internal/joincode/metrics"
)

// serviceConfig holds optional dependencies for services.
type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *codemetrics.Metrics
	generator      joincode.Generator
	cache          VerificationCache
	tx             StoreTx
}

// Option configures a service.
type Option func(c *serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(c *serviceConfig) {
		c.auditPublisher = publisher
	}
}

func WithMetrics(m *codemetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

// WithGenerator replaces the crypto/rand code generator. Tests inject
// deterministic generators to force collisions.
func WithGenerator(g joincode.Generator) Option {
	return func(c *serviceConfig) {
		c.generator = g
	}
}

// WithVerificationCache enables cache-aside verification. Unset means
// every Verify call reads the store.
func WithVerificationCache(cache VerificationCache) Option {
	return func(c *serviceConfig) {
		c.cache = cache
	}
}

// WithStoreTx sets the transactional boundary used for mutations.
// Defaults to an in-memory lock when unset.
func WithStoreTx(tx StoreTx) Option {
	return func(c *serviceConfig) {
		c.tx = tx
	}
}
