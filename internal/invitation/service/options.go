package service

import (
	"log/slog"

	invmetrics "homeroom/internal/invitation/metrics"
	"homeroom/internal/joincode"
)

// serviceConfig holds optional dependencies for the service.
type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *invmetrics.Metrics
	generator      joincode.Generator
	signer         LinkSigner
}

// Option configures the service.
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

func WithMetrics(m *invmetrics.Metrics) Option {
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

// WithLinkSigner enables signed links on emailed invitations. Unset
// means email invitations carry only the raw code.
func WithLinkSigner(signer LinkSigner) Option {
	return func(c *serviceConfig) {
		c.signer = signer
	}
}
