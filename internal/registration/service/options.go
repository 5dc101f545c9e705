package service

import (
	"log/slog"

	regmetrics "homeroom/internal/registration/metrics"
	"homeroom/internal/registration/tracer"
)

// serviceConfig holds optional dependencies for the service.
type serviceConfig struct {
	logger               *slog.Logger
	auditPublisher       AuditPublisher
	metrics              *regmetrics.Metrics
	tracer               tracer.Tracer
	verificationRedirect string
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

func WithMetrics(m *regmetrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *serviceConfig) {
		c.tracer = t
	}
}

// WithVerificationRedirect sets the page the mailed address-confirmation
// link lands on. Unset leaves the provider's default.
func WithVerificationRedirect(url string) Option {
	return func(c *serviceConfig) {
		c.verificationRedirect = url
	}
}
