package kafka

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

const dialTimeout = 5 * time.Second

// HealthChecker reports whether the audit pipeline's brokers are
// reachable. It dials TCP only, so a passing check means the network
// path is up, not that the cluster is serving produce requests.
type HealthChecker struct {
	brokers string
}

// NewHealthChecker takes a comma-separated broker list, matching the
// producer and consumer Config format.
func NewHealthChecker(brokers string) *HealthChecker {
	return &HealthChecker{brokers: brokers}
}

// Check returns nil when at least one broker accepts a connection.
func (h *HealthChecker) Check(ctx context.Context) error {
	var lastErr error
	for _, broker := range strings.Split(h.brokers, ",") {
		broker = strings.TrimSpace(broker)
		if broker == "" {
			continue
		}
		dialer := net.Dialer{Timeout: dialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close() //nolint:errcheck
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("no kafka brokers reachable: %w", lastErr)
	}
	return fmt.Errorf("kafka brokers not configured")
}

// Name identifies the check on the readiness endpoint.
func (h *HealthChecker) Name() string {
	return "kafka"
}
