package config

import (
	"fmt"
	"strings"
	"time"
)

// ShellTimeoutDuration parses actions.shell_timeout.
func (c ActionsConfig) ShellTimeoutDuration() (time.Duration, error) {
	return parseDuration("actions.shell_timeout", c.ShellTimeout, DefaultActionsShellTimeout)
}

// SubmitTimeoutDuration parses ingress.submit_timeout.
func (c IngressConfig) SubmitTimeoutDuration() (time.Duration, error) {
	return parseDuration("ingress.submit_timeout", c.SubmitTimeout, DefaultIngressSubmitTimeout)
}

// DrainTimeoutDuration parses ingress.drain_timeout.
func (c IngressConfig) DrainTimeoutDuration() (time.Duration, error) {
	return parseDuration("ingress.drain_timeout", c.DrainTimeout, DefaultIngressDrainTimeout)
}

// parseDuration falls back to def when value is blank. Zero and negative
// durations are rejected.
func parseDuration(key, value, def string) (time.Duration, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		raw = def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, raw)
	}
	return d, nil
}
