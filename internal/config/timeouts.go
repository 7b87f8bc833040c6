package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timing values of a provisioning run.
// These values can be customized via environment variables.
type Timeouts struct {
	InstanceReady     time.Duration // Upper bound for WaitUntilReady; 0 disables it
	PollInterval      time.Duration // Interval between instance status polls
	SSHSettleDelay    time.Duration // Pause before the first SSH attempt
	SSHDialTimeout    time.Duration // TCP/handshake timeout of one SSH attempt
	SSHRetryDelay     time.Duration // Pause between SSH attempts
	SSHMaxAttempts    int           // Total SSH connection attempts
	HTTPTimeout       time.Duration // Timeout of a single provider API request
	RetryMaxAttempts  int           // Retries of transient provider API failures
	RetryInitialDelay time.Duration // Initial delay between provider API retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - COMFYPROV_TIMEOUT_INSTANCE_READY (default: 20m)
//   - COMFYPROV_POLL_INTERVAL (default: 2s)
//   - COMFYPROV_SSH_SETTLE_DELAY (default: 5s)
//   - COMFYPROV_SSH_DIAL_TIMEOUT (default: 10s)
//   - COMFYPROV_SSH_RETRY_DELAY (default: 2s)
//   - COMFYPROV_SSH_MAX_ATTEMPTS (default: 10)
//   - COMFYPROV_HTTP_TIMEOUT (default: 30s)
//   - COMFYPROV_RETRY_MAX_ATTEMPTS (default: 3)
//   - COMFYPROV_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		InstanceReady:     parseDuration("COMFYPROV_TIMEOUT_INSTANCE_READY", 20*time.Minute),
		PollInterval:      parseDuration("COMFYPROV_POLL_INTERVAL", 2*time.Second),
		SSHSettleDelay:    parseDuration("COMFYPROV_SSH_SETTLE_DELAY", 5*time.Second),
		SSHDialTimeout:    parseDuration("COMFYPROV_SSH_DIAL_TIMEOUT", 10*time.Second),
		SSHRetryDelay:     parseDuration("COMFYPROV_SSH_RETRY_DELAY", 2*time.Second),
		SSHMaxAttempts:    parseInt("COMFYPROV_SSH_MAX_ATTEMPTS", 10),
		HTTPTimeout:       parseDuration("COMFYPROV_HTTP_TIMEOUT", 30*time.Second),
		RetryMaxAttempts:  parseInt("COMFYPROV_RETRY_MAX_ATTEMPTS", 3),
		RetryInitialDelay: parseDuration("COMFYPROV_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}

	return i
}
