package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "bridge.workers")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateBridge()...)
	errors = append(errors, c.validateScheduler()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateRegistry()...)

	return errors
}

func (c *Config) validateBridge() []ValidationError {
	var errors []ValidationError

	const maxWorkers = 1024
	if c.Bridge.Workers < 1 || c.Bridge.Workers > maxWorkers {
		errors = append(errors, ValidationError{
			Field:   "bridge.workers",
			Value:   c.Bridge.Workers,
			Message: fmt.Sprintf("must be between 1 and %d", maxWorkers),
		})
	}

	if c.Bridge.QueueSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "bridge.queue_size",
			Value:   c.Bridge.QueueSize,
			Message: "must be positive",
		})
	}

	return errors
}

func (c *Config) validateScheduler() []ValidationError {
	var errors []ValidationError

	const maxTickIntervalMs = 60_000
	if c.Scheduler.TickIntervalMs < 1 || c.Scheduler.TickIntervalMs > maxTickIntervalMs {
		errors = append(errors, ValidationError{
			Field:   "scheduler.tick_interval_ms",
			Value:   c.Scheduler.TickIntervalMs,
			Message: fmt.Sprintf("must be between 1 and %d", maxTickIntervalMs),
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateRegistry() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Registry.VersionToken) == "" {
		errors = append(errors, ValidationError{
			Field:   "registry.version_token",
			Value:   c.Registry.VersionToken,
			Message: "must not be empty",
		})
	}

	return errors
}
