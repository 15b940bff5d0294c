package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:", len(e))
	for _, err := range e {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Validate checks the configuration for errors.
// Returns nil if valid, or ValidationErrors if invalid.
func Validate(cfg Config) error {
	var errs ValidationErrors

	// DATABASE_URL is required
	if cfg.DatabaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "DATABASE_URL",
			Message: "required",
		})
	}

	errs = appendDurationErrors(errs, "WAKE_INTERVAL", cfg.WakeIntervalStr)
	errs = appendDurationErrors(errs, "MAX_DOWNTIME", cfg.MaxDowntimeStr)
	errs = appendDurationErrors(errs, "NOTIFY_WEBHOOK_TIMEOUT", cfg.NotifyWebhookTimeoutStr)

	// A webhook secret without a URL is almost certainly a misconfiguration.
	if cfg.NotifyWebhookSecret != "" && cfg.NotifyWebhookURL == "" {
		errs = append(errs, ValidationError{
			Field:   "NOTIFY_WEBHOOK_SECRET",
			Message: "set without NOTIFY_WEBHOOK_URL",
		})
	}

	if cfg.DigestEnabled {
		if _, err := cron.ParseStandard(cfg.DigestSchedule); err != nil {
			errs = append(errs, ValidationError{
				Field:   "DIGEST_SCHEDULE",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
		if cfg.NotifyWebhookURL == "" {
			errs = append(errs, ValidationError{
				Field:   "DIGEST_ENABLED",
				Message: "requires NOTIFY_WEBHOOK_URL",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func appendDurationErrors(errs ValidationErrors, field, value string) ValidationErrors {
	if value == "" {
		return errs
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("invalid duration: %v", err),
		})
	}
	if d <= 0 {
		return append(errs, ValidationError{
			Field:   field,
			Message: "must be positive",
		})
	}
	return errs
}
