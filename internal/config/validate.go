package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	validMediaKinds = []string{"video", "audio", "livestream"}
	validOrders     = []string{"playlist", "reverse", "newest", "oldest"}
	validLogFormats = []string{"text", "json"}
	validLogLevels  = []string{"debug", "info", "warn", "error"}
)

// Validate checks the configuration for invalid values. Validation errors
// name the offending key so the user can fix the file directly.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validatePaths,
		c.validateDownload,
		c.validatePacing,
		c.validateNotifications,
		c.validateWorkflow,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must not be empty")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if !contains(validMediaKinds, c.Download.MediaKind) {
		return fmt.Errorf("download.media_kind must be one of %s", strings.Join(validMediaKinds, ", "))
	}
	if !contains(validOrders, c.Download.Order) {
		return fmt.Errorf("download.order must be one of %s", strings.Join(validOrders, ", "))
	}
	if c.Download.TimeoutSeconds <= 0 {
		return errors.New("download.timeout_seconds must be positive")
	}
	if strings.TrimSpace(c.Download.FilenameTemplate) == "" {
		return errors.New("download.filename_template must not be empty")
	}
	return nil
}

func (c *Config) validatePacing() error {
	if c.Pacing.RotationFrequency <= 0 {
		return errors.New("pacing.rotation_frequency must be positive")
	}
	if c.Pacing.MinDelaySeconds < 0 {
		return errors.New("pacing.min_delay_seconds must not be negative")
	}
	if c.Pacing.MinDelaySeconds > c.Pacing.MaxDelaySeconds {
		return errors.New("pacing.min_delay_seconds must not exceed pacing.max_delay_seconds")
	}
	if c.Pacing.ValidateTimeout <= 0 {
		return errors.New("pacing.validate_timeout must be positive")
	}
	if c.Pacing.ValidateWorkers <= 0 {
		return errors.New("pacing.validate_workers must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	for _, threshold := range c.Notifications.AlertThresholdsMB {
		if threshold <= 0 {
			return errors.New("notifications.alert_thresholds_mb entries must be positive")
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !contains(validLogFormats, c.Logging.Format) {
		return fmt.Errorf("logging.format must be one of %s", strings.Join(validLogFormats, ", "))
	}
	if !contains(validLogLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of %s", strings.Join(validLogLevels, ", "))
	}
	return nil
}

func contains(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
