package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for internal consistency. All
// problems are reported at once.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if pathErrs := validatePaths(&c.Paths); len(pathErrs) > 0 {
		errs = append(errs, pathErrs...)
	}
	if svcErrs := validateService(&c.Service); len(svcErrs) > 0 {
		errs = append(errs, svcErrs...)
	}
	if slurmErrs := validateSlurm(&c.Slurm); len(slurmErrs) > 0 {
		errs = append(errs, slurmErrs...)
	}
	if logErrs := validateLogging(&c.Logging); len(logErrs) > 0 {
		errs = append(errs, logErrs...)
	}
	if watchErrs := validateWatch(&c.Watch); len(watchErrs) > 0 {
		errs = append(errs, watchErrs...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validatePaths(p *PathsConfig) ValidationErrors {
	var errs ValidationErrors

	if p.ConfFile == "" {
		errs = append(errs, ValidationError{
			Field:   "paths.conf_file",
			Message: "path cannot be empty",
		})
	}
	if p.DefaultsFile == "" {
		errs = append(errs, ValidationError{
			Field:   "paths.defaults_file",
			Message: "path cannot be empty",
		})
	}
	if p.StateDB == "" {
		errs = append(errs, ValidationError{
			Field:   "paths.state_db",
			Message: "path cannot be empty",
		})
	}

	return errs
}

func validateService(s *ServiceConfig) ValidationErrors {
	var errs ValidationErrors

	if s.Unit == "" {
		errs = append(errs, ValidationError{
			Field:   "service.unit",
			Message: "unit name cannot be empty",
		})
	} else if !strings.Contains(s.Unit, ".") {
		errs = append(errs, ValidationError{
			Field:   "service.unit",
			Message: fmt.Sprintf("unit name %q has no type suffix", s.Unit),
		})
	}
	if s.RestartAttempts < 1 {
		errs = append(errs, ValidationError{
			Field:   "service.restart_attempts",
			Message: fmt.Sprintf("must be at least 1, got %d", s.RestartAttempts),
		})
	}
	if s.RestartBaseDelaySec < 0 {
		errs = append(errs, ValidationError{
			Field:   "service.restart_base_delay_sec",
			Message: fmt.Sprintf("cannot be negative, got %d", s.RestartBaseDelaySec),
		})
	}

	return errs
}

func validateSlurm(s *SlurmConfig) ValidationErrors {
	var errs ValidationErrors

	if s.User == "" {
		errs = append(errs, ValidationError{
			Field:   "slurm.user",
			Message: "user cannot be empty",
		})
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q", l.Level),
		})
	}

	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format %q", l.Format),
		})
	}

	switch strings.ToLower(l.Output) {
	case "", "stdout", "stderr", "file", "both":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("unknown output %q", l.Output),
		})
	}
	if (l.Output == "file" || l.Output == "both") && l.FilePath == "" {
		errs = append(errs, ValidationError{
			Field:   "logging.file_path",
			Message: "required when output includes file",
		})
	}

	return errs
}

func validateWatch(w *WatchConfig) ValidationErrors {
	var errs ValidationErrors

	if w.DebounceMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "watch.debounce_ms",
			Message: fmt.Sprintf("cannot be negative, got %d", w.DebounceMs),
		})
	}

	return errs
}
