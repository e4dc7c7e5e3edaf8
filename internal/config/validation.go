package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidConfig is matched by every ValidationErrors.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError is one problem with one field. Warnings do not prevent
// the configuration from being used.
type ValidationError struct {
	Field   string
	Message string
	Warning bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// IsWarning reports whether the problem is non-fatal.
func (e *ValidationError) IsWarning() bool { return e.Warning }

// ValidationErrors collects every problem found by ValidateConfig.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i := range e {
		msgs[i] = e[i].Error()
	}
	return strings.Join(msgs, "; ")
}

func (e ValidationErrors) Unwrap() error { return ErrInvalidConfig }

func (e ValidationErrors) filter(warning bool) ValidationErrors {
	var out ValidationErrors
	for _, ve := range e {
		if ve.Warning == warning {
			out = append(out, ve)
		}
	}
	return out
}

// Warnings returns the non-fatal problems.
func (e ValidationErrors) Warnings() ValidationErrors { return e.filter(true) }

// Errors returns the fatal problems.
func (e ValidationErrors) Errors() ValidationErrors { return e.filter(false) }

// HasErrors reports whether any problem is fatal.
func (e ValidationErrors) HasErrors() bool { return len(e.Errors()) > 0 }

// RequiredFieldError reports a missing value.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "required field is missing"}
}

// RangeError reports a value outside [min, max].
func RangeError(field string, min, max any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf("value must be between %v and %v", min, max)}
}

type checker struct {
	errs ValidationErrors
}

func (c *checker) add(ve *ValidationError) { c.errs = append(c.errs, *ve) }

func (c *checker) fail(field, format string, args ...any) {
	c.add(&ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) warn(field, format string, args ...any) {
	c.add(&ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Warning: true})
}

func (c *checker) oneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	c.fail(field, "invalid value %q (valid: %s)", value, strings.Join(allowed, ", "))
}

// ValidateConfig returns ValidationErrors describing every problem in c, or
// nil when there are none.
func ValidateConfig(c *Config) error {
	var ck checker

	if c.Version < 1 || c.Version > Version {
		ck.fail("version", "unsupported version %d (current: %d)", c.Version, Version)
	}

	// log
	if c.Log.GeneratorName == "" {
		ck.add(RequiredFieldError("log.generator_name"))
	}
	switch ext := strings.TrimPrefix(c.Log.Extension, "."); {
	case ext == "":
		ck.add(RequiredFieldError("log.extension"))
	case strings.ContainsAny(ext, `/\.`):
		ck.fail("log.extension", "invalid extension %q", c.Log.Extension)
	}
	if c.Log.DTDURL == "" {
		ck.add(RequiredFieldError("log.dtd_url"))
	} else if u, err := url.Parse(c.Log.DTDURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		// only external validators resolve the doctype
		ck.warn("log.dtd_url", "doctype URL should be http or https")
	}

	// catalog
	if c.Catalog.Enabled && c.Catalog.Path == "" {
		ck.fail("catalog.path", "path is required when the catalog is enabled")
	}
	if c.Catalog.RecentLimit < 0 {
		ck.fail("catalog.recent_limit", "recent limit cannot be negative")
	}

	// watch
	if c.Watch.DebounceMs < 10 || c.Watch.DebounceMs > 60000 {
		ck.add(RangeError("watch.debounce_ms", 10, 60000))
	}

	// logging
	ck.oneOf("logging.level", c.Logging.Level, "debug", "info", "warn", "error")
	ck.oneOf("logging.format", c.Logging.Format, "text", "json")
	ck.oneOf("logging.output", c.Logging.Output, "stdout", "stderr", "file", "both")
	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		ck.fail("logging.file_path", "file path is required when output is %q", c.Logging.Output)
	}
	if c.Logging.MaxSizeMB < 1 {
		ck.fail("logging.max_size_mb", "max size must be at least 1 MB")
	}
	if c.Logging.MaxBackups < 0 {
		ck.fail("logging.max_backups", "max backups cannot be negative")
	}

	if len(ck.errs) > 0 {
		return ck.errs
	}
	return nil
}
