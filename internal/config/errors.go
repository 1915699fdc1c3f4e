package config

import "strings"

// ConfigurationError enumerates every schema/bounds violation found during
// Validate, rather than failing fast on the first one, so an operator can
// fix a broken file in one pass. It is only ever produced at startup or on
// a configuration update, never mid-run.
type ConfigurationError struct {
	Violations []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Violations) == 1 {
		return "config: " + e.Violations[0]
	}
	return "config: " + strings.Join(e.Violations, "; ")
}

func newConfigurationError(violations []string) error {
	if len(violations) == 0 {
		return nil
	}
	return &ConfigurationError{Violations: violations}
}
