package settings

import "fmt"

// ConfigurationError reports a missing or invalid setting.
type ConfigurationError struct {
	Key    string
	Env    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error: %s %s", e.Key, e.Reason)
	if e.Env != "" {
		msg += fmt.Sprintf(" (set %s)", e.Env)
	}
	return msg
}

func missing(key, env string) *ConfigurationError {
	return &ConfigurationError{Key: key, Env: env, Reason: "is required"}
}

func invalid(key, reason string) *ConfigurationError {
	return &ConfigurationError{Key: key, Reason: reason}
}
