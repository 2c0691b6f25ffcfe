package config

import "fmt"

// ConfigurationError reports a missing or invalid setting. It is never
// retried; callers surface it to the user.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "configuration error"
	}
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s %s", e.Field, e.Reason)
}
