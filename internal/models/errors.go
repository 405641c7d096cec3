package models

import "fmt"

// AuthenticationError reports that the login did not complete.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("login failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// NavigationError reports a wizard or calendar control that was missing or
// not interactable within its wait window.
type NavigationError struct {
	Step string
	Err  error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation failed at %s: %v", e.Step, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// NotificationError reports a failed send on a single channel.
type NotificationError struct {
	Channel Channel
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("%s notification failed: %v", e.Channel, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// ConfigurationError reports a missing or invalid configuration field.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}
