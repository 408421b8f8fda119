package driving

import "github.com/custodia-labs/linkcheck/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with defaults filled in
	// for anything not configured.
	Get() (*domain.AppSettings, error)

	// Value returns the configured raw value for key.
	// The second return is false when the key is not set.
	Value(key string) (any, bool)

	// Set validates and persists a single setting given as text.
	// Unknown keys and malformed values return domain.ErrInvalidInput.
	Set(key, value string) error

	// Keys lists every recognised setting key.
	Keys() []string

	// Path returns where settings are stored.
	Path() string
}
