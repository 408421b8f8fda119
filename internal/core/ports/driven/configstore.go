package driven

// ConfigStore provides access to flat, dot-keyed configuration values
// such as "external.timeout". Implementations own persistence and type
// conversion; typed getters return the zero value for a missing key or a
// value of the wrong type, so callers check Get when absence matters.
type ConfigStore interface {
	// Get retrieves a raw configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value.
	GetString(key string) string

	// GetInt retrieves an integer configuration value.
	GetInt(key string) int

	// GetBool retrieves a boolean configuration value.
	GetBool(key string) bool

	// GetStringSlice retrieves a string list configuration value.
	GetStringSlice(key string) []string

	// Set stores a configuration value and persists it immediately.
	Set(key string, value any) error

	// Path returns where the configuration is persisted.
	Path() string
}
