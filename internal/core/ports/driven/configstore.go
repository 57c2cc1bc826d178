package driven

// ConfigStore holds flat dotted keys ("limits.step_budget") over a
// persisted settings document.
//
// Values keep the shapes a TOML decoder produces: integers are int64,
// floats are float64 and arrays are []any. The typed getters return the
// zero value when a key is missing or holds another shape.
type ConfigStore interface {
	Get(key string) (any, bool)
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetStringSlice(key string) []string

	// Set stores value under key. A map value is flattened beneath key.
	// Set does not persist; call Save.
	Set(key string, value any) error

	// Save writes the document back to its backing file.
	Save() error

	// Load replaces the in-memory keys with the backing file's contents.
	Load() error

	// Path is the backing file, or a marker for stores without one.
	Path() string
}
