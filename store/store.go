package store

// Keys used by the session manager. The token and the serialized user record
// are always written and cleared together.
const (
	KeyToken = "auth_token"
	KeyUser  = "auth_user"
)

// Store is an ambient key-value store with page-lifetime-like durability.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool)

	// Set stores a single entry.
	Set(key, value string) error

	// SetAll stores all entries in one atomic update.
	SetAll(entries map[string]string) error

	// Clear removes the given keys in one atomic update.
	Clear(keys ...string) error

	// Watch registers fn to be called whenever the store contents change,
	// including changes made by another process for implementations that
	// support it. The returned function removes the registration.
	Watch(fn func()) (func(), error)
}
