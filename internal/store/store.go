// Package store provides persistence for named tbasic program sources.
package store

// Store is the interface for program persistence.
type Store interface {
	// Get retrieves a program's source by name. ok is false if not found.
	Get(name string) (source string, ok bool, err error)
	// Put stores a program by name. Storing the current source again is a
	// no-op; anything else becomes a new version.
	Put(name, source string) error
	// Delete removes a program and its history.
	Delete(name string) error
	// List returns the stored program names in order.
	List() ([]string, error)
	// Close releases resources.
	Close() error
}

// VersionEntry represents a single version of a stored program.
type VersionEntry struct {
	Version int
	Value   string
	Ts      string
}

// HistoryStore extends Store with version history queries.
type HistoryStore interface {
	Store
	// GetHistory returns versions newest first. A limit of 0 returns all.
	GetHistory(name string, limit int) ([]VersionEntry, error)
}
