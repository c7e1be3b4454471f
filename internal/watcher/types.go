// Package watcher observes the vault folder for file changes and emits
// debounced, coalesced batches of events for incremental re-indexing.
package watcher

import "time"

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file was created.
	OpCreate Operation = iota
	// OpModify indicates an existing file was modified.
	OpModify
	// OpDelete indicates a file was deleted or renamed away.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent represents one file system event.
type FileEvent struct {
	// Path is the absolute path of the file.
	Path string

	// Operation is the type of change.
	Operation Operation

	// Timestamp is when the event was detected.
	Timestamp time.Time
}

// Options configures the watcher behavior.
type Options struct {
	// DebounceWindow is the time to wait before emitting coalesced
	// events. Default 500ms.
	DebounceWindow time.Duration

	// EventBufferSize is the size of the batch channel buffer.
	// Default 64.
	EventBufferSize int
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	if o.DebounceWindow == 0 {
		o.DebounceWindow = 500 * time.Millisecond
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = 64
	}
	return o
}
