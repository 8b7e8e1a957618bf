package watcher

// Kind classifies a file event.
type Kind int

const (
	Created Kind = iota
	Modified
)

// String returns the lowercase kind name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	default:
		return "unknown"
	}
}

// FileEvent is a create or modify notification for a regular file
// directly inside the watched folder.
type FileEvent struct {
	Path string
	Kind Kind
}
