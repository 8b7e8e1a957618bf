package pipeline

import (
	"errors"
	"time"
)

var (
	// ErrFileNotReady marks a file whose size did not stabilize in time.
	ErrFileNotReady = errors.New("file not ready")

	// ErrRead marks a read failure other than permission denied.
	ErrRead = errors.New("read failed")

	// ErrArchive marks an archive failure after a successful append.
	ErrArchive = errors.New("archive failed")
)

// Outcome is the terminal state of one pipeline run.
type Outcome int

const (
	// OutcomeArchived means the content was appended. ArchiveErr may still be set.
	OutcomeArchived Outcome = iota
	// OutcomeAbandoned means the file never became ready.
	OutcomeAbandoned
	// OutcomeDuplicate means this file version was already appended.
	OutcomeDuplicate
	// OutcomeIgnored means no skill pattern matched.
	OutcomeIgnored
	// OutcomeFailed means reading or appending failed.
	OutcomeFailed
	// OutcomeSkipped means a modify event was dropped before the readiness check.
	OutcomeSkipped
	// OutcomeVanished means the file was gone before it could be handled.
	OutcomeVanished
)

// String returns the outcome name used in logs, metrics and history.
func (o Outcome) String() string {
	switch o {
	case OutcomeArchived:
		return "archived"
	case OutcomeAbandoned:
		return "abandoned"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeVanished:
		return "vanished"
	default:
		return "unknown"
	}
}

// Kind names the error category of a Result.
type Kind string

const (
	KindNone                 Kind = ""
	KindFileNotReady         Kind = "file_not_ready"
	KindReadPermissionDenied Kind = "read_permission_denied"
	KindRead                 Kind = "read_error"
	KindServiceInit          Kind = "service_init"
	KindAppend               Kind = "append"
	KindArchive              Kind = "archive"
)

// Result describes one file's trip through the pipeline.
type Result struct {
	RunID       string
	Path        string
	Skill       string
	DocID       string
	Outcome     Outcome
	Kind        Kind
	Err         error
	ArchivePath string
	ArchiveErr  error
	Bytes       int
	ContentHash string
	Duration    time.Duration
}

// Succeeded reports whether the content reached the destination document.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeArchived
}
