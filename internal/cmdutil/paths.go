package cmdutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leefowlercu/skillsd/internal/config"
)

// ErrNotRegularFile is returned by ResolveInputFile for directories,
// sockets and other non-regular paths.
var ErrNotRegularFile = errors.New("not a regular file")

// ResolvePath expands "~" and makes path absolute. Empty input stays empty.
func ResolvePath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	return filepath.Abs(config.ExpandPath(path))
}

// ResolveInputFile resolves a file argument and requires it to name an
// existing regular file. With dryRun the file only needs a name, so a
// missing path is accepted.
func ResolveInputFile(arg string, dryRun bool) (string, error) {
	path, err := ResolvePath(arg)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s; %w", arg, err)
	}
	if path == "" {
		return "", fmt.Errorf("file path must not be empty")
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && dryRun:
		return path, nil
	case err != nil:
		return "", fmt.Errorf("failed to stat %s; %w", path, err)
	case !info.Mode().IsRegular():
		return "", fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}
	return path, nil
}
