package lock

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gt-coar/coarbuild/internal/errors"
)

// ExplicitSentinel marks the start of the pinned package list in a
// lock file. Everything after it, one URL per line, is the explicit
// environment.
const ExplicitSentinel = "@EXPLICIT"

// ExplicitList is the parsed package section of a lock file
type ExplicitList struct {
	// Header holds the comment lines preceding the sentinel
	Header []string
	// Packages holds the pinned package URLs in file order
	Packages []string
}

// ParseExplicit reads a lock file as plain text and splits it on the
// explicit sentinel line. Lock files are opaque to everything except
// this split.
func ParseExplicit(path string) (*ExplicitList, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeLockNotFound,
				fmt.Sprintf("lock file not found: %s", path))
		}
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close()

	list := &ExplicitList{}
	seen := false

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == ExplicitSentinel:
			seen = true
		case !seen:
			list.Header = append(list.Header, line)
		case line == "" || strings.HasPrefix(line, "#"):
			// blank and comment lines inside the section are noise
		default:
			list.Packages = append(list.Packages, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lock file: %w", err)
	}

	if !seen {
		return nil, errors.NewLockNoExplicitError(path)
	}
	if len(list.Packages) == 0 {
		return nil, errors.New(errors.ErrCodeLockEmptyPackage,
			fmt.Sprintf("lock file %s has an empty explicit section", path))
	}

	return list, nil
}
