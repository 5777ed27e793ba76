package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// wildcards are the characters that turn a single path into a glob pattern
const wildcards = "*?["

// Source describes which images a batch covers
type Source struct {
	pattern string
	paths   []string
	single  bool
}

// Path is a single path or, when it contains a wildcard, a glob pattern
func Path(p string) Source {
	return Source{pattern: p, single: true}
}

// Paths is an explicit list used as given, without pattern expansion
func Paths(paths ...string) Source {
	list := make([]string, len(paths))
	copy(list, paths)
	return Source{paths: list}
}

// IsPattern reports whether the source is a glob pattern
func (s Source) IsPattern() bool {
	return s.single && strings.ContainsAny(s.pattern, wildcards)
}

// String describes the source for logging
func (s Source) String() string {
	if s.single {
		return s.pattern
	}
	return fmt.Sprintf("%d paths", len(s.paths))
}

// Expand resolves the source into concrete paths. A pattern that matches
// nothing yields an empty list, unless a file with that literal name exists.
// Only a malformed pattern is an error.
func Expand(s Source) ([]string, error) {
	if !s.single {
		out := make([]string, len(s.paths))
		copy(out, s.paths)
		return out, nil
	}

	if !s.IsPattern() {
		return []string{s.pattern}, nil
	}

	matches, err := filepath.Glob(s.pattern)
	if len(matches) > 0 {
		return matches, nil
	}
	// a file whose name merely contains a wildcard character, e.g. plot[1].jpg
	if info, statErr := os.Stat(s.pattern); statErr == nil && !info.IsDir() {
		return []string{s.pattern}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", s.pattern, err)
	}
	return []string{}, nil
}
