// Package scope validates and normalizes the directory argument of the health
// command into a repository-relative path.
package scope

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidArgument reports a malformed scope path.
var ErrInvalidArgument = errors.New("invalid directory argument")

// Normalize converts a user-supplied directory into the canonical
// repository-relative form: forward slashes, no leading or trailing
// separator, no empty segments. The repository root is "".
//
// Backslashes are accepted as separators, as git for Windows does. Absolute
// paths, drive letters, UNC prefixes, "." and ".." segments and control
// characters are rejected.
func Normalize(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return "", nil
	}

	for _, r := range p {
		if r == 0 || unicode.IsControl(r) {
			return "", fmt.Errorf("%w: %q contains a control character", ErrInvalidArgument, raw)
		}
	}

	p = strings.ReplaceAll(p, `\`, "/")

	if strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q is absolute, expected a path relative to the repository root", ErrInvalidArgument, raw)
	}
	if len(p) >= 2 && p[1] == ':' && isASCIILetter(p[0]) {
		return "", fmt.Errorf("%w: %q has a drive letter, expected a path relative to the repository root", ErrInvalidArgument, raw)
	}

	segments := make([]string, 0, strings.Count(p, "/")+1)
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "":
			continue
		case ".", "..":
			return "", fmt.Errorf("%w: %q contains a %q segment", ErrInvalidArgument, raw, seg)
		}
		segments = append(segments, seg)
	}
	return strings.Join(segments, "/"), nil
}

// Display renders a normalized scope the way the report echoes it: empty for
// the root, otherwise with a trailing separator.
func Display(scope string) string {
	if scope == "" {
		return ""
	}
	return scope + "/"
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
