package environment

import (
	"fmt"
	"strings"
)

// Parse converts a native "KEY=value" environment slice (as returned by
// os.Environ, or as built for an exec.Cmd) to a map, returning an error
// if any entry carries no "=" at all. Unlike ToMap, which silently
// drops malformed entries, Parse is used where a malformed entry
// indicates a caller bug rather than an artifact of the host platform's
// own environment (some platforms emit synthetic "=value" entries with
// empty names; Parse accepts those without error and leaves them out of
// the result).
func Parse(specification []string) (map[string]string, error) {
	result := make(map[string]string, len(specification))
	for _, entry := range specification {
		if !strings.Contains(entry, "=") {
			return nil, fmt.Errorf("invalid environment variable specification: %q", entry)
		}
		keyValue := strings.SplitN(entry, "=", 2)
		if keyValue[0] == "" {
			continue
		}
		result[keyValue[0]] = keyValue[1]
	}
	return result, nil
}
