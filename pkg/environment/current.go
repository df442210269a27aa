package environment

import (
	"os"
)

// Current is a snapshot of the daemon process's own environment, parsed
// once at startup. Worker invocations build their own environment from
// CopyCurrent rather than mutating this map.
var Current = ToMap(os.Environ())

// CopyCurrent returns a fresh copy of Current that callers may modify
// freely.
func CopyCurrent() map[string]string {
	result := make(map[string]string, len(Current))
	for k, v := range Current {
		result[k] = v
	}
	return result
}
