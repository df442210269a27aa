package process

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// FindCommand searches the given directories, in order, for a regular
// file with the given name and returns its full path. Unlike
// os/exec.LookPath it consults an explicit directory list rather than
// PATH, so the result doesn't depend on the daemon's inherited
// environment.
func FindCommand(name string, directories []string) (string, error) {
	for _, directory := range directories {
		candidate := filepath.Join(directory, name)
		metadata, err := os.Stat(candidate)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", errors.Wrap(err, "unable to query file metadata")
		}
		if !metadata.Mode().IsRegular() {
			continue
		}
		return candidate, nil
	}
	return "", errors.New("unable to locate command")
}
