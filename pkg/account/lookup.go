// Package account resolves a local login name to the home directory,
// primary group, numeric uid/gid, and login shell the worker needs to
// drop privileges and exec the trick's script. The resolution happens
// fresh on every event rather than being cached, so that user-database
// changes take effect without a daemon restart.
package account

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Account is the resolved identity a worker execs the trick's script as.
type Account struct {
	Name    string
	UID     uint32
	GID     uint32
	HomeDir string
	Shell   string
}

// passwdPath is the NSS "files" source gidget resolves accounts against.
// Tricks name single local accounts, not a full NSS chain; LDAP/NIS
// lookups are out of scope for a kernel-event daemon.
const passwdPath = "/etc/passwd"

// Lookup resolves name to an Account. A failed lookup is fatal for the
// calling worker only, never for the daemon.
func Lookup(name string) (*Account, error) {
	file, err := os.Open(passwdPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open account database: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 7 || fields[0] != name {
			continue
		}

		uid, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed uid for account %q: %w", name, err)
		}
		gid, err := strconv.ParseUint(fields[3], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed gid for account %q: %w", name, err)
		}

		return &Account{
			Name:    name,
			UID:     uint32(uid),
			GID:     uint32(gid),
			HomeDir: fields[5],
			Shell:   fields[6],
		}, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to read account database: %w", err)
	}

	return nil, fmt.Errorf("no such account: %q", name)
}
