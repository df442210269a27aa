package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/sys/unix"

	"github.com/gidget-io/gidget/pkg/logging"
	"github.com/gidget-io/gidget/pkg/mask"
)

// MaxAccountLength is the maximum permitted length of the account field,
// matching Linux's LOGIN_NAME_MAX.
const MaxAccountLength = 256

// maxLineLength bounds a single configuration line. POSIX only guarantees
// {_POSIX2_LINE_MAX} (2048 bytes); gidget is generous and doubles it,
// since there is no portable syscall to query the host's actual
// LINE_MAX the way pathconf exposes per-filesystem limits.
const maxLineLength = 4096

// Load reads a line-oriented configuration file and returns the sequence
// of accepted tricks. Malformed lines are reported through
// logger and skipped; they never abort the load. An unreadable or
// missing file is returned as an error, which the caller must treat as
// fatal.
func Load(path string, logger *logging.Logger) ([]Trick, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open configuration file: %w", err)
	}
	defer file.Close()

	var tricks []Trick

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, maxLineLength), maxLineLength)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()

		if trimmed := strings.TrimSpace(stripComment(line)); trimmed == "" {
			continue
		}

		trick, err := parseLine(line, lineNumber)
		if err != nil {
			logger.Printf("discarding line %d: %v", lineNumber, err)
			continue
		}

		tricks = append(tricks, *trick)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to read configuration file: %w", err)
	}

	return tricks, nil
}

// stripComment removes a trailing "# ..." comment from a line. A '#'
// anywhere introduces a comment that extends to end of line.
func stripComment(line string) string {
	if index := strings.IndexByte(line, '#'); index != -1 {
		return line[:index]
	}
	return line
}

// parseLine validates and converts a single non-blank, non-comment
// configuration line into a Trick.
func parseLine(rawLine string, lineNumber int) (*Trick, error) {
	// Global character rules apply to the raw line, including any
	// trailing comment, since both are part of what the administrator
	// typed.
	for _, r := range rawLine {
		if r == '\'' {
			return nil, fmt.Errorf("illegal character")
		}
		if r != '\n' && !unicode.IsPrint(r) {
			return nil, fmt.Errorf("invisible character")
		}
	}

	line := stripComment(rawLine)
	fields := strings.Split(line, ":")
	if len(fields) != 5 {
		return nil, fmt.Errorf("expected 5 colon-separated fields, found %d", len(fields))
	}

	path := strings.TrimSpace(fields[0])
	maskField := strings.TrimSpace(fields[1])
	script := strings.TrimSpace(fields[2])
	account := strings.TrimSpace(fields[3])
	mailTo := strings.TrimSpace(fields[4])

	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	if _, err := maxNameLength(path); err != nil {
		return nil, fmt.Errorf("path: %w", err)
	}
	if _, err := os.Lstat(path); err != nil {
		return nil, fmt.Errorf("path does not exist: %w", err)
	}

	if maskField == "" || !allDigits(maskField) {
		return nil, fmt.Errorf("mask must be all digits")
	}
	parsedMask, err := strconv.ParseUint(maskField, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("mask out of range: %w", err)
	}
	if parsedMask == 0 {
		return nil, fmt.Errorf("mask must be non-zero")
	}

	if len(script) > MaxScriptLength {
		return nil, fmt.Errorf("script exceeds %d characters", MaxScriptLength)
	}
	if script == "" {
		return nil, fmt.Errorf("empty script")
	}

	if len(account) > MaxAccountLength {
		return nil, fmt.Errorf("account exceeds %d characters", MaxAccountLength)
	}
	if account == "" {
		return nil, fmt.Errorf("empty account")
	}

	if len(mailTo) > MaxMailToLength {
		return nil, fmt.Errorf("mail-to exceeds %d characters", MaxMailToLength)
	}
	if mailTo == "" {
		return nil, fmt.Errorf("empty mail-to")
	}

	return &Trick{
		Path:      path,
		EventMask: mask.Mask(parsedMask),
		Script:    script,
		Account:   account,
		MailTo:    mailTo,
		Line:      lineNumber,
	}, nil
}

// allDigits reports whether s is non-empty and consists entirely of
// decimal digits.
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// maxNameLength queries the maximum filename length supported by the
// filesystem hosting path, equivalent to pathconf(_PC_NAME_MAX).
// golang.org/x/sys/unix does not expose pathconf directly, so this uses
// the portable Linux substitute: Statfs's reported Namelen field.
func maxNameLength(path string) (int64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("unable to query filesystem name-length limit: %w", err)
	}
	if stat.Namelen <= 0 {
		return 0, fmt.Errorf("filesystem reported non-positive name-length limit")
	}
	return stat.Namelen, nil
}

// MaxNameLength is the exported form of maxNameLength. The event-read
// buffer is sized from RunningMaxNameLength, which applies the same
// query to every accepted trick.
func MaxNameLength(path string) (int64, error) {
	return maxNameLength(path)
}

// RunningMaxNameLength computes the running maximum of per-trick
// name-length limits, used to size the event-read buffer.
func RunningMaxNameLength(tricks []Trick) (int64, error) {
	var max int64
	for _, t := range tricks {
		n, err := maxNameLength(t.Path)
		if err != nil {
			return 0, err
		}
		if n > max {
			max = n
		}
	}
	if max == 0 {
		// No tricks loaded; fall back to the POSIX-mandated NAME_MAX
		// floor so the event-read buffer is never zero-sized.
		max = 255
	}
	return max, nil
}
