// Package config loads the gidget configuration file into a sequence of
// tricks: colon-delimited lines binding a watched path to a script, an
// account, and a mail recipient.
package config

import "github.com/gidget-io/gidget/pkg/mask"

// Limits on individual trick fields.
const (
	// MaxScriptLength is the maximum permitted length of the script field.
	MaxScriptLength = 256
	// MaxMailToLength is the maximum permitted length of the mail-to field.
	MaxMailToLength = 36
)

// Trick binds one filesystem path to one action: the unit of
// configuration.
type Trick struct {
	// Path is the absolute or relative filesystem path being watched. It
	// must exist at startup.
	Path string
	// EventMask selects which kernel event classes trigger the trick.
	EventMask mask.Mask
	// Script is the path to the executable to run; not syntax-checked
	// beyond length.
	Script string
	// Account is the local login name the script runs as, resolved per
	// event rather than at load time.
	Account string
	// MailTo is the opaque recipient string passed verbatim into mail
	// headers.
	MailTo string
	// WatchID is assigned by the kernel upon registration and becomes the
	// trick's primary key (table index WatchID-1).
	WatchID int
	// Line is the 1-indexed source line number the trick was parsed from,
	// retained for diagnostics.
	Line int
}
