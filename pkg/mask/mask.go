// Package mask defines the 32-bit event-mask bitmap shared by trick
// configuration and decoded kernel events. The bit values are taken
// directly from the inotify bit positions exposed by
// golang.org/x/sys/unix, since gidget's mask is, deliberately, the
// kernel's own inotify mask.
package mask

import "golang.org/x/sys/unix"

// Mask is a 32-bit bitmap selecting event classes, as understood both by
// a trick's configured mask and by a decoded event's triggered-classes
// field.
type Mask uint32

// Individual event classes, bit-for-bit identical to the inotify values
// reported by the kernel.
const (
	Access         = Mask(unix.IN_ACCESS)        // bit 0
	Modify         = Mask(unix.IN_MODIFY)        // bit 1
	Attrib         = Mask(unix.IN_ATTRIB)        // bit 2
	CloseWrite     = Mask(unix.IN_CLOSE_WRITE)   // bit 3
	CloseNowrite   = Mask(unix.IN_CLOSE_NOWRITE) // bit 4
	Open           = Mask(unix.IN_OPEN)          // bit 5
	MovedFrom      = Mask(unix.IN_MOVED_FROM)    // bit 6
	MovedTo        = Mask(unix.IN_MOVED_TO)      // bit 7
	Create         = Mask(unix.IN_CREATE)        // bit 8
	Delete         = Mask(unix.IN_DELETE)        // bit 9
	DeleteSelf     = Mask(unix.IN_DELETE_SELF)   // bit 10
	MoveSelf       = Mask(unix.IN_MOVE_SELF)     // bit 11
	Unmount        = Mask(unix.IN_UNMOUNT)       // bit 13
	QueueOverflow  = Mask(unix.IN_Q_OVERFLOW)    // bit 14
	Ignored        = Mask(unix.IN_IGNORED)       // bit 15
	OnlyDir        = Mask(unix.IN_ONLYDIR)       // bit 24
	DontFollow     = Mask(unix.IN_DONT_FOLLOW)   // bit 25
	MaskAdd        = Mask(unix.IN_MASK_ADD)      // bit 29
	IsDir          = Mask(unix.IN_ISDIR)         // bit 30
	Oneshot        = Mask(unix.IN_ONESHOT)       // bit 31
)

// Synthetic masks combining more than one bit, recognized when decoding
// configured masks.
const (
	Close Mask = CloseWrite | CloseNowrite
	Move  Mask = MovedFrom | MovedTo
)

// names pairs every individually-decodable bit with its canonical name,
// in bit order, for use by String and by the -v mask dump.
var names = []struct {
	bit  Mask
	name string
}{
	{Access, "ACCESS"},
	{Modify, "MODIFY"},
	{Attrib, "ATTRIB"},
	{CloseWrite, "CLOSE_WRITE"},
	{CloseNowrite, "CLOSE_NOWRITE"},
	{Open, "OPEN"},
	{MovedFrom, "MOVED_FROM"},
	{MovedTo, "MOVED_TO"},
	{Create, "CREATE"},
	{Delete, "DELETE"},
	{DeleteSelf, "DELETE_SELF"},
	{MoveSelf, "MOVE_SELF"},
	{Unmount, "UNMOUNT"},
	{QueueOverflow, "Q_OVERFLOW"},
	{Ignored, "IGNORED"},
	{OnlyDir, "ONLYDIR"},
	{DontFollow, "DONT_FOLLOW"},
	{MaskAdd, "MASK_ADD"},
	{IsDir, "ISDIR"},
	{Oneshot, "ONESHOT"},
}

// Has reports whether every bit set in other is also set in m.
func (m Mask) Has(other Mask) bool {
	return m&other == other
}

// Any reports whether at least one bit set in other is also set in m.
func (m Mask) Any(other Mask) bool {
	return m&other != 0
}

// String renders the mask as a pipe-separated list of its set bit names,
// used by the verbose (-v) event-mask dump. Unrecognized bits are
// rendered as a trailing hex residue.
func (m Mask) String() string {
	if m == 0 {
		return "(none)"
	}
	var out string
	remaining := m
	for _, entry := range names {
		if remaining&entry.bit == entry.bit {
			if out != "" {
				out += "|"
			}
			out += entry.name
			remaining &^= entry.bit
		}
	}
	if remaining != 0 {
		if out != "" {
			out += "|"
		}
		out += hex(uint32(remaining))
	}
	return out
}

// hex renders a residual bitmap as a zero-padded, 0x-prefixed hex string,
// matching the format used for the mask embedded in the assembled
// command line.
func hex(v uint32) string {
	const digits = "0123456789abcdef"
	buf := [10]byte{'0', 'x'}
	for i := 0; i < 8; i++ {
		shift := uint(28 - 4*i)
		buf[2+i] = digits[(v>>shift)&0xf]
	}
	return string(buf[:])
}

// HexString renders the mask as the zero-padded, 0x-prefixed 8-digit
// hex literal embedded in the worker's composed command line, e.g.
// "0x00000100" for a create-only mask.
func (m Mask) HexString() string {
	return hex(uint32(m))
}
