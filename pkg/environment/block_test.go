package environment

import "testing"

func TestParseBlock(t *testing.T) {
	// A duplicate key and a non-KEY=value line have to survive the split
	// untouched; CRLF endings and trailing blank lines are line framing,
	// which ParseBlock normalizes away.
	input := "KEY=VALUE\nKEY=duplicate\r\nOTHER=2\nIGNORED\n\n"
	expected := []string{
		"KEY=VALUE",
		"KEY=duplicate",
		"OTHER=2",
		"IGNORED",
	}

	output := ParseBlock(input)

	if len(output) != len(expected) {
		t.Fatalf("ParseBlock returned %d entries, want %d", len(output), len(expected))
	}
	for i, entry := range output {
		if entry != expected[i] {
			t.Errorf("entry %d is %q, want %q", i, entry, expected[i])
		}
	}
}
