package environment

import "strings"

// ParseBlock splits a textual environment block of the form
// VAR1=value1\nVAR2=value2... into its individual entries, tolerating
// CRLF line endings and surrounding blank lines. Entries are not
// validated beyond the line split; feed the result to Parse or ToMap
// for that.
func ParseBlock(block string) []string {
	block = strings.ReplaceAll(block, "\r\n", "\n")
	block = strings.TrimSpace(block)
	return strings.Split(block, "\n")
}
