package vision

import "strings"

// CountWords returns the number of whitespace-delimited tokens in text.
// Empty or blank text yields 0.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
