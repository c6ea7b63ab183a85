// Package xresource merges the daemon's Xft.* and Xcursor.* keys into the
// X resource database without disturbing entries owned by other writers.
package xresource

import "strings"

// Merge sets key to value inside a "key:\tvalue" document. Only a line that
// starts with key followed by a colon matches; the separator after the colon
// and every other byte of doc are preserved. A missing key is appended.
func Merge(doc, key, value string) string {
	start, ok := findKey(doc, key)
	if !ok {
		if doc != "" && !strings.HasSuffix(doc, "\n") {
			doc += "\n"
		}
		return doc + key + ":\t" + value + "\n"
	}

	valueStart := start + len(key) + 1
	for valueStart < len(doc) && (doc[valueStart] == '\t' || doc[valueStart] == ' ') {
		valueStart++
	}
	valueEnd := len(doc)
	if nl := strings.IndexByte(doc[valueStart:], '\n'); nl >= 0 {
		valueEnd = valueStart + nl
	}
	return doc[:valueStart] + value + doc[valueEnd:]
}

// findKey returns the offset of the line holding key.
func findKey(doc, key string) (int, bool) {
	needle := key + ":"
	if strings.HasPrefix(doc, needle) {
		return 0, true
	}
	if i := strings.Index(doc, "\n"+needle); i >= 0 {
		return i + 1, true
	}
	return 0, false
}
