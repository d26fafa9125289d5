package device

import "strings"

// NormalizeUUID converts a UUID or address string to the internal lookup
// format (lowercase, no dashes or colons). Handles dashed UUIDs, compact
// UUIDs, and MAC-style addresses uniformly.
func NormalizeUUID(uuid string) string {
	s := strings.ReplaceAll(uuid, "-", "")
	s = strings.ReplaceAll(s, ":", "")
	return strings.ToLower(s)
}

// NormalizeUUIDs normalizes a slice of UUID strings to internal format.
func NormalizeUUIDs(uuids []string) []string {
	normalized := make([]string, len(uuids))
	for i, uuid := range uuids {
		normalized[i] = NormalizeUUID(uuid)
	}
	return normalized
}
