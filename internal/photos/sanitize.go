package photos

import "strings"

var pathHostileReplacer = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeVenueName converts a venue display name into a filesystem-safe
// directory name. Every place a venue name becomes a path component must go
// through this, or artifacts written here become unreachable elsewhere.
func SanitizeVenueName(name string) string {
	return pathHostileReplacer.Replace(strings.TrimSpace(name))
}
