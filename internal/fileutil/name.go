package fileutil

import (
	"regexp"
	"strings"
	"unicode"
)

// reservedCharRegex matches characters that are unsafe to use in file names
// across the platforms fluxdag runs on.
var reservedCharRegex = regexp.MustCompile(`[<>:"/\\|!?*]`)

// reservedNamesRegex matches the reserved device names on Windows.
var reservedNamesRegex = regexp.MustCompile(`^(con|prn|aux|nul|com[1-9]|lpt[1-9])$`)

const maxSafeNameRunes = 100

// SafeName converts an arbitrary string into one that is safe to use as a
// file or directory name: lowercase, free of path separators, reserved
// characters, periods and reserved device names, and bounded in length.
func SafeName(s string) string {
	if s == "" {
		return ""
	}

	lowered := strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r == '.':
			b.WriteByte('_')
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case unicode.IsControl(r):
			b.WriteByte('_')
		case reservedCharRegex.MatchString(string(r)):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	name := b.String()
	if reservedNamesRegex.MatchString(name) {
		name = "_" + name + "_"
	}

	runes := []rune(name)
	if len(runes) > maxSafeNameRunes {
		runes = runes[:maxSafeNameRunes]
	}
	return string(runes)
}
