package scratch

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const fallbackName = "upload"

// SanitizeFilename reduces name to a flat, ASCII-only filename: path
// separators become word breaks, non-ASCII letters lose their accents or are
// dropped, whitespace collapses to '_', and anything outside [A-Za-z0-9_.-]
// is removed. Leading and trailing dots and underscores are trimmed. The
// extension survives: when nothing is left of the stem the result is
// "upload.<ext>".
func SanitizeFilename(name string) string {
	ext := extension(name)
	name = sanitize(name)

	if ext == "" || strings.HasSuffix(strings.ToLower(name), "."+ext) {
		return name
	}
	if name == fallbackName || strings.EqualFold(name, ext) {
		return fallbackName + "." + ext
	}
	return name + "." + ext
}

// extension returns the lowercased ASCII suffix after the last dot of the
// final path element, or "" when there is none.
func extension(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + 'a' - 'A'
		}
		return -1
	}, name[i+1:])
}

func sanitize(name string) string {
	name = norm.NFKD.String(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return ' '
		case r > unicode.MaxASCII:
			return -1
		}
		return r
	}, name)

	name = strings.Join(strings.Fields(name), "_")
	name = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		switch r {
		case '_', '.', '-':
			return r
		}
		return -1
	}, name)

	name = strings.Trim(name, "._")
	if name == "" {
		return fallbackName
	}
	return name
}
