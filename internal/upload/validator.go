// Package upload decides which uploaded files the processing endpoints accept.
package upload

import (
	"errors"
	"sort"
	"strings"
)

// ErrValidation marks request problems that map to a 400 response.
var ErrValidation = errors.New("validation failed")

type validationError struct{ msg string }

func (e *validationError) Error() string        { return e.msg }
func (e *validationError) Is(target error) bool { return target == ErrValidation }

// Invalid returns an error that matches ErrValidation and prints as msg.
func Invalid(msg string) error {
	return &validationError{msg: msg}
}

type MediaKind string

const (
	Audio MediaKind = "audio"
	Image MediaKind = "image"
)

var allowed = map[MediaKind]map[string]struct{}{
	Audio: setOf("mp3", "wav", "m4a", "flac", "ogg", "aac", "wma"),
	Image: setOf("png", "jpg", "jpeg", "bmp", "tiff", "webp"),
}

func setOf(exts ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		m[e] = struct{}{}
	}
	return m
}

// IsAllowed reports whether filename carries an extension accepted for kind.
// A name without a dot is never allowed.
func IsAllowed(filename string, kind MediaKind) bool {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return false
	}
	exts, ok := allowed[kind]
	if !ok {
		return false
	}
	_, ok = exts[strings.ToLower(filename[i+1:])]
	return ok
}

// Extensions returns the sorted allow-list for kind.
func Extensions(kind MediaKind) []string {
	out := make([]string, 0, len(allowed[kind]))
	for e := range allowed[kind] {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
