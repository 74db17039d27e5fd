package pipeline

import (
	"path/filepath"
	"strings"
)

const (
	maxNameRunes   = 180
	fallbackName   = "upload.pptx"
	fallbackStem   = "upload"
	downloadSuffix = "__named.pdf"
)

// SanitizeFilename trims name and replaces every rune outside
// [A-Za-z0-9._ -] with an underscore, one for one. The result is cut to 180
// runes; an empty result becomes "upload.pptx".
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	n := 0
	for _, r := range name {
		if n == maxNameRunes {
			break
		}
		if !allowed(r) {
			r = '_'
		}
		b.WriteRune(r)
		n++
	}
	if b.Len() == 0 {
		return fallbackName
	}
	return b.String()
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == ' ', r == '-':
		return true
	}
	return false
}

// Stem is name without its final extension, or "upload" when that is empty.
func Stem(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		return fallbackStem
	}
	return stem
}

// DownloadName is the attachment name for the PDF rendered from a sanitized
// upload name.
func DownloadName(sanitized string) string {
	return Stem(sanitized) + downloadSuffix
}
