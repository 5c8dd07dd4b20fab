package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName normalizes a filename to NFC and replaces filesystem-unsafe
// characters. Slashes, backslashes, colons, and asterisks become dashes; other
// unsafe characters are removed. Interior whitespace runs collapse to a single
// space and the result is trimmed.
//
// Acquisition tools interpolate channel and title text into filenames, so the
// raw names can carry decomposed Unicode and characters that are legal on one
// filesystem but not another.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	name = fileNameReplacer.Replace(name)
	return strings.TrimSpace(strings.Join(strings.Fields(name), " "))
}
