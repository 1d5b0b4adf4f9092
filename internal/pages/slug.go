package pages

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CheckSlug accepts a raw route parameter as a content source slug. The value
// is returned unchanged; only values that could escape the route are refused.
func CheckSlug(input string) (string, error) {
	if strings.TrimSpace(input) == "" {
		return "", errors.New("empty slug")
	}
	if strings.ContainsAny(input, "/\\?#") || strings.Contains(input, "..") {
		return "", errors.New("slug contains invalid path characters")
	}
	for _, r := range input {
		if r < 0x20 || r == 0x7f {
			return "", errors.New("slug contains control characters")
		}
	}
	return input, nil
}

// SlugTitle converts a slug into a human-friendly title, used while the real
// title is not known yet.
func SlugTitle(slug string) string {
	parts := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' || r == '.' })
	return cases.Title(language.Und).String(strings.Join(parts, " "))
}
