package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100

	// MaxTagNameLength matches the width of the tags.name column
	MaxTagNameLength = 50
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9_-]`)
	hyphenRun     = regexp.MustCompile(`-{2,}`)
)

// GenerateSlug derives a URL-friendly identifier: accents are folded to
// their base letter, whitespace becomes "-" and other non-word characters
// are dropped. "Educación Hoy" becomes "educacion-hoy".
func GenerateSlug(text string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), text)
	if err != nil {
		folded = text
	}

	slug := strings.ToLower(strings.TrimSpace(folded))
	slug = whitespaceRun.ReplaceAllString(slug, "-")
	slug = nonSlugChars.ReplaceAllString(slug, "")
	slug = hyphenRun.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// IsValidUUID reports whether s is a canonical UUID
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// NormalizePagination applies page/limit defaults and bounds
func NormalizePagination(page, limit int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// ParseIntDefault parses a query value, falling back on error
func ParseIntDefault(value string, fallback int) int {
	if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return parsed
	}
	return fallback
}

// NormalizeTagNames trims, drops blanks and removes duplicates by slug, keeping first spelling
func NormalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		slug := GenerateSlug(name)
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		result = append(result, name)
	}
	return result
}

// ValidateTagNames rejects names longer than the tags.name column
func ValidateTagNames(names []string) error {
	for _, name := range names {
		if utf8.RuneCountInString(name) > MaxTagNameLength {
			return FieldValidationError("tags", fmt.Sprintf("tag names must be at most %d characters", MaxTagNameLength))
		}
	}
	return nil
}

// EscapeLike escapes LIKE wildcards in user input
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ContainsPattern returns a lowercase %term% pattern for case-insensitive LIKE matching
func ContainsPattern(term string) string {
	return "%" + EscapeLike(strings.ToLower(strings.TrimSpace(term))) + "%"
}

// LikeClause builds a case-insensitive LIKE condition for column that honours EscapeLike on both SQLite and Postgres
func LikeClause(column string) string {
	return "LOWER(" + column + ") LIKE ? ESCAPE '\\'"
}
