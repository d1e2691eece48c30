package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRunRegex = regexp.MustCompile(`\s+`)
	nonSlugCharsRegex  = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRunRegex     = regexp.MustCompile(`-{2,}`)

	// đ/Đ не раскладываются через NFD, их приходится заменять руками
	vietnameseDReplacer = strings.NewReplacer("đ", "d", "Đ", "D")
)

// FoldDiacritics убирает диакритику: "Vinhomes Quận 9" -> "Vinhomes Quan 9"
func FoldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, vietnameseDReplacer.Replace(s))
	if err != nil {
		return vietnameseDReplacer.Replace(s)
	}
	return folded
}

// GenerateSlug строит детерминированный slug для названия проекта/застройщика.
// Идемпотентна: GenerateSlug(GenerateSlug(x)) == GenerateSlug(x).
func GenerateSlug(name string) string {
	s := strings.ToLower(FoldDiacritics(name))
	s = strings.TrimSpace(s)
	s = whitespaceRunRegex.ReplaceAllString(s, "-")
	s = nonSlugCharsRegex.ReplaceAllString(s, "")
	s = hyphenRunRegex.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SlugWithSuffix - вариант slug при коллизии: base-2, base-3, ...
func SlugWithSuffix(base string, n int) string {
	if n <= 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}
