package sheetparser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	plainNumberRegex  = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	digitGroupRegex   = regexp.MustCompile(`^\d{3}$`)
	leadingGroupRegex = regexp.MustCompile(`^-?\d{1,3}$`)

	// единицы, которые люди дописывают прямо в ячейку
	numberUnitSuffixes = []string{"m²", "m2", "vnđ", "vnd", "đ", "₫"}

	errEmptyNumber = errors.New("value is empty")
)

// ParseLocaleDecimal разбирает число, записанное человеком:
// "2.500.000.000", "2,500,000,000", "55,5", "1 234 m2", "1.800.000.000 đ".
// Если есть и точка, и запятая - десятичный разделитель тот, что правее.
// Одиночный разделитель, за которым ровно три цифры, считаем разделителем тысяч.
func ParseLocaleDecimal(raw string) (decimal.Decimal, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, suffix := range numberUnitSuffixes {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '\'' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Zero, errEmptyNumber
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastComma >= 0:
		s = normalizeSingleSeparator(s, ",")
	case lastDot >= 0:
		s = normalizeSingleSeparator(s, ".")
	}

	if !plainNumberRegex.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%q is not a number", strings.TrimSpace(raw))
	}
	return decimal.NewFromString(s)
}

func normalizeSingleSeparator(s, sep string) string {
	parts := strings.Split(s, sep)
	if len(parts) > 2 {
		// несколько одинаковых разделителей - только группы тысяч
		if !leadingGroupRegex.MatchString(parts[0]) {
			return s
		}
		for _, p := range parts[1:] {
			if !digitGroupRegex.MatchString(p) {
				return s
			}
		}
		return strings.Join(parts, "")
	}
	if digitGroupRegex.MatchString(parts[1]) && leadingGroupRegex.MatchString(parts[0]) && strings.TrimPrefix(parts[0], "-") != "0" {
		return parts[0] + parts[1]
	}
	return parts[0] + "." + parts[1]
}
