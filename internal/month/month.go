// Package month resolves heterogeneous month and date values to canonical
// Spanish month names.
package month

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/sells-group/geostats-cli/internal/normalize"
)

// Names lists the canonical month names, January first.
var Names = [12]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// dateLayouts are tried in order after the name and number rules.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2/1/2006",
	"2-1-2006",
	"2006-1-2 15:04:05",
	"2006/1/2 15:04:05",
	"2/1/2006 15:04:05",
	"2-1-2006 15:04:05",
}

// isoLayouts cover the ISO-8601 shapes accepted once a trailing Z is removed.
var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04-07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
	"20060102",
}

// Name returns the canonical name for month number m (1-12).
func Name(m time.Month) string {
	return Names[m-1]
}

// Parse resolves v to a canonical month name. Rules, first match wins:
// a Spanish month name or its three-letter prefix, a bare month number,
// one of the fixed date layouts, then ISO-8601.
func Parse(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	text := strings.TrimSpace(normalize.Text(v))
	if text == "" {
		return "", false
	}

	if hasLetter(text) {
		if name, ok := byName(text); ok {
			return name, true
		}
	} else if name, ok := byNumber(text); ok {
		return name, true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return Name(t.Month()), true
		}
	}

	iso := strings.TrimSuffix(strings.TrimSuffix(text, "Z"), "z")
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, iso); err == nil {
			return Name(t.Month()), true
		}
	}

	return "", false
}

// OrDefault returns Parse(v) or the sin_mes sentinel.
func OrDefault(v any) string {
	if name, ok := Parse(v); ok {
		return name
	}
	return normalize.NoMonth
}

func byName(text string) (string, bool) {
	key, _ := normalize.Key(text)
	if key == "" {
		return "", false
	}
	for i, name := range Names {
		upper := strings.ToUpper(name)
		if key == upper || strings.HasPrefix(key, upper[:3]) {
			return Names[i], true
		}
	}
	return "", false
}

func byNumber(text string) (string, bool) {
	var digits strings.Builder
	for _, r := range text {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 || digits.Len() > 2 {
		return "", false
	}
	n, err := strconv.Atoi(digits.String())
	if err != nil || n < 1 || n > 12 {
		return "", false
	}
	return Names[n-1], true
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
