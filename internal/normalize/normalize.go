// Package normalize turns free-text labels into stable grouping keys.
package normalize

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sentinel keys and dimension values substituted for missing data.
const (
	NoNeighborhood = "SIN_COLONIA"
	NoSection      = "SIN_SECCION"
	NoType         = "Sin tipo"
	NoStatus       = "Sin estado"
	NoMonth        = "sin_mes"
)

// Text returns the canonical text form of a decoded JSON scalar.
// Integral numbers print without a fractional part so that 14 and 14.0 agree.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case interface{ String() string }:
		return t.String()
	default:
		return ""
	}
}

// Truthy reports whether v holds a non-empty value.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case bool:
		return t
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// Key normalizes a label into a grouping key: upper-cased, accents stripped,
// only letters, numbers and single inner spaces kept. It returns false for nil.
func Key(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	return key(Text(v)), true
}

// Section normalizes a section identifier. When the text contains digits the
// key is just those digits ("Sección 014-B" -> "014"); otherwise it falls back
// to Key.
func Section(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	text := strings.TrimSpace(Text(v))

	var digits strings.Builder
	for _, r := range text {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() > 0 {
		return digits.String(), true
	}
	return key(text), true
}

// NeighborhoodKey returns the grouping key for a neighborhood label, or the
// SIN_COLONIA sentinel when the label is missing or normalizes to nothing.
func NeighborhoodKey(v any) string {
	if k, ok := Key(v); ok && k != "" {
		return k
	}
	return NoNeighborhood
}

// SectionKey returns the grouping key for a section label, or SIN_SECCION.
func SectionKey(v any) string {
	if k, ok := Section(v); ok && k != "" {
		return k
	}
	return NoSection
}

func key(text string) string {
	text = strings.ToUpper(strings.TrimSpace(text))
	text = stripMarks(text)
	// Some letters only gain an uppercase form once their marks are gone.
	text = strings.ToUpper(text)

	var b strings.Builder
	b.Grow(len(text))
	lastSpace := false
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
