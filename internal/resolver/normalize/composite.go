package normalize

import "strings"

// KeySeparator joins the normalized fields of a composite key.
const KeySeparator = "|"

// SplitComposite splits a raw identifier on the composite delimiters
// (comma, pipe, semicolon) and normalizes each field. It returns nil when
// the input has no delimiter or any field normalizes to empty.
func SplitComposite(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '|' || r == ';'
	})
	if len(parts) < 2 || strings.Count(raw, ",")+strings.Count(raw, "|")+strings.Count(raw, ";") != len(parts)-1 {
		return nil
	}
	fields := make([]string, len(parts))
	for i, p := range parts {
		fields[i] = Normalize(p)
		if fields[i] == "" {
			return nil
		}
	}
	return fields
}

// CompositeKey normalizes fields and joins them into the stored key form.
func CompositeKey(fields ...string) string {
	normalized := make([]string, len(fields))
	for i, f := range fields {
		normalized[i] = Normalize(f)
	}
	return strings.Join(normalized, KeySeparator)
}
