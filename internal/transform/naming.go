package transform

import (
	"strings"
	"unicode"
)

// SnakeCase converts an upstream camelCase field name to the storage column
// naming convention: a delimiter is inserted between a lowercase-or-digit
// rune and a following uppercase rune, then the whole name is lowercased.
// Names without case transitions pass through lowercased. The conversion is
// idempotent.
func SnakeCase(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)

	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// NormalizeColumns rekeys a row from upstream field names to storage column
// names. It is applied uniformly to every column in a batch.
func NormalizeColumns(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[SnakeCase(k)] = v
	}
	return out
}
