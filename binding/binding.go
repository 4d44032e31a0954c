// Package binding fills ${...} placeholders in output name templates.
package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/ByLCY/pulseira/layout"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate replaces ${path.to.value} in text with values from data.
// Placeholders whose path does not resolve are kept as they are.
func Interpolate(text string, data map[string]any) string {
	return InterpolateFunc(text, data, nil)
}

// InterpolateFunc is Interpolate with every substituted value passed
// through fn first.
func InterpolateFunc(text string, data map[string]any, fn func(string) string) string {
	if data == nil {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		val, ok := lookup(data, match)
		if !ok {
			return match
		}
		s := fmt.Sprint(val)
		if fn != nil {
			s = fn(s)
		}
		return s
	})
}

// Missing lists the placeholders of text that data cannot resolve.
func Missing(text string, data map[string]any) []string {
	var out []string
	for _, m := range exprPattern.FindAllString(text, -1) {
		if _, ok := lookup(data, m); !ok {
			out = append(out, m)
		}
	}
	return out
}

func lookup(data map[string]any, match string) (any, bool) {
	groups := exprPattern.FindStringSubmatch(match)
	if len(groups) < 2 {
		return nil, false
	}
	path := strings.TrimSpace(groups[1])
	if path == "" {
		return nil, false
	}
	return resolvePath(data, path)
}

func resolvePath(data map[string]any, path string) (any, bool) {
	var current any = data
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[segment]; !ok {
			return nil, false
		}
	}
	return current, true
}

// RecordData exposes one record to name templates. index is 1-based.
//
//	${index}  ${index3} (zero padded)  ${card}  ${name}  ${batch}
//	${record.birth_date} ... ${record.extra}
func RecordData(index int, rec layout.Record, batch string) map[string]any {
	fields := map[string]any{
		"card":  rec.CardNumber,
		"name":  rec.Name,
		"extra": rec.Extra,
	}
	for _, s := range layout.SlotTable {
		fields[string(s.Field)] = rec.Value(s.Field)
	}
	return map[string]any{
		"index":  index,
		"index3": fmt.Sprintf("%03d", index),
		"card":   rec.CardNumber,
		"name":   rec.Name,
		"batch":  batch,
		"record": fields,
	}
}

// BatchData exposes batch-wide values to the combined output templates.
func BatchData(batch string, count int) map[string]any {
	return map[string]any{
		"batch": batch,
		"count": strconv.Itoa(count),
	}
}

// Sanitize turns s into something safe inside a file name. Letters, digits,
// dots and dashes are kept; any other run of runes becomes one underscore.
func Sanitize(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.' {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "_"
	}
	return out
}

// FileName interpolates tmpl with sanitized values and appends ext.
func FileName(tmpl string, data map[string]any, ext string) string {
	name := InterpolateFunc(tmpl, data, Sanitize)
	if ext != "" {
		name += "." + strings.TrimPrefix(ext, ".")
	}
	return name
}
