package audit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Diff compares an old snapshot and a new payload for module m and returns
// the ordered, de-duplicated change labels. Keys on either side may use the
// storage or the payload convention. Only fields present on both sides are
// compared; a nil side yields no labels.
func (t *FieldTable) Diff(m Module, before, after map[string]any) []string {
	if before == nil || after == nil {
		return nil
	}
	o := t.Normalize(m, before)
	n := t.Normalize(m, after)

	var labels []string
	seen := make(map[string]struct{})
	for _, f := range t.fields[m] {
		ov, ok := o[f.Key]
		if !ok {
			continue
		}
		nv, ok := n[f.Key]
		if !ok {
			continue
		}
		if valuesEqual(f.Kind, ov, nv) {
			continue
		}
		if _, dup := seen[f.Label]; dup {
			continue
		}
		seen[f.Label] = struct{}{}
		labels = append(labels, f.Label)
	}
	return labels
}

func valuesEqual(kind fieldKind, a, b any) bool {
	as, bs := scalarString(a), scalarString(b)
	if as == bs {
		return true
	}
	switch kind {
	case kindDate:
		ad, aok := parseDay(a)
		bd, bok := parseDay(b)
		if aok && bok {
			return ad == bd
		}
	case kindNumber:
		af, aerr := strconv.ParseFloat(as, 64)
		bf, berr := strconv.ParseFloat(bs, 64)
		if aerr == nil && berr == nil {
			return af == bf
		}
	}
	return false
}

// scalarString renders a value for comparison. nil and "" are equivalent.
func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case []byte:
		return strings.TrimSpace(string(x))
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// parseDay returns the calendar day a value denotes in its own offset, so
// "2024-01-15" and "2024-01-15T00:00:00.000Z" are the same day.
func parseDay(v any) (string, bool) {
	if t, ok := v.(time.Time); ok {
		if t.IsZero() {
			return "", false
		}
		return t.Format("2006-01-02"), true
	}
	s := scalarString(v)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}
