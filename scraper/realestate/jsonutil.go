package realestate

import (
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var leadingDigitsRegexp = regexp.MustCompile(`^\s*(\d[\d,]*)`)

// decodeJSON parses text keeping numbers as json.Number so that large ids
// survive untouched.
func decodeJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// lookup walks nested objects by key. Any missing key or non-object step
// yields nil.
func lookup(v any, path ...string) any {
	for _, key := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = m[key]
	}
	return v
}

func objectAt(v any, path ...string) map[string]any {
	m, _ := lookup(v, path...).(map[string]any)
	return m
}

func stringAt(v any, path ...string) string {
	s, _ := lookup(v, path...).(string)
	return s
}

// firstString returns the first key of m holding a non-blank string.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// scalarText renders a string or number field as text.
func scalarText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	}
	return ""
}

// toInt accepts integral JSON numbers and integer strings.
func toInt(v any) *int {
	var (
		n   int64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		n, err = t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return nil
			}
			n, err = int64(f), nil
		}
	case string:
		n, err = strconv.ParseInt(strings.TrimSpace(t), 10, 64)
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	i := int(n)
	return &i
}

func firstInt(m map[string]any, keys ...string) *int {
	for _, k := range keys {
		if n := toInt(m[k]); n != nil {
			return n
		}
	}
	return nil
}

// parseSize reads sizes such as 650, "650" or "1,200m²" as whole units.
func parseSize(v any) *int {
	if n := toInt(v); n != nil {
		return n
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	m := leadingDigitsRegexp.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	return toInt(strings.ReplaceAll(m[1], ",", ""))
}

// rawFragment serialises the source fragment for audit. Map keys are emitted
// sorted by encoding/json.
func rawFragment(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// formatAddress joins the populated parts of a postal address object.
func formatAddress(address map[string]any) string {
	var parts []string
	for _, key := range []string{"streetAddress", "addressLocality", "addressRegion", "postalCode"} {
		if s := scalarText(address[key]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func absoluteURL(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "/") && !strings.HasPrefix(u, "//") {
		return SiteOrigin + u
	}
	return u
}
