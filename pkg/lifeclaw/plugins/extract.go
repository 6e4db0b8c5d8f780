// Package plugins holds the built-in LifeClaw plugins and the static
// catalog the registry loads them from.
package plugins

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Extraction results come back as loosely typed JSON; these helpers
// coerce fields without panicking on the model's type drift.

func asString(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func asFloat(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		s := strings.TrimSpace(strings.TrimPrefix(n, "$"))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func asBool(m map[string]any, key string) bool {
	v, ok := m[key]
	if !ok || v == nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

// asTime parses a datetime field the model produced. Accepts RFC 3339
// with or without offset, and a bare date.
func asTime(m map[string]any, key string) *time.Time {
	s := asString(m, key)
	if s == "" {
		return nil
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// intSetting coerces a plugin setting value to int, falling back to def.
// YAML decodes integers as int, JSON round-trips them as float64.
func intSetting(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

var amountRe = regexp.MustCompile(`\$?\s*(\d+(?:\.\d{1,2})?)`)

// amountFromText is the fallback when structured extraction fails:
// the first dollar-looking number in the message.
func amountFromText(text string) (float64, bool) {
	match := amountRe.FindStringSubmatch(text)
	if match == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func containsAny(lower string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
