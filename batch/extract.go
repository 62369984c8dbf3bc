package batch

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ExtractField returns the first text collected for field on url.
//
// The result is either a list of {url: {field: [...]}} maps, where url keys
// are compared ignoring trailing slashes and the last matching entry wins,
// or a bare {field: [...]} map. The first value may be an object carrying
// "text" or a plain string. Anything else yields fallback.
func ExtractField(result json.RawMessage, url, field, fallback string) string {
	if len(result) == 0 {
		return fallback
	}
	var doc any
	if err := json.Unmarshal(result, &doc); err != nil {
		return fallback
	}

	switch v := doc.(type) {
	case []any:
		want := strings.TrimRight(url, "/")
		text := fallback
		for _, item := range v {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			for key, data := range entry {
				if strings.TrimRight(key, "/") != want {
					continue
				}
				if fields, ok := data.(map[string]any); ok {
					if t, ok := firstText(fields[field], fallback); ok {
						text = t
					}
				}
				break
			}
		}
		return text
	case map[string]any:
		if t, ok := firstText(v[field], fallback); ok {
			return t
		}
	}
	return fallback
}

// firstText reads the first entry of a field's value list. ok is false when
// the list is missing, empty or holds something unreadable.
func firstText(values any, fallback string) (string, bool) {
	list, ok := values.([]any)
	if !ok || len(list) == 0 {
		return "", false
	}
	switch first := list[0].(type) {
	case map[string]any:
		if text, ok := first["text"].(string); ok {
			return text, true
		}
		return fallback, true
	case string:
		return first, true
	}
	return "", false
}

// BusinessName derives a display name from a listing URL's last path
// segment: the final "-" token (usually an id) is dropped and the rest is
// title cased. "https://x.test/biz/acme-plumbing-1234/" gives "Acme Plumbing".
func BusinessName(url string) string {
	trimmed := strings.TrimRight(url, "/")
	segment := trimmed[strings.LastIndex(trimmed, "/")+1:]

	parts := strings.Split(segment, "-")
	words := strings.Join(parts[:len(parts)-1], " ")
	// A Caser is stateful, so each call gets its own.
	return cases.Title(language.English).String(words)
}
