package batch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractField(t *testing.T) {
	const url = "https://dir.test/biz/acme-plumbing-42"
	cases := []struct {
		name   string
		result string
		want   string
	}{
		{"empty", ``, "none"},
		{"null", `null`, "none"},
		{"not json", `{`, "none"},
		{"empty list", `[]`, "none"},
		{
			"list with object",
			`[{"https://dir.test/biz/acme-plumbing-42": {"ContactSection": [{"xpath": "//x", "text": "555-0100", "name": "ContactSection"}]}}]`,
			"555-0100",
		},
		{
			"trailing slash on key",
			`[{"https://dir.test/biz/acme-plumbing-42/": {"ContactSection": ["call us"]}}]`,
			"call us",
		},
		{
			"other url ignored",
			`[{"https://dir.test/biz/other-1": {"ContactSection": ["nope"]}}]`,
			"none",
		},
		{
			"last match wins",
			`[{"https://dir.test/biz/acme-plumbing-42": {"ContactSection": ["first"]}},
			  {"https://dir.test/biz/acme-plumbing-42": {"ContactSection": ["second"]}}]`,
			"second",
		},
		{
			"empty field keeps earlier match",
			`[{"https://dir.test/biz/acme-plumbing-42": {"ContactSection": ["first"]}},
			  {"https://dir.test/biz/acme-plumbing-42": {"ContactSection": []}}]`,
			"first",
		},
		{
			"object without text",
			`[{"https://dir.test/biz/acme-plumbing-42": {"ContactSection": [{"xpath": "//x"}]}}]`,
			"none",
		},
		{"direct map object", `{"ContactSection": [{"text": "hi"}]}`, "hi"},
		{"direct map string", `{"ContactSection": ["hello"]}`, "hello"},
		{"direct map missing field", `{"Other": ["hello"]}`, "none"},
		{"scalar", `"ContactSection"`, "none"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractField(json.RawMessage(tc.result), url, "ContactSection", "none")
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBusinessName(t *testing.T) {
	cases := map[string]string{
		"https://dir.test/biz/acme-plumbing-1234":   "Acme Plumbing",
		"https://dir.test/biz/acme-plumbing-1234//": "Acme Plumbing",
		"https://dir.test/biz/joes-bar-and-grill-9": "Joes Bar And Grill",
		"https://dir.test/biz/single":               "",
		"":                                          "",
	}
	for in, want := range cases {
		assert.Equal(t, want, BusinessName(in), "url %q", in)
	}
}
