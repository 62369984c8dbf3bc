package models

// Element is one named scrape target the user wants extracted from a page.
type Element struct {
	// Name identifies the element within the working set. Uniqueness is
	// expected but not enforced.
	Name string `json:"name" yaml:"name"`

	// XPath selects the node(s) to extract. Opaque to this module.
	XPath string `json:"xpath" yaml:"xpath"`

	// URL is the target URL at the moment the element was added.
	URL string `json:"url" yaml:"url,omitempty"`
}

// ScrapeResult is one extracted value produced by the scraping backend.
type ScrapeResult struct {
	XPath string `json:"xpath"`
	Text  string `json:"text"`
	Name  string `json:"name"`
}

// User is the authenticated caller, as far as this module cares.
type User struct {
	Email string `json:"email"`
}
