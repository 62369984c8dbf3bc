package models

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ResultSet maps a backend-defined key to the results scraped under it.
// Keys keep the order in which the backend listed them.
type ResultSet struct {
	entries *orderedmap.OrderedMap[string, []ScrapeResult]
}

// ResultRow is one line of the results table.
type ResultRow struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	XPath string `json:"xpath"`
	Text  string `json:"text"`
}

// NewResultSet returns an empty ResultSet.
func NewResultSet() *ResultSet {
	return &ResultSet{entries: orderedmap.New[string, []ScrapeResult]()}
}

func (r *ResultSet) init() {
	if r.entries == nil {
		r.entries = orderedmap.New[string, []ScrapeResult]()
	}
}

// Set stores results under key. An existing key keeps its position.
func (r *ResultSet) Set(key string, results []ScrapeResult) {
	r.init()
	r.entries.Set(key, results)
}

// Get returns the results stored under key.
func (r *ResultSet) Get(key string) ([]ScrapeResult, bool) {
	if r == nil || r.entries == nil {
		return nil, false
	}
	return r.entries.Get(key)
}

// Len returns the number of keys.
func (r *ResultSet) Len() int {
	if r == nil || r.entries == nil {
		return 0
	}
	return r.entries.Len()
}

// Keys returns the keys in backend order.
func (r *ResultSet) Keys() []string {
	if r == nil || r.entries == nil {
		return nil
	}
	keys := make([]string, 0, r.entries.Len())
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Rows flattens the set into table rows: keys in order, then results in
// the order the backend returned them.
func (r *ResultSet) Rows() []ResultRow {
	if r == nil || r.entries == nil {
		return nil
	}
	var rows []ResultRow
	for pair := r.entries.Oldest(); pair != nil; pair = pair.Next() {
		for _, res := range pair.Value {
			rows = append(rows, ResultRow{
				Key:   pair.Key,
				Name:  res.Name,
				XPath: res.XPath,
				Text:  res.Text,
			})
		}
	}
	return rows
}

func (r *ResultSet) MarshalJSON() ([]byte, error) {
	r.init()
	return r.entries.MarshalJSON()
}

func (r *ResultSet) UnmarshalJSON(data []byte) error {
	entries := orderedmap.New[string, []ScrapeResult]()
	if err := entries.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("decode result set: %w", err)
	}
	r.entries = entries
	return nil
}
