// Package catalog narrows a flat catalog listing down to the items matching
// the currently selected facets.
package catalog

import "sort"

type EntryType string

const (
	EntryCategory                  EntryType = "category"
	EntryItem                      EntryType = "item"
	EntryCustomAttributeDefinition EntryType = "custom_attribute_definition"
)

// Entry is one object of a catalog listing. Which fields are meaningful depends
// on Type: items carry CategoryIDs and Attributes (definition id -> value),
// definitions carry AllowedValues.
type Entry struct {
	Type          EntryType         `json:"type"`
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	CategoryIDs   []string          `json:"category_ids,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	AllowedValues []string          `json:"allowed_values,omitempty"`
}

func (e Entry) inCategory(id string) bool {
	for _, c := range e.CategoryIDs {
		if c == id {
			return true
		}
	}
	return false
}

// Selection holds at most one value per facet. Empty strings mean the facet
// is not selected.
type Selection struct {
	CategoryID string
	Attributes map[string]string
}

// Empty reports whether no facet is selected.
func (s Selection) Empty() bool {
	if s.CategoryID != "" {
		return false
	}
	for _, v := range s.Attributes {
		if v != "" {
			return false
		}
	}
	return true
}

func (s Selection) matches(item Entry) bool {
	if s.CategoryID != "" && !item.inCategory(s.CategoryID) {
		return false
	}
	for def, want := range s.Attributes {
		if want == "" {
			continue
		}
		if item.Attributes[def] != want {
			return false
		}
	}
	return true
}

// Items returns the item entries of a listing.
func Items(entries []Entry) []Entry {
	out := []Entry{}
	for _, e := range entries {
		if e.Type == EntryItem {
			out = append(out, e)
		}
	}
	return out
}

// Filter returns the items matching every selected facet. With nothing
// selected the full item set comes back.
func Filter(entries []Entry, sel Selection) []Entry {
	items := Items(entries)
	if sel.Empty() {
		return items
	}
	out := []Entry{}
	for _, item := range items {
		if sel.matches(item) {
			out = append(out, item)
		}
	}
	return out
}

type FacetValue struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Facet is one filterable dimension. The category facet has ID "category".
type Facet struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Values []FacetValue `json:"values"`
}

const CategoryFacetID = "category"

// Facets lists the category facet and one facet per attribute definition,
// with the number of items carrying each value.
func Facets(entries []Entry) []Facet {
	items := Items(entries)

	categories := Facet{ID: CategoryFacetID, Name: "Category", Values: []FacetValue{}}
	var definitions []Entry
	for _, e := range entries {
		switch e.Type {
		case EntryCategory:
			n := 0
			for _, item := range items {
				if item.inCategory(e.ID) {
					n++
				}
			}
			categories.Values = append(categories.Values, FacetValue{ID: e.ID, Name: e.Name, Count: n})
		case EntryCustomAttributeDefinition:
			definitions = append(definitions, e)
		}
	}

	facets := []Facet{categories}
	for _, def := range definitions {
		counts := make(map[string]int)
		for _, item := range items {
			if v, ok := item.Attributes[def.ID]; ok && v != "" {
				counts[v]++
			}
		}
		values := []FacetValue{}
		for _, allowed := range def.AllowedValues {
			values = append(values, FacetValue{ID: allowed, Name: allowed, Count: counts[allowed]})
			delete(counts, allowed)
		}
		var extra []string
		for v := range counts {
			extra = append(extra, v)
		}
		sort.Strings(extra)
		for _, v := range extra {
			values = append(values, FacetValue{ID: v, Name: v, Count: counts[v]})
		}
		facets = append(facets, Facet{ID: def.ID, Name: def.Name, Values: values})
	}
	return facets
}
