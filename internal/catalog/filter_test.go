package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listing() []Entry {
	return []Entry{
		{Type: EntryCategory, ID: "rings", Name: "Rings"},
		{Type: EntryCategory, ID: "necklaces", Name: "Necklaces"},
		{Type: EntryCustomAttributeDefinition, ID: "metal", Name: "Metal", AllowedValues: []string{"18K", "14K", "Silver"}},
		{Type: EntryItem, ID: "1", Name: "Solitaire", CategoryIDs: []string{"rings"}, Attributes: map[string]string{"metal": "18K"}},
		{Type: EntryItem, ID: "2", Name: "Band", CategoryIDs: []string{"rings"}, Attributes: map[string]string{"metal": "14K"}},
		{Type: EntryItem, ID: "3", Name: "Pendant", CategoryIDs: []string{"necklaces"}, Attributes: map[string]string{"metal": "18K"}},
		{Type: EntryItem, ID: "4", Name: "Chain", CategoryIDs: []string{"necklaces"}},
	}
}

func ids(entries []Entry) []string {
	out := []string{}
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		sel  Selection
		want []string
	}{
		{
			name: "No facet selected",
			sel:  Selection{},
			want: []string{"1", "2", "3", "4"},
		},
		{
			name: "Blank attribute value counts as unselected",
			sel:  Selection{Attributes: map[string]string{"metal": ""}},
			want: []string{"1", "2", "3", "4"},
		},
		{
			name: "Category only",
			sel:  Selection{CategoryID: "rings"},
			want: []string{"1", "2"},
		},
		{
			name: "Attribute only",
			sel:  Selection{Attributes: map[string]string{"metal": "18K"}},
			want: []string{"1", "3"},
		},
		{
			name: "Category and attribute",
			sel:  Selection{CategoryID: "necklaces", Attributes: map[string]string{"metal": "18K"}},
			want: []string{"3"},
		},
		{
			name: "Nothing matches",
			sel:  Selection{CategoryID: "rings", Attributes: map[string]string{"metal": "Silver"}},
			want: []string{},
		},
		{
			name: "Unknown category",
			sel:  Selection{CategoryID: "bracelets"},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(listing(), tt.sel)))
		})
	}
}

func TestFilter_ClearingSelectionRestoresFullSet(t *testing.T) {
	entries := listing()

	assert.Equal(t, []string{"1", "2"}, ids(Filter(entries, Selection{CategoryID: "rings"})))
	assert.Equal(t, ids(Items(entries)), ids(Filter(entries, Selection{})))
}

func TestFacets(t *testing.T) {
	facets := Facets(listing())
	require.Len(t, facets, 2)

	assert.Equal(t, CategoryFacetID, facets[0].ID)
	assert.Equal(t, []FacetValue{
		{ID: "rings", Name: "Rings", Count: 2},
		{ID: "necklaces", Name: "Necklaces", Count: 2},
	}, facets[0].Values)

	assert.Equal(t, "metal", facets[1].ID)
	assert.Equal(t, []FacetValue{
		{ID: "18K", Name: "18K", Count: 2},
		{ID: "14K", Name: "14K", Count: 1},
		{ID: "Silver", Name: "Silver", Count: 0},
	}, facets[1].Values)
}
