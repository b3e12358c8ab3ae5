// Package variant resolves which purchasable variants of a product are
// consistent with a partial selection of option values.
package variant

import "sort"

// OptionRef is one (group, value) pair as found in a product definition.
type OptionRef struct {
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
	ValueID   string `json:"value_id"`
	ValueName string `json:"value_name"`
}

// RawVariant is a variant as it comes from the catalog. Several raw variants
// may share an ID; they are merged.
type RawVariant struct {
	ID      string
	Options []OptionRef
	Stock   *int
}

// Selection picks ValueID within GroupID.
type Selection struct {
	GroupID string `json:"group_id"`
	ValueID string `json:"value_id"`
}

type OptionValue struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OptionGroup is one axis of variation with its distinct values in first-seen order.
type OptionGroup struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Values []OptionValue `json:"values"`
}

// VariantGroup is one purchasable variant and the option values it carries.
type VariantGroup struct {
	ID      string      `json:"id"`
	Options []OptionRef `json:"options"`
	Stock   *int        `json:"stock,omitempty"`
}

// Has reports whether the variant carries the (group, value) pair.
func (v VariantGroup) Has(sel Selection) bool {
	for _, o := range v.Options {
		if o.GroupID == sel.GroupID && o.ValueID == sel.ValueID {
			return true
		}
	}
	return false
}

// InStock is true when stock is unknown or positive.
func (v VariantGroup) InStock() bool {
	return v.Stock == nil || *v.Stock > 0
}

func (v VariantGroup) matches(selections []Selection) bool {
	for _, sel := range selections {
		if !v.Has(sel) {
			return false
		}
	}
	return true
}

func (v VariantGroup) key() string {
	k := ""
	for _, o := range v.Options {
		k += o.GroupID + "\x00" + o.ValueID + "\x01"
	}
	return k
}

// Resolver answers variant queries for one product. It is immutable after New.
type Resolver struct {
	order    []string
	variants map[string]VariantGroup
	groups   []OptionGroup
}

// New folds the raw variants into a resolver. Variants without any option
// data are left out, and a variant repeating the full option combination of
// an earlier one is dropped.
func New(raw []RawVariant) *Resolver {
	order, merged := fold(raw)

	r := &Resolver{variants: make(map[string]VariantGroup, len(merged))}
	seen := make(map[string]bool, len(merged))
	for _, id := range order {
		v := merged[id]
		if len(v.Options) == 0 {
			continue
		}
		k := sortedKey(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		r.order = append(r.order, id)
		r.variants[id] = v
	}
	r.groups = flatten(r.order, r.variants)
	return r
}

func fold(raw []RawVariant) ([]string, map[string]VariantGroup) {
	var order []string
	merged := make(map[string]VariantGroup)
	for _, rv := range raw {
		v, ok := merged[rv.ID]
		if !ok {
			order = append(order, rv.ID)
			v = VariantGroup{ID: rv.ID}
		}
		for _, o := range rv.Options {
			if o.GroupID == "" || o.ValueID == "" {
				continue
			}
			sel := Selection{GroupID: o.GroupID, ValueID: o.ValueID}
			if !v.Has(sel) {
				v.Options = append(v.Options, o)
			}
		}
		if v.Stock == nil && rv.Stock != nil {
			stock := *rv.Stock
			v.Stock = &stock
		}
		merged[rv.ID] = v
	}
	return order, merged
}

func flatten(order []string, variants map[string]VariantGroup) []OptionGroup {
	var groups []OptionGroup
	index := make(map[string]int)
	values := make(map[string]map[string]bool)
	for _, id := range order {
		for _, o := range variants[id].Options {
			gi, ok := index[o.GroupID]
			if !ok {
				gi = len(groups)
				index[o.GroupID] = gi
				groups = append(groups, OptionGroup{ID: o.GroupID, Name: o.GroupName, Values: []OptionValue{}})
				values[o.GroupID] = make(map[string]bool)
			}
			if values[o.GroupID][o.ValueID] {
				continue
			}
			values[o.GroupID][o.ValueID] = true
			groups[gi].Values = append(groups[gi].Values, OptionValue{ID: o.ValueID, Name: o.ValueName})
		}
	}
	return groups
}

// sortedKey identifies the full option combination regardless of pair order.
func sortedKey(v VariantGroup) string {
	opts := append([]OptionRef(nil), v.Options...)
	sort.Slice(opts, func(i, j int) bool {
		if opts[i].GroupID != opts[j].GroupID {
			return opts[i].GroupID < opts[j].GroupID
		}
		return opts[i].ValueID < opts[j].ValueID
	})
	return VariantGroup{Options: opts}.key()
}

// Empty reports whether the product has no option-driven variants, in which
// case only its base variant is purchasable.
func (r *Resolver) Empty() bool {
	return len(r.order) == 0
}

// Groups returns the flattened option groups.
func (r *Resolver) Groups() []OptionGroup {
	out := make([]OptionGroup, len(r.groups))
	for i, g := range r.groups {
		g.Values = append([]OptionValue(nil), g.Values...)
		out[i] = g
	}
	return out
}

// Variants returns every variant in catalog order.
func (r *Resolver) Variants() []VariantGroup {
	out := make([]VariantGroup, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.variants[id])
	}
	return out
}

// Variant looks a variant up by id.
func (r *Resolver) Variant(id string) (VariantGroup, bool) {
	v, ok := r.variants[id]
	return v, ok
}

// VariantsWithOption returns the variants carrying the (group, value) pair.
func (r *Resolver) VariantsWithOption(groupID, valueID string) []VariantGroup {
	sel := []Selection{{GroupID: groupID, ValueID: valueID}}
	out := []VariantGroup{}
	for _, id := range r.order {
		if v := r.variants[id]; v.matches(sel) {
			out = append(out, v)
		}
	}
	return out
}

// ValidVariantIDs returns the ids of the variants whose options contain every
// selection. No selections yields every id.
func (r *Resolver) ValidVariantIDs(selections []Selection) []string {
	out := []string{}
	for _, id := range r.order {
		if r.variants[id].matches(selections) {
			out = append(out, id)
		}
	}
	return out
}

// Match returns the variant picked by a selection when exactly one remains.
func (r *Resolver) Match(selections []Selection) (VariantGroup, bool) {
	ids := r.ValidVariantIDs(selections)
	if len(ids) != 1 {
		return VariantGroup{}, false
	}
	return r.variants[ids[0]], true
}

// Availability reports, for every group and value, whether some in-stock
// variant is still reachable if that value were chosen in place of the
// current selection for its group.
func (r *Resolver) Availability(selections []Selection) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(r.groups))
	for _, g := range r.groups {
		others := make([]Selection, 0, len(selections))
		for _, sel := range selections {
			if sel.GroupID != g.ID {
				others = append(others, sel)
			}
		}
		out[g.ID] = make(map[string]bool, len(g.Values))
		for _, val := range g.Values {
			candidate := append(append([]Selection(nil), others...), Selection{GroupID: g.ID, ValueID: val.ID})
			available := false
			for _, id := range r.order {
				v := r.variants[id]
				if v.InStock() && v.matches(candidate) {
					available = true
					break
				}
			}
			out[g.ID][val.ID] = available
		}
	}
	return out
}
