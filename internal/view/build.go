// Package view derives the display tree of the fleet from a registry
// snapshot: filter, search, sort, then partition recursively by an ordered
// list of grouping fields. Everything here is a pure function of its inputs.
package view

import (
	"sort"
	"strings"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
)

// Filter restricts one field to a set of exact values. A record matches if
// its value is any of Values; a missing value matches UnknownBucket.
type Filter struct {
	Field  string   `json:"field" yaml:"field"`
	Values []string `json:"values" yaml:"values"`
}

// Query is the full set of view controls.
type Query struct {
	GroupBy []string
	Filters []Filter
	Search  string
	Sort    SortSpec
	Mode    Mode
}

// Node is one bucket of the group tree. Exactly one of Instances (leaf) and
// Children (interior) is populated.
type Node struct {
	// Key is unique across the tree: the bucket path as field=value pairs.
	Key         string
	DisplayName string
	Level       int
	Field       string
	Count       int
	Instances   []fleet.Instance
	Children    []*Node
}

// Leaf reports whether n holds instances directly.
func (n *Node) Leaf() bool {
	return n.Children == nil
}

// Result is the derived view.
type Result struct {
	// Instances is the filtered set in display order.
	Instances []fleet.Instance
	// Groups is the group tree; nil when the query has no grouping fields.
	Groups []*Node
	// Total is the size of the snapshot before filtering.
	Total int
	// Sort is the order actually applied (fixed for grid and card modes).
	Sort SortSpec
}

// Grouped reports whether the result is a tree rather than a flat list.
func (r Result) Grouped() bool {
	return r.Groups != nil
}

// Build derives the view of snapshot under q. The snapshot must be in
// registry insertion order; ties in the sort keep that order.
func Build(snapshot []fleet.Instance, q Query) Result {
	matched := make([]fleet.Instance, 0, len(snapshot))
	term := strings.ToLower(strings.TrimSpace(q.Search))
	for _, inst := range snapshot {
		if Matches(inst, q.Filters) && matchesSearch(inst, term) {
			matched = append(matched, inst)
		}
	}

	spec := EffectiveSort(q)
	SortInstances(matched, spec)

	res := Result{
		Instances: matched,
		Total:     len(snapshot),
		Sort:      spec,
	}
	if len(q.GroupBy) > 0 {
		res.Groups = group(matched, q.GroupBy, 0, "")
	}
	return res
}

// EffectiveSort returns the order Build applies for q.
func EffectiveSort(q Query) SortSpec {
	if q.Mode.FixedOrder() || q.Sort.Field == "" {
		return DefaultSort
	}
	return q.Sort
}

// SortInstances sorts in place, stably.
func SortInstances(instances []fleet.Instance, spec SortSpec) {
	sort.SliceStable(instances, func(i, j int) bool {
		c := compareField(instances[i], instances[j], spec.Field)
		if spec.Desc {
			return c > 0
		}
		return c < 0
	})
}

// Matches reports whether inst satisfies every filter.
func Matches(inst fleet.Instance, filters []Filter) bool {
	for _, f := range filters {
		if len(f.Values) == 0 {
			continue
		}
		v := bucketValue(inst, f.Field)
		found := false
		for _, want := range f.Values {
			if v == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// MatchesSearch reports whether any searchable field of inst contains term,
// ignoring case. An empty term matches everything.
func MatchesSearch(inst fleet.Instance, term string) bool {
	return matchesSearch(inst, strings.ToLower(strings.TrimSpace(term)))
}

func matchesSearch(inst fleet.Instance, term string) bool {
	if term == "" {
		return true
	}
	contains := func(s string) bool {
		return s != "" && strings.Contains(strings.ToLower(s), term)
	}

	if contains(inst.ID) || contains(inst.Hostname) ||
		contains(inst.ExternalAddress) || contains(inst.InternalAddress) {
		return true
	}
	for _, v := range inst.Labels {
		if contains(v) {
			return true
		}
	}
	for _, pair := range inst.PortPairs() {
		if contains(pair) {
			return true
		}
	}
	return false
}

// group partitions instances by fields[0] and recurses on the rest. Bucket
// order is byte order of the bucket name; instance order within a bucket is
// the input order.
func group(instances []fleet.Instance, fields []string, level int, parent string) []*Node {
	field := fields[0]

	buckets := make(map[string][]fleet.Instance)
	var names []string
	for _, inst := range instances {
		name := bucketValue(inst, field)
		if _, ok := buckets[name]; !ok {
			names = append(names, name)
		}
		buckets[name] = append(buckets[name], inst)
	}
	sort.Strings(names)

	nodes := make([]*Node, 0, len(names))
	for _, name := range names {
		key := field + "=" + name
		if parent != "" {
			key = parent + "/" + key
		}
		n := &Node{
			Key:         key,
			DisplayName: name,
			Level:       level,
			Field:       field,
		}
		if len(fields) == 1 {
			n.Instances = buckets[name]
			n.Count = len(n.Instances)
		} else {
			n.Children = group(buckets[name], fields[1:], level+1, key)
			for _, c := range n.Children {
				n.Count += c.Count
			}
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// Flatten returns the leaf instances of nodes in tree order.
func Flatten(nodes []*Node) []fleet.Instance {
	var out []fleet.Instance
	for _, n := range nodes {
		if n.Leaf() {
			out = append(out, n.Instances...)
			continue
		}
		out = append(out, Flatten(n.Children)...)
	}
	return out
}

// Walk visits nodes depth-first, parents before children. Returning false
// from fn skips the node's children.
func Walk(nodes []*Node, fn func(*Node) bool) {
	for _, n := range nodes {
		if fn(n) && !n.Leaf() {
			Walk(n.Children, fn)
		}
	}
}

// DistinctValues lists the bucket names field takes across snapshot, sorted.
// Instances without a value contribute UnknownBucket.
func DistinctValues(snapshot []fleet.Instance, field string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, inst := range snapshot {
		v := bucketValue(inst, field)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// LabelKeys lists every label key used across snapshot, sorted.
func LabelKeys(snapshot []fleet.Instance) []string {
	seen := make(map[string]bool)
	var out []string
	for _, inst := range snapshot {
		for k := range inst.Labels {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}
