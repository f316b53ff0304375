package view

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// mk builds an instance created n minutes after epoch with extra labels.
func mk(id string, n int, labels ...string) fleet.Instance {
	inst := fleet.Instance{
		ID:        id,
		Labels:    map[string]string{fleet.ServiceLabel: "api"},
		Status:    fleet.StatusReady,
		CreatedAt: epoch.Add(time.Duration(n) * time.Minute),
	}
	for i := 0; i+1 < len(labels); i += 2 {
		inst.Labels[labels[i]] = labels[i+1]
	}
	return inst
}

func ids(instances []fleet.Instance) []string {
	out := make([]string, len(instances))
	for i, inst := range instances {
		out[i] = inst.ID
	}
	return out
}

func TestBuildFlat(t *testing.T) {
	snap := []fleet.Instance{mk("c", 3), mk("a", 1), mk("b", 2)}

	res := Build(snap, Query{})
	assert.False(t, res.Grouped())
	assert.Equal(t, []string{"a", "b", "c"}, ids(res.Instances))
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, DefaultSort, res.Sort)
}

func TestBuildRegionScenario(t *testing.T) {
	snap := []fleet.Instance{
		mk("1", 1, "region", "us"),
		mk("2", 2, "region", "eu"),
		mk("3", 3),
		mk("4", 4, "region", ""),
	}

	res := Build(snap, Query{GroupBy: []string{"region"}})
	require.True(t, res.Grouped())
	require.Len(t, res.Groups, 3)

	var names []string
	for _, n := range res.Groups {
		names = append(names, n.DisplayName)
		assert.True(t, n.Leaf())
		assert.Equal(t, "region", n.Field)
		assert.Equal(t, 0, n.Level)
	}
	assert.Equal(t, []string{"Unknown", "eu", "us"}, names)
	assert.Equal(t, []string{"3", "4"}, ids(res.Groups[0].Instances))
	assert.Equal(t, 2, res.Groups[0].Count)
}

func TestBuildNestedGroups(t *testing.T) {
	snap := []fleet.Instance{
		mk("1", 1, "cloud", "gcp", "zone", "b"),
		mk("2", 2, "cloud", "aws", "zone", "a"),
		mk("3", 3, "cloud", "gcp", "zone", "a"),
		mk("4", 4, "cloud", "gcp"),
	}

	res := Build(snap, Query{GroupBy: []string{"cloud", "zone"}})
	require.Len(t, res.Groups, 2)

	aws, gcp := res.Groups[0], res.Groups[1]
	assert.Equal(t, "aws", aws.DisplayName)
	assert.Equal(t, "gcp", gcp.DisplayName)
	assert.False(t, gcp.Leaf())
	assert.Nil(t, gcp.Instances)
	assert.Equal(t, 3, gcp.Count)

	require.Len(t, gcp.Children, 3)
	assert.Equal(t, "Unknown", gcp.Children[0].DisplayName)
	assert.Equal(t, "a", gcp.Children[1].DisplayName)
	assert.Equal(t, "b", gcp.Children[2].DisplayName)
	assert.Equal(t, 1, gcp.Children[1].Level)
	assert.Equal(t, "cloud=gcp/zone=a", gcp.Children[1].Key)
	assert.Nil(t, gcp.Children[1].Children)

	assert.Equal(t, []string{"2", "4", "3", "1"}, ids(Flatten(res.Groups)))
}

func TestBuildGroupPartitionProperty(t *testing.T) {
	regions := []string{"us", "eu", "ap", ""}
	roles := []string{"db", "web"}
	fieldSets := [][]string{
		{"region"},
		{"region", "role"},
		{"role", "region", FieldStatus},
		{"missing", "region"},
	}

	for seed := int64(1); seed <= 10; seed++ {
		rng := rand.New(rand.NewSource(seed))
		var snap []fleet.Instance
		for i := 0; i < 40; i++ {
			inst := mk(fmt.Sprintf("i%02d", i), rng.Intn(20), "region", regions[rng.Intn(len(regions))])
			if rng.Intn(3) > 0 {
				inst.Labels["role"] = roles[rng.Intn(len(roles))]
			}
			snap = append(snap, inst)
		}

		for _, fields := range fieldSets {
			t.Run(fmt.Sprintf("seed %d %v", seed, fields), func(t *testing.T) {
				q := Query{GroupBy: fields, Filters: []Filter{{Field: "role", Values: []string{"db", UnknownBucket}}}}
				res := Build(snap, q)

				leaves := Flatten(res.Groups)
				assert.ElementsMatch(t, ids(res.Instances), ids(leaves), "leaves partition the filtered set")

				seen := make(map[string]bool)
				for _, id := range ids(leaves) {
					assert.False(t, seen[id], "duplicate %s", id)
					seen[id] = true
				}

				Walk(res.Groups, func(n *Node) bool {
					assert.Equal(t, len(Flatten([]*Node{n})), n.Count, n.Key)
					assert.True(t, (n.Instances == nil) != (n.Children == nil), "exactly one of instances/children")
					return true
				})
			})
		}
	}
}

func TestBuildSortStability(t *testing.T) {
	snap := []fleet.Instance{
		mk("a", 5, "tier", "2"),
		mk("b", 4, "tier", "1"),
		mk("c", 3, "tier", "2"),
		mk("d", 2, "tier", "1"),
		mk("e", 1, "tier", "2"),
	}

	tests := []struct {
		name string
		sort SortSpec
		want []string
	}{
		{"ascending keeps insertion order among ties", SortSpec{Field: "tier"}, []string{"b", "d", "a", "c", "e"}},
		{"descending keeps insertion order among ties", SortSpec{Field: "tier", Desc: true}, []string{"a", "c", "e", "b", "d"}},
		{"created descending", SortSpec{Field: FieldCreatedAt, Desc: true}, []string{"a", "b", "c", "d", "e"}},
		{"id", SortSpec{Field: FieldID}, []string{"a", "b", "c", "d", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Build(snap, Query{Sort: tt.sort, Mode: ModeTable})
			assert.Equal(t, tt.want, ids(res.Instances))
		})
	}
}

func TestBuildFixedOrderModes(t *testing.T) {
	snap := []fleet.Instance{mk("b", 2), mk("a", 1), mk("c", 3)}
	userSort := SortSpec{Field: FieldID, Desc: true}

	for _, mode := range []Mode{ModeGrid, ModeCard} {
		t.Run(mode.String(), func(t *testing.T) {
			res := Build(snap, Query{Sort: userSort, Mode: mode})
			assert.Equal(t, []string{"a", "b", "c"}, ids(res.Instances))
			assert.Equal(t, DefaultSort, res.Sort)
		})
	}

	for _, mode := range []Mode{ModeTable, ModeList} {
		t.Run(mode.String(), func(t *testing.T) {
			res := Build(snap, Query{Sort: userSort, Mode: mode})
			assert.Equal(t, []string{"c", "b", "a"}, ids(res.Instances))
		})
	}
}

func TestBuildLeavesAreSorted(t *testing.T) {
	snap := []fleet.Instance{mk("z", 1, "g", "x"), mk("m", 2, "g", "x"), mk("a", 3, "g", "x")}
	res := Build(snap, Query{GroupBy: []string{"g"}, Sort: SortSpec{Field: FieldID}})
	require.Len(t, res.Groups, 1)
	assert.Equal(t, []string{"a", "m", "z"}, ids(res.Groups[0].Instances))
}

func TestBuildFilters(t *testing.T) {
	snap := []fleet.Instance{
		mk("1", 1, "region", "us", "env", "prod"),
		mk("2", 2, "region", "eu", "env", "prod"),
		mk("3", 3, "region", "us", "env", "dev"),
		mk("4", 4, "env", "prod"),
	}
	snap[2].Status = fleet.StatusError

	tests := []struct {
		name    string
		filters []Filter
		want    []string
	}{
		{"no filters", nil, []string{"1", "2", "3", "4"}},
		{"single value", []Filter{{Field: "region", Values: []string{"us"}}}, []string{"1", "3"}},
		{"or within filter", []Filter{{Field: "region", Values: []string{"us", "eu"}}}, []string{"1", "2", "3"}},
		{"and across filters", []Filter{
			{Field: "region", Values: []string{"us"}},
			{Field: "env", Values: []string{"prod"}},
		}, []string{"1"}},
		{"status field", []Filter{{Field: FieldStatus, Values: []string{"error"}}}, []string{"3"}},
		{"unknown bucket", []Filter{{Field: "region", Values: []string{UnknownBucket}}}, []string{"4"}},
		{"empty values ignored", []Filter{{Field: "region"}}, []string{"1", "2", "3", "4"}},
		{"exact match only", []Filter{{Field: "region", Values: []string{"u"}}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Build(snap, Query{Filters: tt.filters})
			assert.Equal(t, tt.want, ids(res.Instances))
		})
	}
}

func TestBuildSearch(t *testing.T) {
	web := mk("web-01", 1, "region", "Frankfurt")
	web.Hostname = "node7.internal"
	web.ExternalAddress = "203.0.113.9"
	web.InternalAddress = "10.0.0.4"
	web.Ports = map[string]int{"metrics": 9102}
	snap := []fleet.Instance{web, mk("db-01", 2)}

	tests := []struct {
		term string
		want []string
	}{
		{"", []string{"web-01", "db-01"}},
		{"   ", []string{"web-01", "db-01"}},
		{"WEB", []string{"web-01"}},
		{"frankfurt", []string{"web-01"}},
		{"node7", []string{"web-01"}},
		{"203.0.113", []string{"web-01"}},
		{"10.0.0.4", []string{"web-01"}},
		{"metrics:91", []string{"web-01"}},
		{"api", []string{"web-01", "db-01"}},
		{"nothing-matches", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			res := Build(snap, Query{Search: tt.term})
			assert.Equal(t, tt.want, ids(res.Instances))
		})
	}

	assert.True(t, MatchesSearch(web, " Node7 "))
}

func TestBuildDoesNotMutateSnapshot(t *testing.T) {
	snap := []fleet.Instance{mk("b", 2), mk("a", 1)}
	Build(snap, Query{Sort: SortSpec{Field: FieldID}})
	assert.Equal(t, []string{"b", "a"}, ids(snap))
}

func TestDistinctValues(t *testing.T) {
	snap := []fleet.Instance{
		mk("1", 1, "region", "us"),
		mk("2", 2, "region", "eu"),
		mk("3", 3, "region", "us"),
		mk("4", 4),
	}
	assert.Equal(t, []string{"Unknown", "eu", "us"}, DistinctValues(snap, "region"))
	assert.Equal(t, []string{"ready"}, DistinctValues(snap, FieldStatus))
	assert.Nil(t, DistinctValues(nil, "region"))
}

func TestLabelKeys(t *testing.T) {
	snap := []fleet.Instance{mk("1", 1, "region", "us"), mk("2", 2, "role", "db")}
	assert.Equal(t, []string{"region", "role", "service"}, LabelKeys(snap))
}

func TestWalkSkipsChildren(t *testing.T) {
	snap := []fleet.Instance{mk("1", 1, "a", "x", "b", "y")}
	res := Build(snap, Query{GroupBy: []string{"a", "b"}})

	var visited []string
	Walk(res.Groups, func(n *Node) bool {
		visited = append(visited, n.Key)
		return false
	})
	assert.Equal(t, []string{"a=x"}, visited)
}
