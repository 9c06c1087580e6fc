package geotrie

import (
	"sort"
	"strings"
)

// Result is one ranked, display-ready lookup result (spec.md §4.8's "ready"
// result shape).
type Result struct {
	Display          string
	Location         Location
	PlaceLabel       string
	Kind             Kind
	PopulationBucket uint8
	ExactMatch       bool
}

// kindGroup implements spec.md §4.6's ranking group: cities first, then
// streets, then everything else.
func kindGroup(k Kind) int {
	switch {
	case k == KindCity:
		return 0
	case k == KindStreet:
		return 1
	default:
		return 2
	}
}

// placeLabel formats the "{placeNode}, {placeCity}" label spec.md §4.8
// describes, falling back to whichever piece is non-empty, or "Unknown
// city" if both are empty.
func placeLabel(placeNode, placeCity string) string {
	switch {
	case placeNode != "" && placeCity != "":
		return placeNode + ", " + placeCity
	case placeNode != "":
		return placeNode
	case placeCity != "":
		return placeCity
	default:
		return "Unknown city"
	}
}

// Rank converts matches into the sorted, display-ready Result list spec.md
// §4.6 and §4.8 describe. normalizedQuery is the already-normalized street
// query, used to compute each result's ExactMatch flag. The input slice is
// not mutated.
func Rank(shard *Shard, matches []MatchResult, normalizedQuery string) []Result {
	out := make([]Result, len(matches))
	for i, m := range matches {
		node := placeTableString(shard.PlaceNodeTable, m.Location.PlaceNodeIdx)
		city := placeTableString(shard.PlaceCityTable, m.Location.PlaceCityIdx)
		out[i] = Result{
			Display:          m.Display,
			Location:         m.Location,
			PlaceLabel:       placeLabel(node, city),
			Kind:             m.Location.Kind,
			PopulationBucket: m.Location.PopulationBucket,
			ExactMatch:       normalize(m.Display) == normalizedQuery,
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]

		if a.ExactMatch != b.ExactMatch {
			return a.ExactMatch // exact matches sort before non-exact
		}

		ga, gb := kindGroup(a.Kind), kindGroup(b.Kind)
		if ga != gb {
			return ga < gb
		}

		if a.PopulationBucket != b.PopulationBucket {
			return a.PopulationBucket > b.PopulationBucket // higher population first
		}

		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}

		if len(a.Display) != len(b.Display) {
			return len(a.Display) < len(b.Display) // shorter display first
		}

		return strings.ToLower(a.Display) < strings.ToLower(b.Display)
	})

	return out
}
