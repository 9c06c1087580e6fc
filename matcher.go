package geotrie

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// defaultFuzzyCityDistance is the Levenshtein distance geotrie tolerates for
// the supplemented fuzzy city-filter fallback (SPEC_FULL.md §4). Capped the
// same way the teacher caps GeocodeOptions.FuzzyDistance, to bound the cost
// of the O(candidates) distance scan this fallback performs.
const defaultFuzzyCityDistance = 2

// maxFuzzyCityDistance is the hard ceiling on the fuzzy city distance,
// mirroring the teacher's maxFuzzyDistance cap for the same algorithmic-
// complexity reason: Levenshtein distance is O(len(a)*len(b)), and an
// unbounded distance threshold over every city in a shard would let a single
// query become an expensive scan.
const maxFuzzyCityDistance = 3

// MatchResult is one matcher result before ranking: the display string built
// by concatenating raw (non-normalized) edge labels from the root, and the
// Location it resolves to.
type MatchResult struct {
	Display  string
	Location Location
}

// matchFrame is one entry of the matcher's explicit DFS stack. Recursion
// depth in a trie is bounded by its deepest path, but geotrie uses an
// explicit stack rather than function recursion per spec.md §9's guidance
// ("an iterative stack is preferred" against pathological tries).
type matchFrame struct {
	node      uint32
	remaining string
	built     string
	consumed  int
}

// cityPredicate reports whether a candidate Location's place labels satisfy
// a city filter. Match uses the exact substring predicate first and falls
// back to a fuzzy (Levenshtein) predicate only if the exact pass returns
// nothing (SPEC_FULL.md §4).
type cityPredicate func(shard *Shard, loc Location) bool

// Match runs the prefix-consuming DFS described in spec.md §4.5 against
// shard, returning up to maxResults matches for the normalized prefix
// query. cityFilter and allowed implement the optional city-substring and
// kind filters; an empty cityFilter or AnyKind disables the corresponding
// filter. maxResults <= 0 is treated as spec.md's default of 80.
func Match(shard *Shard, query, cityFilter string, allowed KindSet, maxResults int) []MatchResult {
	if maxResults <= 0 {
		maxResults = 80
	}

	normalizedFilter := normalize(cityFilter)
	exact := func(shard *Shard, loc Location) bool {
		return cityMatchesExact(shard, loc, normalizedFilter)
	}

	results := runMatch(shard, query, allowed, maxResults, exact)
	if len(results) == 0 && normalizedFilter != "" {
		// Supplemented fuzzy city-filter fallback: the exact substring
		// filter found nothing, so retry tolerating typos in the city name
		// (SPEC_FULL.md §4, grounded on the teacher's fuzzyMatchLocation).
		fuzzy := func(shard *Shard, loc Location) bool {
			return cityMatchesFuzzy(shard, loc, normalizedFilter, defaultFuzzyCityDistance)
		}
		results = runMatch(shard, query, allowed, maxResults, fuzzy)
	}
	return results
}

func cityMatchesExact(shard *Shard, loc Location, normalizedFilter string) bool {
	if normalizedFilter == "" {
		return true
	}
	node := placeTableString(shard.PlaceNodeTable, loc.PlaceNodeIdx)
	city := placeTableString(shard.PlaceCityTable, loc.PlaceCityIdx)
	return strings.Contains(normalize(node), normalizedFilter) || strings.Contains(normalize(city), normalizedFilter)
}

func cityMatchesFuzzy(shard *Shard, loc Location, normalizedFilter string, maxDist int) bool {
	if normalizedFilter == "" {
		return true
	}
	if maxDist > maxFuzzyCityDistance {
		maxDist = maxFuzzyCityDistance
	}
	node := placeTableString(shard.PlaceNodeTable, loc.PlaceNodeIdx)
	city := placeTableString(shard.PlaceCityTable, loc.PlaceCityIdx)
	return fuzzyContains(node, normalizedFilter, maxDist) || fuzzyContains(city, normalizedFilter, maxDist)
}

// fuzzyContains reports whether filter is within maxDist edits of some
// whitespace-delimited word in haystack, or of haystack as a whole, comparing
// the normalized forms. This keeps the fuzzy city filter useful for
// multi-word city names ("San Francisco") without requiring the whole string
// to match within the distance budget.
func fuzzyContains(haystack, filter string, maxDist int) bool {
	whole := normalize(haystack)
	if whole == "" || filter == "" {
		return false
	}
	if levenshtein.ComputeDistance(whole, filter) <= maxDist {
		return true
	}
	for _, word := range strings.Fields(haystack) {
		if levenshtein.ComputeDistance(normalize(word), filter) <= maxDist {
			return true
		}
	}
	return false
}

func placeTableString(table []string, idx uint32) string {
	if int(idx) < len(table) {
		return table[idx]
	}
	return ""
}

// runMatch performs one full DFS-plus-fallback pass (spec.md §4.5) using the
// given city predicate. It is called twice by Match when the fuzzy fallback
// is needed: once with the exact predicate, once with the fuzzy one.
func runMatch(shard *Shard, query string, allowed KindSet, maxResults int, cityOK cityPredicate) []MatchResult {
	normalizedQuery := normalize(query)

	var results []MatchResult
	bestNode := uint32(0)
	bestBuilt := ""
	bestConsumed := 0

	collect := func(start uint32, startBuilt string) {
		collectFrom(shard, start, startBuilt, allowed, maxResults, cityOK, &results)
	}

	stack := []matchFrame{{node: 0, remaining: normalizedQuery, built: "", consumed: 0}}
	for len(stack) > 0 && len(results) < maxResults {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if frame.consumed > bestConsumed {
			bestConsumed = frame.consumed
			bestNode = frame.node
			bestBuilt = frame.built
		}

		if frame.remaining == "" {
			collect(frame.node, frame.built)
			continue
		}

		node := shard.Trie.Node(frame.node)
		// Push in reverse file order so popping the LIFO stack visits edges
		// in original file order, matching spec.md §4.3's deterministic-
		// output guarantee.
		for i := len(node.Edges) - 1; i >= 0; i-- {
			e := node.Edges[i]
			label := normalize(e.Label)
			switch {
			case label == "":
				stack = append(stack, matchFrame{
					node:      e.Child,
					remaining: frame.remaining,
					built:     frame.built + e.Label,
					consumed:  frame.consumed,
				})
			case strings.HasPrefix(frame.remaining, label):
				stack = append(stack, matchFrame{
					node:      e.Child,
					remaining: frame.remaining[len(label):],
					built:     frame.built + e.Label,
					consumed:  frame.consumed + len(label),
				})
			case strings.HasPrefix(label, frame.remaining):
				stack = append(stack, matchFrame{
					node:      e.Child,
					remaining: "",
					built:     frame.built + e.Label,
					consumed:  frame.consumed + len(frame.remaining),
				})
			}
		}
	}

	if len(results) == 0 && bestConsumed > 0 {
		collect(bestNode, bestBuilt)
	}

	return results
}

// collectFrom pre-order-enumerates a node's own values followed by its
// descendants' (spec.md §4.5 collect), appending matches onto *results and
// stopping as soon as len(*results) reaches maxResults. It is iterative for
// the same pathological-trie-safety reason the main DFS is.
func collectFrom(shard *Shard, start uint32, startBuilt string, allowed KindSet, maxResults int, cityOK cityPredicate, results *[]MatchResult) {
	type frame struct {
		node  uint32
		built string
	}
	stack := []frame{{node: start, built: startBuilt}}

	for len(stack) > 0 && len(*results) < maxResults {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := shard.Trie.Node(f.node)
		for _, v := range node.Values {
			if len(*results) >= maxResults {
				break
			}
			loc := v.resolve(shard.LocationsArray)
			if !allowed.Allows(loc.Kind) {
				continue
			}
			if !cityOK(shard, loc) {
				continue
			}
			*results = append(*results, MatchResult{Display: f.built, Location: loc})
		}

		// Push children in reverse file order so popping the stack visits
		// them in original file order, preserving spec.md §4.3's
		// deterministic-output guarantee.
		for i := len(node.Edges) - 1; i >= 0; i-- {
			e := node.Edges[i]
			stack = append(stack, frame{node: e.Child, built: f.built + e.Label})
		}
	}
}
