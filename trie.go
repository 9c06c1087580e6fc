package geotrie

// Kind is the 4-bit categorical label attached to a Location: street, city,
// airport, and so on (spec.md §6).
type Kind uint8

const (
	KindStreet        Kind = 0
	KindAirport       Kind = 1
	KindTrainStation  Kind = 2
	KindBusStop       Kind = 3
	KindFerryTerminal Kind = 4
	KindUniversity    Kind = 5
	KindMuseum        Kind = 6
	KindCivicBuilding Kind = 7
	KindSight         Kind = 8
	KindCity          Kind = 9
	KindCountry       Kind = 10
	KindOther         Kind = 15
	maxKind           Kind = 15
)

// Location is a single geocoded point: a coordinate, a pointer into the
// shard's place-node/place-city tables, a Kind, and (version 12+) a coarse
// population bucket. Coordinates are always resolved to degrees by the
// decoder; nothing downstream of C2 deals in the shard's fixed-point
// integers.
type Location struct {
	Lon              float64
	Lat              float64
	PlaceNodeIdx     uint32
	PlaceCityIdx     uint32
	Kind             Kind
	PopulationBucket uint8
}

// Value is the trie node payload, a sum type over the two storage strategies
// spec.md §3 describes: versions <= 5 store a varint index into the shard's
// standalone locations array, versions >= 6 inline the Location at the node.
// The matcher resolves both to a Location uniformly at collect time and never
// branches on shard version once decoding has produced a Trie (spec.md §9,
// "tagged values across versions").
type Value struct {
	indirect uint32
	inline   Location
	isInline bool
}

// IndirectValue builds a Value that resolves through a shard's locationsArray.
func IndirectValue(idx uint32) Value { return Value{indirect: idx} }

// InlineValue builds a Value that carries its Location directly.
func InlineValue(loc Location) Value { return Value{inline: loc, isInline: true} }

// Edge is a single labeled transition from a trie node to a child node index.
type Edge struct {
	Label string
	Child uint32
}

// Node is one radix-trie node: an ordered list of edges in file order, and an
// ordered list of value payloads held at the node itself (not on an edge).
type Node struct {
	Edges  []Edge
	Values []Value
}

// Trie is the immutable, decoded form of a shard's node/edge/value graph.
// Node 0 is always the root. Trie never mutates after Decode returns
// it; concurrent readers need no synchronization (spec.md §5).
type Trie struct {
	Nodes []Node
}

// Node returns the trie node at index i. Callers must only pass indices
// obtained from an Edge.Child or from the root (0); the decoder guarantees
// indices are always in range (spec.md §3 invariant i).
func (t *Trie) Node(i uint32) *Node {
	return &t.Nodes[i]
}

// Root returns the trie's root node, index 0.
func (t *Trie) Root() *Node {
	return &t.Nodes[0]
}
