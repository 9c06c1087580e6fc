package geotrie

import (
	"bytes"
	"compress/gzip"
	"testing"
)

// appendInt24LE encodes v as a little-endian two's-complement 24-bit integer,
// the encoder-side mirror of readInt24LE.
func appendInt24LE(buf []byte, v int32) []byte {
	u := uint32(v) & 0xffffff
	return append(buf, byte(u), byte(u>>8), byte(u>>16))
}

func appendUint24LE(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16))
}

func appendLengthPrefixedUTF8(buf []byte, s string) []byte {
	buf = appendVarint(buf, uint32(len(s)))
	return append(buf, s...)
}

// buildV12Shard assembles a minimal version-12 shard: a two-node trie,
// root --"main st"--> leaf, where leaf carries one value with an explicit
// kind/population nibble byte (the version-12 value-suffix encoding).
func buildV12Shard() []byte {
	var buf []byte
	buf = append(buf, "STRI"...)
	buf = append(buf, 12)
	buf = appendUint24LE(buf, 1000) // scale

	// placeNodeTable / placeCityTable: prefix-compressed (version >= 9), one
	// entry each, both "Anytown".
	buf = appendVarint(buf, 1)
	buf = appendVarintEntry(buf, 0, "Anytown")
	buf = appendVarint(buf, 1)
	buf = appendVarintEntry(buf, 0, "Anytown")

	buf = appendVarint(buf, 2) // nodeCount

	// LOUDS bitmap: node0 has 1 edge (bit 1), then terminator (bit 0) moves
	// to node1, which has 0 edges (bit 0) moves past nodeCount.
	buf = appendVarint(buf, 3) // bitCount
	buf = append(buf, 0x01)    // bits 1,0,0 packed LSB-first into one byte

	buf = appendVarint(buf, 1) // edgeCount
	buf = appendLengthPrefixedUTF8(buf, "main st")

	// per-node values: node0 has none, node1 has one.
	buf = appendVarint(buf, 0)
	buf = appendVarint(buf, 1)
	buf = appendInt24LE(buf, 500)  // lon
	buf = appendInt24LE(buf, -250) // lat
	buf = appendVarint(buf, 0)     // placeNodeIdx
	buf = appendVarint(buf, 0)     // placeCityIdx
	buf = append(buf, (3<<4)|0)    // population bucket 3, kind KindStreet

	return buf
}

// buildV6Shard assembles a minimal version-6 shard using the legacy explicit
// node block and inline values (no standalone locations array, per spec.md
// §4.2 step 5/7).
func buildV6Shard() []byte {
	var buf []byte
	buf = append(buf, "STRI"...)
	buf = append(buf, 6)
	buf = appendUint24LE(buf, 1000) // scale

	buf = appendVarint(buf, 1) // placeNodeTable count
	buf = appendLengthPrefixedUTF8(buf, "Springfield")
	buf = appendVarint(buf, 1) // placeCityTable count
	buf = appendLengthPrefixedUTF8(buf, "Springfield")

	buf = appendVarint(buf, 2) // nodeCount

	// node0: one edge "oak ave" -> node1, no values
	buf = appendVarint(buf, 1)
	buf = appendLengthPrefixedUTF8(buf, "oak ave")
	buf = appendVarint(buf, 1) // child index
	buf = appendVarint(buf, 0) // valueCount

	// node1: no edges, one inline value
	buf = appendVarint(buf, 0)
	buf = appendVarint(buf, 1)
	buf = appendInt24LE(buf, 200)
	buf = appendInt24LE(buf, -100)
	buf = appendVarint(buf, 0)
	buf = appendVarint(buf, 0)

	return buf
}

// buildV11Shard assembles a three-node version-11 LOUDS shard whose per-node
// value counts alternate 1, 2, 1 across node boundaries, so the kind nibble
// stream's carry-over state (nibbleReader) is exercised across more than one
// node: node0 --"a"--> node1 --"b"--> node2, with node0/node2 holding one
// value each and node1 holding two.
func buildV11Shard() []byte {
	var buf []byte
	buf = append(buf, "STRI"...)
	buf = append(buf, 11)
	buf = appendUint24LE(buf, 1000) // scale

	buf = appendVarint(buf, 1)
	buf = appendVarintEntry(buf, 0, "Anytown")
	buf = appendVarint(buf, 1)
	buf = appendVarintEntry(buf, 0, "Anytown")

	buf = appendVarint(buf, 3) // nodeCount

	// LOUDS bitmap: node0 has 1 edge, node1 has 1 edge, node2 has 0 edges.
	// Bits (LSB-first): 1,0,1,0,0
	buf = appendVarint(buf, 5) // bitCount
	buf = append(buf, 0x05)    // 0b00000101

	buf = appendVarint(buf, 2) // edgeCount
	buf = appendLengthPrefixedUTF8(buf, "a")
	buf = appendLengthPrefixedUTF8(buf, "b")

	// The nibble reader consumes a packed byte only when it has no leftover
	// high nibble, and that check happens per value immediately after that
	// value's geometry, so the packed bytes interleave with the geometry
	// stream rather than trailing it. Packed byte 1 = (node1.v0<<4)|node0.v0
	// is read right after node0's one value; node1.v0 then consumes its
	// leftover high nibble with no byte read. Packed byte 2 =
	// (node2.v0<<4)|node1.v1 is read right after node1's second value;
	// node2.v0 then consumes its leftover high nibble with no byte read.

	// node0: 1 value, kind KindAirport (1, low nibble of packed byte 1).
	buf = appendVarint(buf, 1)
	buf = appendInt24LE(buf, 10)
	buf = appendInt24LE(buf, 20)
	buf = appendVarint(buf, 0)
	buf = appendVarint(buf, 0)
	buf = append(buf, (byte(KindBusStop)<<4)|byte(KindAirport)) // packed byte 1

	// node1: 2 values, kinds KindBusStop (3, leftover high nibble of packed
	// byte 1) and KindMuseum (6, low nibble of packed byte 2).
	buf = appendVarint(buf, 2)
	buf = appendInt24LE(buf, 30)
	buf = appendInt24LE(buf, 40)
	buf = appendVarint(buf, 0)
	buf = appendVarint(buf, 0)
	buf = appendInt24LE(buf, 50)
	buf = appendInt24LE(buf, 60)
	buf = appendVarint(buf, 0)
	buf = appendVarint(buf, 0)
	buf = append(buf, (byte(KindCity)<<4)|byte(KindMuseum)) // packed byte 2

	// node2: 1 value, kind KindCity (9, leftover high nibble of packed
	// byte 2; no trailing byte needed).
	buf = appendVarint(buf, 1)
	buf = appendInt24LE(buf, 70)
	buf = appendInt24LE(buf, 80)
	buf = appendVarint(buf, 0)
	buf = appendVarint(buf, 0)

	return buf
}

func TestDecode_Version11_NibblePairingAcrossNodeBoundary(t *testing.T) {
	shard, err := Decode(buildV11Shard(), nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	nodes := shard.Trie.Nodes
	if len(nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(nodes))
	}

	wantKinds := [][]Kind{
		{KindAirport},
		{KindBusStop, KindMuseum},
		{KindCity},
	}
	for i, want := range wantKinds {
		if len(nodes[i].Values) != len(want) {
			t.Fatalf("node %d: got %d values, want %d", i, len(nodes[i].Values), len(want))
		}
		for j, wantKind := range want {
			loc := nodes[i].Values[j].resolve(shard.LocationsArray)
			if loc.Kind != wantKind {
				t.Errorf("node %d value %d: Kind = %v, want %v", i, j, loc.Kind, wantKind)
			}
		}
	}
}

func TestDecode_Version12(t *testing.T) {
	shard, err := Decode(buildV12Shard(), nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if shard.Version != 12 {
		t.Errorf("Version = %d, want 12", shard.Version)
	}
	if len(shard.Trie.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(shard.Trie.Nodes))
	}
	root := shard.Trie.Root()
	if len(root.Edges) != 1 || root.Edges[0].Label != "main st" {
		t.Fatalf("unexpected root edges: %+v", root.Edges)
	}
	leaf := shard.Trie.Node(root.Edges[0].Child)
	if len(leaf.Values) != 1 {
		t.Fatalf("got %d leaf values, want 1", len(leaf.Values))
	}
	loc := leaf.Values[0].resolve(shard.LocationsArray)
	if loc.Kind != KindStreet {
		t.Errorf("Kind = %v, want KindStreet", loc.Kind)
	}
	if loc.PopulationBucket != 3 {
		t.Errorf("PopulationBucket = %d, want 3", loc.PopulationBucket)
	}
	if loc.Lon != 0.5 || loc.Lat != -0.25 {
		t.Errorf("Lon/Lat = %v/%v, want 0.5/-0.25", loc.Lon, loc.Lat)
	}
	if shard.LocationsCount != 1 {
		t.Errorf("LocationsCount = %d, want 1", shard.LocationsCount)
	}
}

func TestDecode_Version6(t *testing.T) {
	shard, err := Decode(buildV6Shard(), nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	root := shard.Trie.Root()
	if len(root.Edges) != 1 || root.Edges[0].Label != "oak ave" {
		t.Fatalf("unexpected root edges: %+v", root.Edges)
	}
	leaf := shard.Trie.Node(root.Edges[0].Child)
	if len(leaf.Values) != 1 {
		t.Fatalf("got %d leaf values, want 1", len(leaf.Values))
	}
	loc := leaf.Values[0].resolve(shard.LocationsArray)
	if loc.Kind != KindStreet {
		t.Errorf("version 6 inline values default to KindStreet, got %v", loc.Kind)
	}
	if loc.Lon != 0.2 || loc.Lat != -0.1 {
		t.Errorf("Lon/Lat = %v/%v, want 0.2/-0.1", loc.Lon, loc.Lat)
	}
	if shard.LocationsArray != nil {
		t.Errorf("version 6 should have no standalone locations array, got %d entries", len(shard.LocationsArray))
	}
}

func TestDecode_GzipWrapped(t *testing.T) {
	raw := buildV6Shard()
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	if _, err := w.Write(raw); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	shard, err := Decode(gz.Bytes(), NewGzipGunzipper())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if shard.Version != 6 {
		t.Errorf("Version = %d, want 6", shard.Version)
	}
}

func TestDecode_GzipWithoutGunzipper(t *testing.T) {
	raw := buildV6Shard()
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, _ = w.Write(raw)
	_ = w.Close()

	_, err := Decode(gz.Bytes(), nil)
	if err != ErrGunzipUnavailable {
		t.Fatalf("Decode() error = %v, want ErrGunzipUnavailable", err)
	}
}

func TestDecode_BadMagic(t *testing.T) {
	_, err := Decode([]byte("XXXX\x0c"), nil)
	if err != ErrBadMagic {
		t.Fatalf("Decode() error = %v, want ErrBadMagic", err)
	}
}

func TestDecode_UnsupportedVersions(t *testing.T) {
	for _, v := range []byte{1, 2, 8, 13, 200} {
		buf := append([]byte("STRI"), v)
		_, err := Decode(buf, nil)
		var uv *UnsupportedVersionError
		if ue, ok := err.(*UnsupportedVersionError); ok {
			uv = ue
		}
		if uv == nil {
			t.Errorf("version %d: expected UnsupportedVersionError, got %v", v, err)
			continue
		}
		if uv.Version != v {
			t.Errorf("version %d: UnsupportedVersionError.Version = %d", v, uv.Version)
		}
	}
}

func TestDecode_TruncatedBuffer(t *testing.T) {
	buf := buildV12Shard()
	_, err := Decode(buf[:len(buf)-3], nil)
	if err == nil {
		t.Fatal("expected error decoding truncated shard")
	}
	if _, ok := err.(*BadFormatError); !ok {
		t.Errorf("expected *BadFormatError, got %T: %v", err, err)
	}
}

func TestDecode_OutOfRangePlaceIndexRejected(t *testing.T) {
	buf := buildV12Shard()
	// The value record's trailing three bytes are placeNodeIdx, placeCityIdx,
	// then the kind/population byte; bump placeNodeIdx out of range against
	// the one-entry placeNodeTable.
	buf[len(buf)-3] = 5
	_, err := Decode(buf, nil)
	if err == nil {
		t.Fatal("expected validateIndices to reject an out-of-range placeNodeIdx")
	}
	if _, ok := err.(*BadFormatError); !ok {
		t.Errorf("expected *BadFormatError, got %T: %v", err, err)
	}
}

func TestDecode_LoudsBitmapEdgeCountMismatch(t *testing.T) {
	buf := buildV12Shard()
	// edgeCount varint sits right after the 1-byte bitmap; bumping it forces
	// walkLouds to see fewer 1-bits than the declared edge count.
	idx := bytes.Index(buf, []byte("main st")) - 1 // the varint length byte
	if idx < 0 {
		t.Fatal("could not locate edge label length byte in fixture")
	}
	// Corrupt the edgeCount field (the varint directly before the label
	// length), forcing a mismatch against the single 1-bit in the bitmap.
	edgeCountIdx := idx - 1
	buf[edgeCountIdx] = 2
	_, err := Decode(buf, nil)
	if err == nil {
		t.Fatal("expected error on LOUDS edge-count mismatch")
	}
}
