// Package attribute defines the per-bucket data descriptors stored
// alongside bucket keys: the canonical fixed-shape "patch" tensor
// (§6's vector payload) and caller-defined opaque/fixed-width sidecar
// attributes (labels, ids, arbitrary blobs).
package attribute

// PatchName is the reserved attribute name for the fixed-shape vector
// payload every bucket carries. Storage backends use it to measure
// bucket occupancy (candidate counts, underfill detection).
const PatchName = "patch"

// Attribute describes how one named, per-element value is encoded to
// and decoded from bytes for storage, and how a decoded batch of
// values can be counted, sliced, and concatenated. Implementations
// must be safe for concurrent read-only use (Encode/Decode/Count/
// Slice/Concat never mutate the receiver).
type Attribute interface {
	Name() string

	// Encode serializes a caller-provided batch of M values into M
	// independent byte chunks, one per value.
	Encode(values any) ([][]byte, error)

	// Decode reconstructs a batch of M values from M byte chunks
	// previously produced by Encode.
	Decode(chunks [][]byte) (any, error)

	// ElementSize reports the fixed per-element encoded size, if any.
	// Fixed-size attributes (ElementSize returning (size, true)) can
	// have their bucket occupancy measured as byte-length/size without
	// decoding; opaque/variable attributes return (0, false).
	ElementSize() (size int, fixed bool)

	// Count reports how many elements a decoded batch value holds.
	Count(values any) int

	// Slice returns the subset of a decoded batch at the given
	// indices, in order.
	Slice(values any, idx []int) (any, error)

	// Concat appends b's elements after a's, both decoded batches of
	// this attribute.
	Concat(a, b any) (any, error)
}
