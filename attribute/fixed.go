package attribute

import "fmt"

// Fixed is a fixed-width sidecar attribute: every element occupies
// exactly Size bytes, encoded/decoded element-wise by caller-supplied
// functions. It generalizes the idea behind Patch (a fixed-shape
// float32 tensor) to arbitrary fixed-width values, e.g. an int32
// label or a uuid.UUID parallel to each stored vector.
type Fixed struct {
	name       string
	size       int
	EncodeElem func(v any) ([]byte, error)
	DecodeElem func([]byte) (any, error)
}

// NewFixed returns a Fixed attribute named name whose elements always
// encode to exactly size bytes.
func NewFixed(name string, size int, encode func(any) ([]byte, error), decode func([]byte) (any, error)) *Fixed {
	return &Fixed{name: name, size: size, EncodeElem: encode, DecodeElem: decode}
}

func (f *Fixed) Name() string             { return f.name }
func (f *Fixed) ElementSize() (int, bool) { return f.size, true }

func (f *Fixed) Encode(values any) ([][]byte, error) {
	vs, ok := values.([]any)
	if !ok {
		return nil, fmt.Errorf("attribute: fixed %q expects []any, got %T", f.name, values)
	}
	out := make([][]byte, len(vs))
	for i, v := range vs {
		b, err := f.EncodeElem(v)
		if err != nil {
			return nil, fmt.Errorf("attribute: encoding %q[%d]: %w", f.name, i, err)
		}
		if len(b) != f.size {
			return nil, fmt.Errorf("attribute: %q element %d encoded to %d bytes, want %d", f.name, i, len(b), f.size)
		}
		out[i] = b
	}
	return out, nil
}

func (f *Fixed) Decode(chunks [][]byte) (any, error) {
	out := make([]any, len(chunks))
	for i, c := range chunks {
		if len(c) != f.size {
			return nil, fmt.Errorf("attribute: %q decode: chunk %d has %d bytes, want %d", f.name, i, len(c), f.size)
		}
		v, err := f.DecodeElem(c)
		if err != nil {
			return nil, fmt.Errorf("attribute: decoding %q[%d]: %w", f.name, i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (f *Fixed) Count(values any) int { return len(values.([]any)) }

func (f *Fixed) Slice(values any, idx []int) (any, error) {
	vs := values.([]any)
	out := make([]any, len(idx))
	for i, ix := range idx {
		out[i] = vs[ix]
	}
	return out, nil
}

func (f *Fixed) Concat(a, b any) (any, error) {
	av, bv := a.([]any), b.([]any)
	out := make([]any, 0, len(av)+len(bv))
	out = append(out, av...)
	out = append(out, bv...)
	return out, nil
}
