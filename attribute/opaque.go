package attribute

import "fmt"

// Opaque is a variable-length, caller-defined attribute: each element
// is serialized and parsed by caller-supplied functions, with no
// assumption of a fixed encoded size. It mirrors the original
// implementation's generic "Data" attribute, where encode/decode are
// entirely the caller's responsibility.
type Opaque struct {
	name       string
	EncodeElem func(v any) ([]byte, error)
	DecodeElem func([]byte) (any, error)
}

// NewOpaque returns an Opaque attribute named name, using encode/decode
// to serialize and parse individual elements.
func NewOpaque(name string, encode func(any) ([]byte, error), decode func([]byte) (any, error)) *Opaque {
	return &Opaque{name: name, EncodeElem: encode, DecodeElem: decode}
}

func (o *Opaque) Name() string             { return o.name }
func (o *Opaque) ElementSize() (int, bool) { return 0, false }

func (o *Opaque) Encode(values any) ([][]byte, error) {
	vs, ok := values.([]any)
	if !ok {
		return nil, fmt.Errorf("attribute: opaque %q expects []any, got %T", o.name, values)
	}
	out := make([][]byte, len(vs))
	for i, v := range vs {
		b, err := o.EncodeElem(v)
		if err != nil {
			return nil, fmt.Errorf("attribute: encoding %q[%d]: %w", o.name, i, err)
		}
		out[i] = b
	}
	return out, nil
}

func (o *Opaque) Decode(chunks [][]byte) (any, error) {
	out := make([]any, len(chunks))
	for i, c := range chunks {
		v, err := o.DecodeElem(c)
		if err != nil {
			return nil, fmt.Errorf("attribute: decoding %q[%d]: %w", o.name, i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (o *Opaque) Count(values any) int { return len(values.([]any)) }

func (o *Opaque) Slice(values any, idx []int) (any, error) {
	vs := values.([]any)
	out := make([]any, len(idx))
	for i, ix := range idx {
		out[i] = vs[ix]
	}
	return out, nil
}

func (o *Opaque) Concat(a, b any) (any, error) {
	av, bv := a.([]any), b.([]any)
	out := make([]any, 0, len(av)+len(bv))
	out = append(out, av...)
	out = append(out, bv...)
	return out, nil
}
