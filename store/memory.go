package store

import (
	"sync"

	"github.com/ole-ks/nearpy-go/attribute"
)

// Memory is an in-process Store backed by Go maps, matching the
// original implementation's default "storage_memory" backend. It
// keeps every element's byte chunk as a discrete list entry, so no
// framing is needed for variable-length attributes.
type Memory struct {
	mu      sync.RWMutex
	buckets map[string]map[uint64][][]byte // attr -> key -> chunks
}

// NewMemory returns an empty in-process Store.
func NewMemory() *Memory {
	return &Memory{buckets: make(map[string]map[uint64][][]byte)}
}

func (m *Memory) Store(keys []uint64, attrs map[string][][]byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, chunks := range attrs {
		if len(chunks) != len(keys) {
			return 0, attrCountMismatch(name, len(chunks), len(keys))
		}
		bucket, ok := m.buckets[name]
		if !ok {
			bucket = make(map[uint64][][]byte)
			m.buckets[name] = bucket
		}
		for i, k := range keys {
			bucket[k] = append(bucket[k], chunks[i])
		}
	}
	return len(keys), nil
}

func (m *Memory) Retrieve(keys []uint64, attr attribute.Attribute) ([]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket := m.buckets[attr.Name()]
	out := make([]any, len(keys))
	for i, k := range keys {
		decoded, err := attr.Decode(bucket[k])
		if err != nil {
			return nil, err
		}
		out[i] = decoded
	}
	return out, nil
}

func (m *Memory) Count(keys []uint64) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket := m.buckets[attribute.PatchName]
	out := make([]int, len(keys))
	for i, k := range keys {
		out[i] = len(bucket[k])
	}
	return out, nil
}

func (m *Memory) BucketKeys() ([]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bucket := m.buckets[attribute.PatchName]
	out := make([]uint64, 0, len(bucket))
	for k := range bucket {
		out = append(out, k)
	}
	return out, nil
}

func (m *Memory) BucketKeysAllAttributes() ([]AttrKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []AttrKey
	for name, bucket := range m.buckets {
		for k := range bucket {
			out = append(out, AttrKey{Attr: name, Key: k})
		}
	}
	return out, nil
}

func (m *Memory) Clear(keys []uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, bucket := range m.buckets {
		for _, k := range keys {
			if _, ok := bucket[k]; ok {
				delete(bucket, k)
				n++
			}
		}
	}
	return n, nil
}

func (m *Memory) Remove(attrKeys []AttrKey) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ak := range attrKeys {
		bucket, ok := m.buckets[ak.Attr]
		if !ok {
			continue
		}
		if _, ok := bucket[ak.Key]; ok {
			delete(bucket, ak.Key)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Close() error { return nil }
