package store

import (
	"testing"

	"github.com/ole-ks/nearpy-go/attribute"
	"github.com/ole-ks/nearpy-go/batch"
)

func TestMemoryStoreRetrieveRoundTrip(t *testing.T) {
	m := NewMemory()
	patch := attribute.NewPatch(2)
	v, _ := batch.FromRows([][]float32{{1, 1}, {2, 2}})
	chunks, err := patch.Encode(v)
	if err != nil {
		t.Fatal(err)
	}
	keys := []uint64{10, 10}
	if _, err := m.Store(keys, map[string][][]byte{patch.Name(): chunks}); err != nil {
		t.Fatal(err)
	}

	got, err := m.Retrieve([]uint64{10, 99}, patch)
	if err != nil {
		t.Fatal(err)
	}
	b0 := got[0].(batch.Batch)
	if b0.N != 2 {
		t.Fatalf("bucket 10 has %d elements, want 2", b0.N)
	}
	b1 := got[1].(batch.Batch)
	if b1.N != 0 {
		t.Fatalf("empty bucket should decode to 0 elements, got %d", b1.N)
	}
}

func TestMemoryCountAndBucketKeys(t *testing.T) {
	m := NewMemory()
	patch := attribute.NewPatch(1)
	v, _ := batch.FromRows([][]float32{{1}, {2}, {3}})
	chunks, _ := patch.Encode(v)
	m.Store([]uint64{1, 1, 2}, map[string][][]byte{patch.Name(): chunks})

	counts, err := m.Count([]uint64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if counts[0] != 2 || counts[1] != 1 || counts[2] != 0 {
		t.Fatalf("counts = %v, want [2 1 0]", counts)
	}

	keys, err := m.BucketKeys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d bucket keys, want 2", len(keys))
	}
}

func TestMemoryAttributeCountMismatch(t *testing.T) {
	m := NewMemory()
	patch := attribute.NewPatch(1)
	v, _ := batch.FromRows([][]float32{{1}})
	chunks, _ := patch.Encode(v)
	_, err := m.Store([]uint64{1, 2}, map[string][][]byte{patch.Name(): chunks})
	if err == nil {
		t.Fatal("expected error when attribute chunk count does not match key count")
	}
}

func TestMemoryClearAndRemove(t *testing.T) {
	m := NewMemory()
	patch := attribute.NewPatch(1)
	v, _ := batch.FromRows([][]float32{{1}, {2}})
	chunks, _ := patch.Encode(v)
	m.Store([]uint64{1, 2}, map[string][][]byte{patch.Name(): chunks})

	n, err := m.Clear([]uint64{1})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("cleared %d entries, want 1", n)
	}
	counts, _ := m.Count([]uint64{1, 2})
	if counts[0] != 0 || counts[1] != 1 {
		t.Fatalf("counts after clear = %v, want [0 1]", counts)
	}

	all, err := m.BucketKeysAllAttributes()
	if err != nil {
		t.Fatal(err)
	}
	removed, err := m.Remove(all)
	if err != nil {
		t.Fatal(err)
	}
	if removed != len(all) {
		t.Fatalf("removed %d, want %d", removed, len(all))
	}
	keys, _ := m.BucketKeys()
	if len(keys) != 0 {
		t.Fatalf("expected no bucket keys after removing everything, got %v", keys)
	}
}

func TestFactoryUnknownStorage(t *testing.T) {
	_, err := Factory("bogus", "p", Options{})
	if err == nil {
		t.Fatal("expected error for unknown storage name")
	}
	if _, ok := err.(ErrUnknownStorage); !ok {
		t.Fatalf("got error type %T, want ErrUnknownStorage", err)
	}
}

func TestFactoryMemory(t *testing.T) {
	st, err := Factory("MEMORY", "p", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(*Memory); !ok {
		t.Fatalf("Factory(\"MEMORY\", ...) returned %T, want *Memory", st)
	}
}
