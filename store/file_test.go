package store

import (
	"testing"

	"github.com/ole-ks/nearpy-go/attribute"
	"github.com/ole-ks/nearpy-go/batch"
)

func TestFileStoreRetrieveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile("idx", dir, false)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	patch := attribute.NewPatch(2)
	v, _ := batch.FromRows([][]float32{{1, 1}, {2, 2}})
	chunks, err := patch.Encode(v)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Store([]uint64{10, 10}, map[string][][]byte{patch.Name(): chunks}); err != nil {
		t.Fatal(err)
	}

	got, err := f.Retrieve([]uint64{10, 99}, patch)
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

func TestFileStoreCompressedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile("idx", dir, true)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	patch := attribute.NewPatch(3)
	v, _ := batch.FromRows([][]float32{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})
	chunks, _ := patch.Encode(v)
	if _, err := f.Store([]uint64{1, 1, 2}, map[string][][]byte{patch.Name(): chunks}); err != nil {
		t.Fatal(err)
	}
	// second append exercises the decompress-append-recompress path
	v2, _ := batch.FromRows([][]float32{{10, 11, 12}})
	chunks2, _ := patch.Encode(v2)
	if _, err := f.Store([]uint64{1}, map[string][][]byte{patch.Name(): chunks2}); err != nil {
		t.Fatal(err)
	}

	got, err := f.Retrieve([]uint64{1, 2}, patch)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].(batch.Batch).N != 3 {
		t.Fatalf("bucket 1 has %d elements, want 3", got[0].(batch.Batch).N)
	}
	if got[1].(batch.Batch).N != 1 {
		t.Fatalf("bucket 2 has %d elements, want 1", got[1].(batch.Batch).N)
	}
}

func TestFileCountAndBucketKeys(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile("idx", dir, false)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	patch := attribute.NewPatch(1)
	v, _ := batch.FromRows([][]float32{{1}, {2}, {3}})
	chunks, _ := patch.Encode(v)
	if _, err := f.Store([]uint64{1, 1, 2}, map[string][][]byte{patch.Name(): chunks}); err != nil {
		t.Fatal(err)
	}

	counts, err := f.Count([]uint64{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if counts[0] != 2 || counts[1] != 1 || counts[2] != 0 {
		t.Fatalf("counts = %v, want [2 1 0]", counts)
	}

	keys, err := f.BucketKeys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Fatalf("got %d bucket keys, want 2", len(keys))
	}
}

func TestFileClearAndRemove(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile("idx", dir, false)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	patch := attribute.NewPatch(1)
	v, _ := batch.FromRows([][]float32{{1}, {2}})
	chunks, _ := patch.Encode(v)
	if _, err := f.Store([]uint64{1, 2}, map[string][][]byte{patch.Name(): chunks}); err != nil {
		t.Fatal(err)
	}

	n, err := f.Clear([]uint64{1})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("cleared %d entries, want 1", n)
	}
	counts, _ := f.Count([]uint64{1, 2})
	if counts[0] != 0 || counts[1] != 1 {
		t.Fatalf("counts after clear = %v, want [0 1]", counts)
	}

	all, err := f.BucketKeysAllAttributes()
	if err != nil {
		t.Fatal(err)
	}
	removed, err := f.Remove(all)
	if err != nil {
		t.Fatal(err)
	}
	if removed != len(all) {
		t.Fatalf("removed %d, want %d", removed, len(all))
	}
	keys, _ := f.BucketKeys()
	if len(keys) != 0 {
		t.Fatalf("expected no bucket keys after removing everything, got %v", keys)
	}
}

func TestFactoryFile(t *testing.T) {
	dir := t.TempDir()
	st, err := Factory("file", "idx", Options{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	if _, ok := st.(*File); !ok {
		t.Fatalf("Factory(\"file\", ...) returned %T, want *File", st)
	}
}
