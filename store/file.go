package store

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/ole-ks/nearpy-go/attribute"
	"github.com/ole-ks/nearpy-go/fsutil"
)

// File is a Store backed by one file per (bucket key, attribute)
// pair, under <dir>/<prefix>/, matching the original "storage_file"
// backend's one-file-per-bucket layout. The canonical patch attribute
// is written as raw contiguous bytes with no interspersed framing, so
// a bucket's file is exactly N*elemSize bytes and an external reader
// can treat it as a flat array. Every other attribute is framed with a
// uvarint length prefix per element, since its encoded size may vary.
//
// Without compression, appends write in place to a file opened with
// O_APPEND (one write per patch element; a length write plus a data
// write per element of any other attribute). With
// compression enabled, an append requires decompressing the existing
// file, appending in the clear, recompressing, and atomically
// replacing the file via a uuid-named scratch file in the same
// directory.
type File struct {
	mu       sync.Mutex
	root     string
	compress bool

	// patchElemSize caches the canonical patch attribute's per-element
	// byte size, needed to split a bucket's raw byte file back into
	// elements without an Attribute in hand (Count has none). It is
	// learned from the first Store call that writes patch data and
	// persisted to a sidecar file so later processes can recover it.
	patchElemSize int
}

// NewFile returns a Store rooted at <dir>/<prefix>, creating the
// directory if needed.
func NewFile(prefix, dir string, compress bool) (*File, error) {
	root := filepath.Join(dir, prefix)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store/file: creating %s: %w", root, err)
	}
	return &File{root: root, compress: compress}, nil
}

func (f *File) path(key uint64, attr string) string {
	return filepath.Join(f.root, fmt.Sprintf("%d_%s.npy", key, attr))
}

func (f *File) patchSidecarPath() string {
	return filepath.Join(f.root, ".patch_elemsize")
}

// ensurePatchElemSize records size as the patch attribute's per-element
// byte count, persisting it to a sidecar file the first time it's seen
// (or if it ever changes, which would indicate a dimension mismatch
// the attribute layer should already have rejected).
func (f *File) ensurePatchElemSize(size int) error {
	if f.patchElemSize == size {
		return nil
	}
	if err := os.WriteFile(f.patchSidecarPath(), []byte(strconv.Itoa(size)), 0o644); err != nil {
		return err
	}
	f.patchElemSize = size
	return nil
}

func (f *File) loadPatchElemSize() (int, error) {
	if f.patchElemSize != 0 {
		return f.patchElemSize, nil
	}
	raw, err := os.ReadFile(f.patchSidecarPath())
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, fmt.Errorf("store/file: corrupt patch element size sidecar: %w", err)
	}
	f.patchElemSize = n
	return n, nil
}

// splitFixed divides raw into consecutive elemSize-byte chunks, the
// inverse of concatenating patch chunks during a write.
func splitFixed(raw []byte, elemSize int) ([][]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if elemSize <= 0 {
		return nil, fmt.Errorf("store/file: patch data present but element size unknown")
	}
	if len(raw)%elemSize != 0 {
		return nil, fmt.Errorf("store/file: patch file length %d not a multiple of element size %d", len(raw), elemSize)
	}
	n := len(raw) / elemSize
	chunks := make([][]byte, n)
	for i := 0; i < n; i++ {
		chunks[i] = raw[i*elemSize : (i+1)*elemSize]
	}
	return chunks, nil
}

func joinChunks(chunks [][]byte) []byte {
	var buf []byte
	for _, c := range chunks {
		buf = append(buf, c...)
	}
	return buf
}

func writeFramed(w io.Writer, chunks [][]byte) error {
	var lenBuf [binary.MaxVarintLen64]byte
	for _, c := range chunks {
		n := binary.PutUvarint(lenBuf[:], uint64(len(c)))
		if _, err := w.Write(lenBuf[:n]); err != nil {
			return err
		}
		if _, err := w.Write(c); err != nil {
			return err
		}
	}
	return nil
}

func readFramed(data []byte) ([][]byte, error) {
	var chunks [][]byte
	for len(data) > 0 {
		n, sz := binary.Uvarint(data)
		if sz <= 0 {
			return nil, fmt.Errorf("store/file: corrupt length prefix")
		}
		data = data[sz:]
		if uint64(len(data)) < n {
			return nil, fmt.Errorf("store/file: truncated chunk")
		}
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	return chunks, nil
}

func (f *File) appendPlain(path string, chunks [][]byte, framed bool) error {
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer fh.Close()
	unlock, err := flockExclusive(fh)
	if err != nil {
		return err
	}
	defer unlock()
	if !framed {
		_, err := fh.Write(joinChunks(chunks))
		return err
	}
	return writeFramed(fh, chunks)
}

func (f *File) appendCompressed(path string, chunks [][]byte, framed bool) error {
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	defer fh.Close()
	unlock, err := flockExclusive(fh)
	if err != nil {
		return err
	}
	defer unlock()

	raw, err := io.ReadAll(fh)
	if err != nil {
		return err
	}
	var existing []byte
	if len(raw) > 0 {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return err
		}
		existing, err = dec.DecodeAll(raw, nil)
		dec.Close()
		if err != nil {
			return fmt.Errorf("store/file: decompressing %s: %w", path, err)
		}
	}

	var buf []byte
	if !framed {
		buf = append(existing, joinChunks(chunks)...)
	} else {
		w := &sliceWriter{buf: existing}
		if err := writeFramed(w, chunks); err != nil {
			return err
		}
		buf = w.buf
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	compressed := enc.EncodeAll(buf, nil)
	enc.Close()

	tmp := filepath.Join(filepath.Dir(path), "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

type sliceWriter struct{ buf []byte }

func (w *sliceWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (f *File) readChunks(key uint64, attr string) ([][]byte, error) {
	path := f.path(key, attr)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if f.compress {
		if len(raw) == 0 {
			return nil, nil
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		raw, err = dec.DecodeAll(raw, nil)
		if err != nil {
			return nil, fmt.Errorf("store/file: decompressing %s: %w", path, err)
		}
	}
	if attr == attribute.PatchName {
		elemSize, err := f.loadPatchElemSize()
		if err != nil {
			return nil, err
		}
		return splitFixed(raw, elemSize)
	}
	return readFramed(raw)
}

func (f *File) Store(keys []uint64, attrs map[string][][]byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, chunks := range attrs {
		if len(chunks) != len(keys) {
			return 0, attrCountMismatch(name, len(chunks), len(keys))
		}
		framed := name != attribute.PatchName
		if !framed && len(chunks) > 0 {
			if err := f.ensurePatchElemSize(len(chunks[0])); err != nil {
				return 0, fmt.Errorf("store/file: recording patch element size: %w", err)
			}
		}
		for i, k := range keys {
			path := f.path(k, name)
			var err error
			if f.compress {
				err = f.appendCompressed(path, chunks[i:i+1], framed)
			} else {
				err = f.appendPlain(path, chunks[i:i+1], framed)
			}
			if err != nil {
				return i, fmt.Errorf("store/file: appending %s: %w", path, err)
			}
		}
	}
	return len(keys), nil
}

func (f *File) Retrieve(keys []uint64, attr attribute.Attribute) ([]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, len(keys))
	for i, k := range keys {
		chunks, err := f.readChunks(k, attr.Name())
		if err != nil {
			return nil, err
		}
		decoded, err := attr.Decode(chunks)
		if err != nil {
			return nil, err
		}
		out[i] = decoded
	}
	return out, nil
}

func (f *File) Count(keys []uint64) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, len(keys))
	for i, k := range keys {
		chunks, err := f.readChunks(k, attribute.PatchName)
		if err != nil {
			return nil, err
		}
		out[i] = len(chunks)
	}
	return out, nil
}

func (f *File) BucketKeys() ([]uint64, error) {
	return f.keysForAttr(attribute.PatchName)
}

func parseEntryName(name string) (key uint64, attr string, ok bool) {
	const ext = ".npy"
	if len(name) <= len(ext) || name[len(name)-len(ext):] != ext {
		return 0, "", false
	}
	body := name[:len(name)-len(ext)]
	i := 0
	for i < len(body) && body[i] >= '0' && body[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(body) || body[i] != '_' {
		return 0, "", false
	}
	k, err := strconv.ParseUint(body[:i], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return k, body[i+1:], true
}

func (f *File) keysForAttr(attr string) ([]uint64, error) {
	all, err := f.BucketKeysAllAttributes()
	if err != nil {
		return nil, err
	}
	var keys []uint64
	for _, ak := range all {
		if ak.Attr == attr {
			keys = append(keys, ak.Key)
		}
	}
	return keys, nil
}

func (f *File) BucketKeysAllAttributes() ([]AttrKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []AttrKey
	err := fsutil.VisitDir(os.DirFS(f.root), ".", func(ent fsutil.DirEntry) error {
		if ent.IsDir() {
			return nil
		}
		if k, attr, ok := parseEntryName(ent.Name()); ok {
			out = append(out, AttrKey{Attr: attr, Key: k})
		}
		return nil
	})
	return out, err
}

func (f *File) Clear(keys []uint64) (int, error) {
	all, err := f.BucketKeysAllAttributes()
	if err != nil {
		return 0, err
	}
	set := make(map[uint64]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	var toRemove []AttrKey
	for _, ak := range all {
		if set[ak.Key] {
			toRemove = append(toRemove, ak)
		}
	}
	return f.Remove(toRemove)
}

func (f *File) Remove(attrKeys []AttrKey) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ak := range attrKeys {
		path := f.path(ak.Key, ak.Attr)
		if err := os.Remove(path); err == nil {
			n++
		} else if !os.IsNotExist(err) {
			return n, err
		}
	}
	return n, nil
}

func (f *File) Close() error { return nil }
