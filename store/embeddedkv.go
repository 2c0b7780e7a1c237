package store

import (
	"encoding/binary"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"

	"github.com/ole-ks/nearpy-go/attribute"
)

// EmbeddedKV is a Store backed by Badger, matching the original
// implementation's "storage_rocksdb" backend but without a native
// merge operator: Badger has none, so Store performs the merge
// (read-modify-write inside one transaction) at the application level
// instead of relying on an AssociativeMergeOperator.
//
// Physical keys are shard(prefix) (8 bytes) + attribute name padded to
// 10 bytes + ":" + the bucket key as 8 big-endian bytes, so one Badger
// directory can host several independently-prefixed indexes.
type EmbeddedKV struct {
	db       *badger.DB
	prefix   [8]byte
	compress bool
}

// NewEmbeddedKV opens (creating if needed) a Badger database at dir.
func NewEmbeddedKV(prefix, dir string, compress bool) (*EmbeddedKV, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store/embeddedkv: opening %s: %w", dir, err)
	}
	var shardBuf [8]byte
	binary.BigEndian.PutUint64(shardBuf[:], shard(prefix))
	return &EmbeddedKV{db: db, prefix: shardBuf, compress: compress}, nil
}

func (e *EmbeddedKV) physicalKey(key uint64, attr string) []byte {
	k := append([]byte{}, e.prefix[:]...)
	k = append(k, []byte(attrPrefix(attr))...)
	var kb [8]byte
	binary.BigEndian.PutUint64(kb[:], key)
	return append(k, kb[:]...)
}

func (e *EmbeddedKV) encodeValue(chunks [][]byte) ([]byte, error) {
	w := &sliceWriter{}
	if err := writeFramed(w, chunks); err != nil {
		return nil, err
	}
	if !e.compress {
		return w.buf, nil
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(w.buf, nil), nil
}

func (e *EmbeddedKV) decodeValue(raw []byte) ([][]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if e.compress {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		var err2 error
		raw, err2 = dec.DecodeAll(raw, nil)
		if err2 != nil {
			return nil, fmt.Errorf("store/embeddedkv: decompressing: %w", err2)
		}
	}
	return readFramed(raw)
}

func (e *EmbeddedKV) Store(keys []uint64, attrs map[string][][]byte) (int, error) {
	for name, chunks := range attrs {
		if len(chunks) != len(keys) {
			return 0, attrCountMismatch(name, len(chunks), len(keys))
		}
	}
	err := e.db.Update(func(txn *badger.Txn) error {
		for name, chunks := range attrs {
			for i, k := range keys {
				pk := e.physicalKey(k, name)
				var existing [][]byte
				item, err := txn.Get(pk)
				switch {
				case err == nil:
					if err := item.Value(func(val []byte) error {
						decoded, err := e.decodeValue(val)
						existing = decoded
						return err
					}); err != nil {
						return err
					}
				case err == badger.ErrKeyNotFound:
				default:
					return err
				}
				merged := append(existing, chunks[i])
				encoded, err := e.encodeValue(merged)
				if err != nil {
					return err
				}
				if err := txn.Set(pk, encoded); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store/embeddedkv: %w", err)
	}
	return len(keys), nil
}

func (e *EmbeddedKV) Retrieve(keys []uint64, attr attribute.Attribute) ([]any, error) {
	out := make([]any, len(keys))
	err := e.db.View(func(txn *badger.Txn) error {
		for i, k := range keys {
			pk := e.physicalKey(k, attr.Name())
			var chunks [][]byte
			item, err := txn.Get(pk)
			switch {
			case err == nil:
				if err := item.Value(func(val []byte) error {
					c, err := e.decodeValue(val)
					chunks = c
					return err
				}); err != nil {
					return err
				}
			case err == badger.ErrKeyNotFound:
			default:
				return err
			}
			decoded, err := attr.Decode(chunks)
			if err != nil {
				return err
			}
			out[i] = decoded
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store/embeddedkv: %w", err)
	}
	return out, nil
}

func (e *EmbeddedKV) Count(keys []uint64) ([]int, error) {
	vals, err := e.Retrieve(keys, patchCounter{})
	if err != nil {
		return nil, err
	}
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = v.(int)
	}
	return out, nil
}

// patchCounter is a throwaway attribute.Attribute whose Decode just
// reports how many chunks it saw, letting Count reuse Retrieve's
// transaction/merge plumbing without decoding actual patch payloads.
type patchCounter struct{}

func (patchCounter) Name() string                          { return attribute.PatchName }
func (patchCounter) ElementSize() (int, bool)               { return 0, false }
func (patchCounter) Encode(values any) ([][]byte, error)    { return nil, fmt.Errorf("not supported") }
func (patchCounter) Decode(chunks [][]byte) (any, error)    { return len(chunks), nil }
func (patchCounter) Count(values any) int                  { return values.(int) }
func (patchCounter) Slice(values any, idx []int) (any, error) { return values, nil }
func (patchCounter) Concat(a, b any) (any, error)           { return a.(int) + b.(int), nil }

func (e *EmbeddedKV) BucketKeys() ([]uint64, error) {
	return e.keysForAttr(attribute.PatchName)
}

func (e *EmbeddedKV) keysForAttr(attr string) ([]uint64, error) {
	all, err := e.BucketKeysAllAttributes()
	if err != nil {
		return nil, err
	}
	var out []uint64
	for _, ak := range all {
		if ak.Attr == attr {
			out = append(out, ak.Key)
		}
	}
	return out, nil
}

func (e *EmbeddedKV) BucketKeysAllAttributes() ([]AttrKey, error) {
	var out []AttrKey
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = e.prefix[:]
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(e.prefix[:]); it.ValidForPrefix(e.prefix[:]); it.Next() {
			key := it.Item().KeyCopy(nil)
			if len(key) != 8+11+8 {
				continue
			}
			attr := strings.TrimSpace(strings.TrimSuffix(string(key[8:8+11]), ":"))
			bucketKey := binary.BigEndian.Uint64(key[8+11:])
			out = append(out, AttrKey{Attr: attr, Key: bucketKey})
		}
		return nil
	})
	return out, err
}

func (e *EmbeddedKV) Clear(keys []uint64) (int, error) {
	all, err := e.BucketKeysAllAttributes()
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
	return e.Remove(toRemove)
}

func (e *EmbeddedKV) Remove(attrKeys []AttrKey) (int, error) {
	n := 0
	err := e.db.Update(func(txn *badger.Txn) error {
		for _, ak := range attrKeys {
			pk := e.physicalKey(ak.Key, ak.Attr)
			if _, err := txn.Get(pk); err == badger.ErrKeyNotFound {
				continue
			} else if err != nil {
				return err
			}
			if err := txn.Delete(pk); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store/embeddedkv: %w", err)
	}
	return n, nil
}

func (e *EmbeddedKV) Close() error {
	return e.db.Close()
}
