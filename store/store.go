// Package store implements the pluggable bucket-key storage backend
// contract (store/retrieve/count/bucketkeys/clear/remove) behind four
// interchangeable variants: in-process memory, one-file-per-bucket on
// disk, a Redis-backed list store, and a Badger-backed embedded KV
// store with an application-level merge.
package store

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/dchest/siphash"

	"github.com/ole-ks/nearpy-go/attribute"
)

// AttrKey identifies one physical (attribute, bucket key) pair, as
// returned by BucketKeysAllAttributes and consumed by Remove.
type AttrKey struct {
	Attr string
	Key  uint64
}

// Store is the storage backend contract every engine plugs into. All
// methods accept batches of keys; callers are expected to batch their
// own calls rather than loop one key at a time, mirroring the original
// implementation's storage contract.
type Store interface {
	// Store appends, for every key in keys, the corresponding element
	// of each attrs[name] to that bucket. Every attrs[name] must have
	// exactly len(keys) entries. Returns the number of keys written.
	Store(keys []uint64, attrs map[string][][]byte) (int, error)

	// Retrieve returns, for every key in keys, the decoded batch of
	// attr's values stored under that key (an empty batch if the key
	// is absent). len(result) == len(keys).
	Retrieve(keys []uint64, attr attribute.Attribute) ([]any, error)

	// Count reports, for every key in keys, how many patch elements
	// are stored under that key.
	Count(keys []uint64) ([]int, error)

	// BucketKeys enumerates every bucket key that has ever had a patch
	// element stored under it.
	BucketKeys() ([]uint64, error)

	// BucketKeysAllAttributes enumerates every (attribute, key) pair
	// ever written, including attributes with no patch counterpart.
	BucketKeysAllAttributes() ([]AttrKey, error)

	// Clear deletes every attribute's data for the given bucket keys
	// and returns the number of (attribute, key) pairs removed.
	Clear(keys []uint64) (int, error)

	// Remove deletes exactly the given physical (attribute, key)
	// pairs and returns the number removed.
	Remove(attrKeys []AttrKey) (int, error)

	Close() error
}

// Options configures the backend-specific parts of Factory.
type Options struct {
	Dir      string // file, embedded-kv
	Host     string // remote-kv
	Port     int    // remote-kv
	DB       int    // remote-kv
	Compress bool   // file, embedded-kv: zstd-compress every attribute's stored bucket data
}

// ErrUnknownStorage is returned by Factory for an unrecognized backend
// name.
type ErrUnknownStorage struct{ Name string }

func (e ErrUnknownStorage) Error() string {
	return fmt.Sprintf("store: unknown storage: %q", e.Name)
}

// Factory builds a Store by name: "memory", "file", "remote-kv", or
// "embedded-kv". keyprefix namespaces the backend's physical keys so
// multiple indexes can share one Redis database or Badger directory.
func Factory(name, keyprefix string, opts Options) (Store, error) {
	switch strings.ToLower(name) {
	case "memory":
		return NewMemory(), nil
	case "file":
		dir := opts.Dir
		if dir == "" {
			dir = "./db"
		}
		return NewFile(keyprefix, dir, opts.Compress)
	case "remote-kv":
		host := opts.Host
		if host == "" {
			host = "localhost"
		}
		port := opts.Port
		if port == 0 {
			port = 6379
		}
		return NewRemoteKV(keyprefix, host, port, opts.DB)
	case "embedded-kv":
		dir := opts.Dir
		if dir == "" {
			dir = "./db"
		}
		return NewEmbeddedKV(keyprefix, dir, opts.Compress)
	default:
		return nil, ErrUnknownStorage{Name: name}
	}
}

// attrPrefix left-justifies name to 10 bytes followed by ":", matching
// the fixed-width attribute-name framing the embedded-kv backend uses
// for its physical keys.
func attrPrefix(name string) string {
	const width = 10
	if len(name) >= width {
		return name[:width] + ":"
	}
	return name + strings.Repeat(" ", width-len(name)) + ":"
}

func encodeKeyBytes(k uint64) [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], k)
	return b
}

func attrCountMismatch(name string, got, want int) error {
	return fmt.Errorf("store: attribute %q has %d values, want %d (one per key)", name, got, want)
}

// shard derives a stable, compact namespace id from a keyprefix
// string, used by backends whose physical key layout wants a fixed-
// width namespace component instead of an arbitrarily long string
// (see embeddedkv.go; remotekv.go uses the keyprefix string as is). Two stores built with the same
// keyprefix always agree on this id, regardless of process.
func shard(keyprefix string) uint64 {
	return siphash.Hash(0x6e656172, 0x70792d67, []byte(keyprefix))
}
