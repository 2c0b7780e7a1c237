package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ole-ks/nearpy-go/attribute"
)

// RemoteKV is a Store backed by Redis, using its native list commands
// to hold each bucket's element chunks, matching the original
// implementation's "storage_redis"/"storage_credis" backends. Physical
// keys are "<prefix>_<bucket-key>_<attr>".
type RemoteKV struct {
	client *redis.Client
	prefix string
}

// NewRemoteKV connects to a Redis server at host:port/db.
func NewRemoteKV(prefix, host string, port, db int) (*RemoteKV, error) {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", host, port),
		DB:   db,
	})
	return &RemoteKV{client: client, prefix: prefix}, nil
}

func (r *RemoteKV) physicalKey(key uint64, attr string) string {
	return fmt.Sprintf("%s_%d_%s", r.prefix, key, attr)
}

// indexKey tracks every bucket key ever written under an attribute, as
// a Redis set, so BucketKeys needs no KEYS/SCAN sweep;
// BucketKeysAllAttributes still SCANs, but only for these index keys.
func (r *RemoteKV) indexKey(attr string) string {
	return r.prefix + "_" + attr + "_keys"
}

func (r *RemoteKV) Store(keys []uint64, attrs map[string][][]byte) (int, error) {
	ctx := context.Background()
	pipe := r.client.Pipeline()
	for name, chunks := range attrs {
		if len(chunks) != len(keys) {
			return 0, attrCountMismatch(name, len(chunks), len(keys))
		}
		for i, k := range keys {
			pipe.RPush(ctx, r.physicalKey(k, name), chunks[i])
			pipe.SAdd(ctx, r.indexKey(name), strconv.FormatUint(k, 10))
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("store/remotekv: %w", err)
	}
	return len(keys), nil
}

func (r *RemoteKV) Retrieve(keys []uint64, attr attribute.Attribute) ([]any, error) {
	ctx := context.Background()
	out := make([]any, len(keys))
	for i, k := range keys {
		raw, err := r.client.LRange(ctx, r.physicalKey(k, attr.Name()), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("store/remotekv: %w", err)
		}
		chunks := make([][]byte, len(raw))
		for j, s := range raw {
			chunks[j] = []byte(s)
		}
		decoded, err := attr.Decode(chunks)
		if err != nil {
			return nil, err
		}
		out[i] = decoded
	}
	return out, nil
}

func (r *RemoteKV) Count(keys []uint64) ([]int, error) {
	ctx := context.Background()
	out := make([]int, len(keys))
	for i, k := range keys {
		n, err := r.client.LLen(ctx, r.physicalKey(k, attribute.PatchName)).Result()
		if err != nil {
			return nil, fmt.Errorf("store/remotekv: %w", err)
		}
		out[i] = int(n)
	}
	return out, nil
}

func (r *RemoteKV) BucketKeys() ([]uint64, error) {
	return r.keysForAttr(attribute.PatchName)
}

func (r *RemoteKV) keysForAttr(attr string) ([]uint64, error) {
	ctx := context.Background()
	raw, err := r.client.SMembers(ctx, r.indexKey(attr)).Result()
	if err != nil {
		return nil, fmt.Errorf("store/remotekv: %w", err)
	}
	out := make([]uint64, 0, len(raw))
	for _, s := range raw {
		k, err := strconv.ParseUint(s, 10, 64)
		if err == nil {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *RemoteKV) attrNames() ([]string, error) {
	ctx := context.Background()
	var names []string
	iter := r.client.Scan(ctx, 0, r.prefix+"_*_keys", 0).Iterator()
	for iter.Next(ctx) {
		name := strings.TrimPrefix(iter.Val(), r.prefix+"_")
		name = strings.TrimSuffix(name, "_keys")
		names = append(names, name)
	}
	return names, iter.Err()
}

func (r *RemoteKV) BucketKeysAllAttributes() ([]AttrKey, error) {
	names, err := r.attrNames()
	if err != nil {
		return nil, err
	}
	var out []AttrKey
	for _, name := range names {
		keys, err := r.keysForAttr(name)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			out = append(out, AttrKey{Attr: name, Key: k})
		}
	}
	return out, nil
}

func (r *RemoteKV) Clear(keys []uint64) (int, error) {
	all, err := r.BucketKeysAllAttributes()
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
	return r.Remove(toRemove)
}

func (r *RemoteKV) Remove(attrKeys []AttrKey) (int, error) {
	ctx := context.Background()
	n := 0
	for _, ak := range attrKeys {
		pipe := r.client.Pipeline()
		del := pipe.Del(ctx, r.physicalKey(ak.Key, ak.Attr))
		pipe.SRem(ctx, r.indexKey(ak.Attr), strconv.FormatUint(ak.Key, 10))
		if _, err := pipe.Exec(ctx); err != nil {
			return n, fmt.Errorf("store/remotekv: %w", err)
		}
		n += int(del.Val())
	}
	return n, nil
}

func (r *RemoteKV) Close() error {
	return r.client.Close()
}
