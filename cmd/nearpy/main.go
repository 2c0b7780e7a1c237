// Command nearpy is a small CLI harness around the nearpy engine: it
// indexes vectors from a text file and answers nearest-neighbor
// queries against them, wiring together a Hashing scheme and a Store
// backend chosen by flag or config file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"sigs.k8s.io/yaml"

	nearpy "github.com/ole-ks/nearpy-go"
	"github.com/ole-ks/nearpy-go/distance"
	"github.com/ole-ks/nearpy-go/filter"
	"github.com/ole-ks/nearpy-go/hash"
	"github.com/ole-ks/nearpy-go/store"
)

var (
	dashConfig   string
	dashOp       string
	dashInput    string
	dashStorage  string
	dashPrefix   string
	dashDir      string
	dashHost     string
	dashPort     int
	dashDB       int
	dashCompress bool
	dashDim      int
	dashNBits    int
	dashSeed     int64
	dashK        int

	logger = log.New(os.Stderr, "nearpy: ", 0)
)

func init() {
	flag.StringVar(&dashConfig, "config", "", "YAML config file (overrides individual flags where set)")
	flag.StringVar(&dashOp, "op", "index", "operation: index, query, stats, clear")
	flag.StringVar(&dashInput, "input", "", "path to a whitespace-separated vector file, one vector per line")
	flag.StringVar(&dashStorage, "storage", "memory", "storage backend: memory, file, remote-kv, embedded-kv")
	flag.StringVar(&dashPrefix, "prefix", "nearpy", "key namespace prefix for the storage backend")
	flag.StringVar(&dashDir, "dir", "", "directory root for file/embedded-kv backends")
	flag.StringVar(&dashHost, "host", "localhost", "remote-kv host")
	flag.IntVar(&dashPort, "port", 6379, "remote-kv port")
	flag.IntVar(&dashDB, "db", 0, "remote-kv database index")
	flag.BoolVar(&dashCompress, "compress", false, "zstd-compress file/embedded-kv payloads")
	flag.IntVar(&dashDim, "dim", 0, "vector dimension (required for every -op; the hash is built from it)")
	flag.IntVar(&dashNBits, "nbits", 16, "number of hash bits")
	flag.Int64Var(&dashSeed, "seed", 1, "random-hyperplane hash seed")
	flag.IntVar(&dashK, "k", 10, "nearest-neighbor count for -op query")
}

// config is the YAML-loadable equivalent of the flags above, letting
// callers check a reproducible configuration into version control
// instead of a long flag invocation.
type config struct {
	Storage  string `json:"storage"`
	Prefix   string `json:"prefix"`
	Dir      string `json:"dir"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DB       int    `json:"db"`
	Compress bool   `json:"compress"`
	Dim      int    `json:"dim"`
	NBits    int    `json:"nbits"`
	Seed     int64  `json:"seed"`
	K        int    `json:"k"`
}

func loadConfig(path string, base config) (config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return config{}, fmt.Errorf("reading config: %w", err)
	}
	c := base
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return config{}, fmt.Errorf("parsing config: %w", err)
	}
	return c, nil
}

func readVectors(path string, dim int) (nearpy.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nearpy.Batch{}, err
	}
	defer f.Close()

	var rows [][]float32
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		row := make([]float32, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nearpy.Batch{}, fmt.Errorf("parsing %q: %w", f, err)
			}
			row[i] = float32(v)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nearpy.Batch{}, err
	}
	b, err := nearpy.BatchFromRows(rows)
	if err != nil {
		return nearpy.Batch{}, err
	}
	if dim != 0 && b.D != dim {
		return nearpy.Batch{}, fmt.Errorf("vectors have dimension %d, expected %d", b.D, dim)
	}
	return b, nil
}

func buildEngine(c config) (*nearpy.Engine, error) {
	st, err := store.Factory(c.Storage, c.Prefix, store.Options{
		Dir:      c.Dir,
		Host:     c.Host,
		Port:     c.Port,
		DB:       c.DB,
		Compress: c.Compress,
	})
	if err != nil {
		return nil, fmt.Errorf("building storage: %w", err)
	}
	h, err := hash.NewRandomHyperplane("cli", c.Dim, c.NBits, c.Seed)
	if err != nil {
		return nil, fmt.Errorf("building hash: %w", err)
	}
	filters := []filter.Filter{filter.NearestFilter{K: c.K}}
	eng := nearpy.NewEngine(h, distance.Euclidean{}, filters, st)
	return eng, nil
}

func main() {
	flag.Parse()

	c := config{
		Storage:  dashStorage,
		Prefix:   dashPrefix,
		Dir:      dashDir,
		Host:     dashHost,
		Port:     dashPort,
		DB:       dashDB,
		Compress: dashCompress,
		Dim:      dashDim,
		NBits:    dashNBits,
		Seed:     dashSeed,
		K:        dashK,
	}
	if dashConfig != "" {
		loaded, err := loadConfig(dashConfig, c)
		if err != nil {
			logger.Fatal(err)
		}
		c = loaded
	}

	eng, err := buildEngine(c)
	if err != nil {
		logger.Fatal(err)
	}
	defer eng.Storage.Close()

	switch dashOp {
	case "index":
		runIndex(eng, c)
	case "query":
		runQuery(eng, c)
	case "stats":
		runStats(eng)
	case "clear":
		runClear(eng)
	default:
		logger.Fatalf("unknown -op %q", dashOp)
	}
}

func runIndex(eng *nearpy.Engine, c config) {
	if dashInput == "" {
		logger.Fatal("-input is required for -op index")
	}
	v, err := readVectors(dashInput, c.Dim)
	if err != nil {
		logger.Fatal(err)
	}
	n, err := eng.StoreBatch(v, nil)
	if err != nil {
		logger.Fatal(err)
	}
	fmt.Printf("indexed %d vectors\n", n)
}

func runQuery(eng *nearpy.Engine, c config) {
	if dashInput == "" {
		logger.Fatal("-input is required for -op query")
	}
	v, err := readVectors(dashInput, c.Dim)
	if err != nil {
		logger.Fatal(err)
	}
	it, err := eng.NeighborsBatch(v)
	if err != nil {
		logger.Fatal(err)
	}
	for {
		res, ok, err := it.Next()
		if err != nil {
			logger.Fatal(err)
		}
		if !ok {
			break
		}
		fmt.Printf("query %d: %d neighbors, distances=%v\n", res.QueryIndex, len(res.Dist), res.Dist)
	}
}

func runStats(eng *nearpy.Engine) {
	buckets, err := eng.NumBuckets()
	if err != nil {
		logger.Fatal(err)
	}
	patches, err := eng.NumPatches()
	if err != nil {
		logger.Fatal(err)
	}
	fmt.Printf("buckets: %d\npatches: %d\n", buckets, patches)
}

func runClear(eng *nearpy.Engine) {
	n, err := eng.Clear()
	if err != nil {
		logger.Fatal(err)
	}
	fmt.Printf("removed %d entries\n", n)
}
