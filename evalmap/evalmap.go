// Package evalmap holds the fast-loading subset of a solved database: a
// per-board-size mapping from canonical key to (value, depth), exported
// from the store with size thresholds and persisted as one gzipped JSON
// archive covering all board sizes.
package evalmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"

	"github.com/sekika/dodgem/position"
	"github.com/sekika/dodgem/store"
)

// ErrMissingSize means the archive loaded fine but has no entry for the
// requested board size.
var ErrMissingSize = errors.New("evalmap has no data for this board size")

// Entry is a definite evaluation and the search depth that certified it.
type Entry struct {
	Value int
	Depth int
}

// Cache is the in-memory evalmap for one board size. It is read-only
// after construction and replaced wholesale on refresh.
type Cache struct {
	n       int
	entries map[string]Entry
}

func (c *Cache) Get(key string) (Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

func (c *Cache) Len() int { return len(c.entries) }

func (c *Cache) Size() int { return c.n }

// thresholds are (minDepth, minRemain, maxSide) per board size, tuned to
// keep the exported maps a small fraction of the full solve.
var thresholds = [3]struct{ minDepth, minRemain, maxSide int }{
	{10, 7, 5},   // 3×3:   803 of 1,963 positions
	{15, 12, 10}, // 4×4:   113,065 of 393,900
	{30, 15, 2},  // 5×5:   879,830 of 164,308,067
}

// archive is the serialized form: board-size label -> key -> [value, depth].
type archive map[string]map[string][2]int

// Load reads the archive at path and returns the cache for board size n.
func Load(path string, n int) (*Cache, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open evalmap: %w", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("read evalmap %s: %w", path, err)
	}
	defer gz.Close()
	var arch archive
	if err := json.NewDecoder(gz).Decode(&arch); err != nil {
		return nil, fmt.Errorf("decode evalmap %s: %w", path, err)
	}
	m, ok := arch[strconv.Itoa(n)]
	if !ok {
		return nil, fmt.Errorf("%w: n=%d in %s", ErrMissingSize, n, path)
	}
	entries := make(map[string]Entry, len(m))
	for key, vd := range m {
		entries[key] = Entry{Value: vd[0], Depth: vd[1]}
	}
	log.Debug().Int("n", n).Int("entries", len(entries)).Msg("evalmap-loaded")
	return &Cache{n: n, entries: entries}, nil
}

// Export selects records for every board size from the store and writes
// the combined archive to path. Sizes with no solve data export empty.
func Export(s *store.Store, path string) error {
	arch := archive{}
	for n := 3; n <= 5; n++ {
		m, err := selectSize(s, n)
		if err != nil {
			return err
		}
		arch[strconv.Itoa(n)] = m
		log.Info().Int("n", n).Int("entries", len(m)).Msg("evalmap-selected")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write evalmap: %w", err)
	}
	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(arch); err != nil {
		f.Close()
		return fmt.Errorf("encode evalmap: %w", err)
	}
	if err := gz.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func selectSize(s *store.Store, n int) (map[string][2]int, error) {
	m := map[string][2]int{}
	ok, err := s.HasSize(n)
	if err != nil {
		return nil, err
	}
	if !ok {
		return m, nil
	}
	board, err := position.NewBoard(n)
	if err != nil {
		return nil, err
	}
	th := thresholds[n-3]
	diff := board.MaxDepth() - board.MaxRemain() - th.maxSide
	rows, err := s.SelectEvalmap(n, th.minDepth, th.minRemain, diff)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		m[r.Key] = [2]int{r.Value, r.Depth}
	}
	if n == 3 {
		// Pin the forced-draw keys at the depth ceiling so incremental
		// rebuilds can never overwrite them with a shallower record.
		for _, key := range position.DrawKeys3() {
			m[key] = [2]int{0, board.MaxDepth()}
		}
	}
	return m, nil
}
