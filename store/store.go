// Package store persists Dodgem evaluation records and the builder's
// depth/remain bucket index in a local SQLite database. It plays the role
// of a document store keyed by canonical position string: point lookups,
// partial upserts, the range query behind evalmap export, and sharded
// key-list buckets.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// shardSize caps the number of keys stored in one bucket row. Buckets
// larger than this fan out over numbered shards.
const shardSize = 300000

var (
	// ErrUnavailable wraps connection and ping failures.
	ErrUnavailable = errors.New("evaluation store unavailable")
	// ErrNoDatabase means the store is reachable but holds no solve data
	// for the requested board size.
	ErrNoDatabase = errors.New("evaluation database does not exist")
)

// Record is one position's evaluation document. Value is unset while the
// position is merely indexed by the builder and not yet classified.
type Record struct {
	Value    int
	HasValue bool
	Depth    int
	Remain   int
}

// Win reports a forced result at or beyond the given threshold.
func (r Record) Win(threshold int) bool {
	return r.HasValue && (r.Value >= threshold || r.Value <= -threshold)
}

// BucketID addresses one shard of a depth/remain bucket.
type BucketID struct {
	Depth  int
	Remain int
	Shard  int
}

type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the store at path and verifies
// connectivity.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug().Str("path", path).Msg("store-opened")
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS eval (
			n      INTEGER NOT NULL,
			key    TEXT    NOT NULL,
			value  INTEGER,
			depth  INTEGER NOT NULL,
			remain INTEGER NOT NULL,
			PRIMARY KEY (n, key)
		)`,
		`CREATE INDEX IF NOT EXISTS eval_thresholds ON eval (n, depth, remain)`,
		`CREATE TABLE IF NOT EXISTS bucket (
			n      INTEGER NOT NULL,
			depth  INTEGER NOT NULL,
			remain INTEGER NOT NULL,
			shard  INTEGER NOT NULL,
			keys   TEXT    NOT NULL,
			PRIMARY KEY (n, depth, remain, shard)
		)`,
		`CREATE TABLE IF NOT EXISTS rollup (
			n         INTEGER NOT NULL,
			remain    INTEGER NOT NULL,
			positions INTEGER NOT NULL,
			wins      INTEGER NOT NULL,
			PRIMARY KEY (n, remain)
		)`,
		`CREATE TABLE IF NOT EXISTS depth_total (
			n         INTEGER NOT NULL,
			depth     INTEGER NOT NULL,
			positions INTEGER NOT NULL,
			PRIMARY KEY (n, depth)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("store migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Path() string { return s.path }

// Lookup returns the record for a canonical key, if any.
func (s *Store) Lookup(n int, key string) (Record, bool, error) {
	var value sql.NullInt64
	var rec Record
	err := s.db.QueryRow(
		`SELECT value, depth, remain FROM eval WHERE n = ? AND key = ?`,
		n, key).Scan(&value, &rec.Depth, &rec.Remain)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	rec.HasValue = value.Valid
	rec.Value = int(value.Int64)
	return rec, true, nil
}

// SetIndexed records a position's bucket coordinates without touching any
// value it may already carry.
func (s *Store) SetIndexed(n int, key string, depth, remain int) error {
	_, err := s.db.Exec(
		`INSERT INTO eval (n, key, depth, remain) VALUES (?, ?, ?, ?)
		 ON CONFLICT (n, key) DO UPDATE SET depth = excluded.depth, remain = excluded.remain`,
		n, key, depth, remain)
	return err
}

// SetValue upserts a position's full classification.
func (s *Store) SetValue(n int, key string, value, depth, remain int) error {
	_, err := s.db.Exec(
		`INSERT INTO eval (n, key, value, depth, remain) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (n, key) DO UPDATE SET
			value = excluded.value, depth = excluded.depth, remain = excluded.remain`,
		n, key, value, depth, remain)
	return err
}

// PromoteDepth moves an existing record to a shallower reachability depth
// without discarding its value.
func (s *Store) PromoteDepth(n int, key string, depth int) error {
	_, err := s.db.Exec(
		`UPDATE eval SET depth = ? WHERE n = ? AND key = ?`, depth, n, key)
	return err
}

// EvalmapRow is a record selected for evalmap export.
type EvalmapRow struct {
	Key   string
	Value int
	Depth int
}

// SelectEvalmap returns all definite, non-draw records passing the depth
// and remain thresholds plus the frontier constraint depth-remain >= diff.
func (s *Store) SelectEvalmap(n, minDepth, minRemain, diff int) ([]EvalmapRow, error) {
	rows, err := s.db.Query(
		`SELECT key, value, depth FROM eval
		 WHERE n = ? AND depth >= ? AND remain >= ?
		   AND value IS NOT NULL AND value != 0
		   AND depth - remain >= ?`,
		n, minDepth, minRemain, diff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EvalmapRow
	for rows.Next() {
		var r EvalmapRow
		if err := rows.Scan(&r.Key, &r.Value, &r.Depth); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PutBucket stores the key list for a depth/remain bucket, fanning out
// over shards when the list exceeds the per-row cap. Stale shards from a
// previous, larger write are removed.
func (s *Store) PutBucket(n, depth, remain int, keys []string) error {
	if _, err := s.db.Exec(
		`DELETE FROM bucket WHERE n = ? AND depth = ? AND remain = ?`,
		n, depth, remain); err != nil {
		return err
	}
	shard := 0
	for start := 0; ; start += shardSize {
		end := min(start+shardSize, len(keys))
		doc, err := json.Marshal(keys[start:end])
		if err != nil {
			return err
		}
		id := BucketID{Depth: depth, Remain: remain, Shard: shard}
		if _, err := s.db.Exec(
			`INSERT INTO bucket (n, depth, remain, shard, keys) VALUES (?, ?, ?, ?, ?)`,
			n, id.Depth, id.Remain, id.Shard, string(doc)); err != nil {
			return err
		}
		shard++
		if end == len(keys) {
			return nil
		}
	}
}

// BucketKeys fans shards back in and returns the bucket's full key list.
// A bucket that was never written yields an empty list.
func (s *Store) BucketKeys(n, depth, remain int) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT keys FROM bucket WHERE n = ? AND depth = ? AND remain = ? ORDER BY shard`,
		n, depth, remain)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var shard []string
		if err := json.Unmarshal([]byte(doc), &shard); err != nil {
			return nil, fmt.Errorf("corrupt bucket d%dr%d: %w", depth, remain, err)
		}
		keys = append(keys, shard...)
	}
	return keys, rows.Err()
}

// HasBucket reports whether the bucket has been written at all, empty or
// not. The builder uses it as its per-depth resume marker.
func (s *Store) HasBucket(n, depth, remain int) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM bucket WHERE n = ? AND depth = ? AND remain = ? LIMIT 1`,
		n, depth, remain).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Rollup returns the remain-layer completion record, if present.
func (s *Store) Rollup(n, remain int) (positions, wins int, ok bool, err error) {
	err = s.db.QueryRow(
		`SELECT positions, wins FROM rollup WHERE n = ? AND remain = ?`,
		n, remain).Scan(&positions, &wins)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, err
	}
	return positions, wins, true, nil
}

func (s *Store) SetRollup(n, remain, positions, wins int) error {
	_, err := s.db.Exec(
		`INSERT INTO rollup (n, remain, positions, wins) VALUES (?, ?, ?, ?)
		 ON CONFLICT (n, remain) DO UPDATE SET positions = excluded.positions, wins = excluded.wins`,
		n, remain, positions, wins)
	return err
}

func (s *Store) DepthTotal(n, depth int) (int, bool, error) {
	var total int
	err := s.db.QueryRow(
		`SELECT positions FROM depth_total WHERE n = ? AND depth = ?`,
		n, depth).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return total, true, nil
}

func (s *Store) SetDepthTotal(n, depth, total int) error {
	_, err := s.db.Exec(
		`INSERT INTO depth_total (n, depth, positions) VALUES (?, ?, ?)
		 ON CONFLICT (n, depth) DO UPDATE SET positions = excluded.positions`,
		n, depth, total)
	return err
}

// HasSize reports whether any classified record exists for the board size.
func (s *Store) HasSize(n int) (bool, error) {
	var one int
	err := s.db.QueryRow(
		`SELECT 1 FROM eval WHERE n = ? AND value IS NOT NULL LIMIT 1`, n).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// CheckSize turns an absent solve into the fatal ErrNoDatabase class.
func (s *Store) CheckSize(n int) error {
	ok, err := s.HasSize(n)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w for n=%d", ErrNoDatabase, n)
	}
	return nil
}
