// Package builder constructs the complete game-theoretic solution of a
// Dodgem board size by backward induction: it indexes every reachable
// position into depth/remain buckets, classifies each bucket with bounded
// exact searches escalated over a depth schedule, and persists the result
// to the store. The pipeline is restartable at remain-layer granularity.
package builder

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sekika/dodgem/eval"
	"github.com/sekika/dodgem/position"
	"github.com/sekika/dodgem/store"
)

// bucketSearchDepth is the cheap first-pass bound applied to every bucket
// position before the escalation schedule takes over.
const bucketSearchDepth = 2

type Builder struct {
	board   position.Board
	db      *store.Store
	threads int

	totalPositions int
	totalWins      int
}

func New(board position.Board, db *store.Store) *Builder {
	return &Builder{board: board, db: db, threads: runtime.NumCPU()}
}

// SetThreads caps the worker pool used for per-bucket evaluation.
func (b *Builder) SetThreads(threads int) {
	if threads > 0 {
		b.threads = threads
	}
}

// Run solves the builder's board size end to end: bucket index, one
// remain layer at a time from 1 upward, then the draw-resolution pass.
// Layers already carrying a rollup record are skipped, so an interrupted
// run can simply be re-invoked.
func (b *Builder) Run(ctx context.Context) error {
	n := b.board.Size()
	start := time.Now()
	log.Info().Int("n", n).Msg("solve-start")
	if err := b.buildDepthIndex(ctx); err != nil {
		return err
	}
	for remain := 1; remain <= b.board.MaxRemain(); remain++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.solveRemain(ctx, remain); err != nil {
			return err
		}
	}
	if err := b.resolveDraws(); err != nil {
		return err
	}
	log.Info().Int("n", n).Dur("elapsed", time.Since(start)).Msg("solve-finished")
	return nil
}

// buildDepthIndex seeds the initial position at the top depth bucket and
// walks depth down to 0, bucketing every position reachable in one ply
// from the layer above by its remain value. Positions already recorded at
// a greater depth keep their earlier certainty; ones recorded shallower
// are promoted without discarding their value.
func (b *Builder) buildDepthIndex(ctx context.Context) error {
	n := b.board.Size()
	ini := b.board.Initial()
	maxDepth, maxRemain := b.board.MaxDepth(), b.board.MaxRemain()
	if err := b.db.PutBucket(n, maxDepth, b.board.Remain(ini), []string{position.Key(ini, position.First)}); err != nil {
		return err
	}
	total := 0
	for depth := maxDepth - 1; depth >= 0; depth-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		built, err := b.db.HasBucket(n, depth, maxRemain)
		if err != nil {
			return err
		}
		if !built {
			if err := b.indexDepth(depth); err != nil {
				return err
			}
		}
		sum, ok, err := b.db.DepthTotal(n, depth)
		if err != nil {
			return err
		}
		if !ok {
			for remain := 1; remain <= maxRemain; remain++ {
				keys, err := b.db.BucketKeys(n, depth, remain)
				if err != nil {
					return err
				}
				sum += len(keys)
			}
			if err := b.db.SetDepthTotal(n, depth, sum); err != nil {
				return err
			}
		}
		log.Info().Int("depth", depth).Int("positions", sum).Msg("depth-indexed")
		total += sum
	}
	log.Info().Int("n", n).Int("positions", total).Msg("depth-index-complete")
	return nil
}

func (b *Builder) indexDepth(depth int) error {
	n := b.board.Size()
	maxRemain := b.board.MaxRemain()

	// Candidates are everything one ply away from the layer above, for
	// positions where both sides still have pieces.
	candidates := map[string]struct{}{}
	for remain := 1; remain <= maxRemain; remain++ {
		prev, err := b.db.BucketKeys(n, depth+1, remain)
		if err != nil {
			return err
		}
		for _, key := range prev {
			p, turn, err := position.ParseKey(key)
			if err != nil {
				return err
			}
			if len(p[position.First]) == 0 || len(p[position.Second]) == 0 {
				continue
			}
			for _, next := range b.board.Successors(p, turn) {
				candidates[position.Key(next, 1-turn)] = struct{}{}
			}
		}
	}

	byRemain := make([][]string, maxRemain+1)
	for key := range candidates {
		rec, ok, err := b.db.Lookup(n, key)
		if err != nil {
			return err
		}
		switch {
		case ok && rec.Depth > depth:
			// Already indexed closer to the root; keep that certainty.
		case ok && rec.Depth < depth:
			if err := b.db.PromoteDepth(n, key, depth); err != nil {
				return err
			}
			byRemain[rec.Remain] = append(byRemain[rec.Remain], key)
		case ok:
			byRemain[rec.Remain] = append(byRemain[rec.Remain], key)
		default:
			p, _, err := position.ParseKey(key)
			if err != nil {
				return err
			}
			remain := b.board.Remain(p)
			if err := b.db.SetIndexed(n, key, depth, remain); err != nil {
				return err
			}
			byRemain[remain] = append(byRemain[remain], key)
		}
	}
	for remain := 1; remain <= maxRemain; remain++ {
		if err := b.db.PutBucket(n, depth, remain, byRemain[remain]); err != nil {
			return err
		}
	}
	return nil
}

// schedule picks the re-search depth sequence for an undetermined working
// set: big sets get more of the cheap shallow passes and skip the deep
// expensive ones.
func schedule(undetermined int) []int {
	switch {
	case undetermined < 5000:
		return []int{2, 2, 2, 3, 3, 3, 5, 5, 7, 9}
	case undetermined < 10000:
		return []int{2, 2, 2, 3, 3, 3, 5, 5, 7}
	case undetermined < 100000:
		return []int{2, 2, 2, 3, 3, 3, 5, 5}
	case undetermined < 500000:
		return []int{2, 2, 3, 3, 3, 4, 4}
	case undetermined < 700000:
		return []int{2, 2, 3, 3, 3, 4}
	default:
		return []int{2, 2, 3}
	}
}

func (b *Builder) solveRemain(ctx context.Context, remain int) error {
	n := b.board.Size()
	if positions, wins, ok, err := b.db.Rollup(n, remain); err != nil {
		return err
	} else if ok {
		log.Info().Int("remain", remain).Int("positions", positions).Int("wins", wins).
			Msg("remain-layer-already-solved")
		return nil
	}

	totalPositions, totalWins := 0, 0
	undetermined := map[string]struct{}{}

	for depth := 0; depth <= b.board.MaxDepth(); depth++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		keys, err := b.db.BucketKeys(n, depth, remain)
		if err != nil {
			return err
		}
		totalPositions += len(keys)
		var toEvaluate []string
		for _, key := range keys {
			rec, ok, err := b.db.Lookup(n, key)
			if err != nil {
				return err
			}
			if ok && rec.HasValue {
				if rec.Win(eval.Win) {
					totalWins++
				}
				continue
			}
			toEvaluate = append(toEvaluate, key)
		}
		outcomes, err := b.evaluateKeys(ctx, toEvaluate, bucketSearchDepth)
		if err != nil {
			return err
		}
		for _, key := range toEvaluate {
			out := outcomes[key]
			if !out.Determined() {
				// Make sure the position carries an index record before it
				// enters the working set; the seed position reaches here
				// with only a bucket entry.
				if err := b.db.SetIndexed(n, key, depth, remain); err != nil {
					return err
				}
				undetermined[key] = struct{}{}
				continue
			}
			p, _, err := position.ParseKey(key)
			if err != nil {
				return err
			}
			if err := b.db.SetValue(n, key, out.Score, depth, b.board.Remain(p)); err != nil {
				return err
			}
			if out.Score >= eval.Win || out.Score <= -eval.Win {
				totalWins++
			}
		}
	}

	for _, depth := range schedule(len(undetermined)) {
		if len(undetermined) == 0 {
			break
		}
		log.Info().Int("remain", remain).Int("undetermined", len(undetermined)).
			Int("depth", depth).Msg("re-search")
		working := make([]string, 0, len(undetermined))
		for key := range undetermined {
			working = append(working, key)
		}
		outcomes, err := b.evaluateKeys(ctx, working, depth)
		if err != nil {
			return err
		}
		for key, out := range outcomes {
			if !out.Determined() {
				continue
			}
			delete(undetermined, key)
			rec, _, err := b.db.Lookup(n, key)
			if err != nil {
				return err
			}
			if err := b.db.SetValue(n, key, out.Score, rec.Depth, rec.Remain); err != nil {
				return err
			}
			if out.Score >= eval.Win || out.Score <= -eval.Win {
				totalWins++
			}
		}
	}

	// Whatever survives the schedule is recorded as a draw: true draws
	// and unresolved repetitions both end up here.
	for key := range undetermined {
		rec, _, err := b.db.Lookup(n, key)
		if err != nil {
			return err
		}
		if err := b.db.SetValue(n, key, 0, rec.Depth, rec.Remain); err != nil {
			return err
		}
	}

	if err := b.db.SetRollup(n, remain, totalPositions, totalWins); err != nil {
		return err
	}
	b.totalPositions += totalPositions
	b.totalWins += totalWins
	log.Info().Int("remain", remain).Int("positions", totalPositions).
		Int("wins", totalWins).Int("forced-draws", len(undetermined)).
		Msg("remain-layer-solved")
	return nil
}

// resolveDraws rewrites the known 3×3 repetition positions to draws,
// overriding whatever backward induction produced.
func (b *Builder) resolveDraws() error {
	n := b.board.Size()
	if n != 3 {
		return nil
	}
	for _, key := range position.DrawKeys3() {
		rec, ok, err := b.db.Lookup(n, key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := b.db.SetValue(n, key, 0, rec.Depth, rec.Remain); err != nil {
			return err
		}
		log.Info().Str("key", key).Msg("forced-draw")
	}
	return nil
}
