// Package eval implements the depth-limited negamax evaluator. Scores are
// always from the perspective of the side to move: at or beyond ±Win the
// result is forced, 0 is a proven or assumed draw, and anything in between
// is a heuristic estimate.
package eval

import (
	"slices"

	"github.com/sekika/dodgem/evalmap"
	"github.com/sekika/dodgem/position"
	"github.com/sekika/dodgem/store"
)

const (
	// Win is the forced-result threshold.
	Win = 100
	// Blocked is returned when the side to move has no legal move at all.
	// Blocking the opponent loses, so the immobilized side wins here; the
	// caller's negamax negation turns the blocking move into a loss for
	// the blocker.
	Blocked = Win + 1
)

type memoEntry struct {
	value int
	depth int
}

// Evaluator searches positions of one board size. It keeps an in-process
// transposition memo, optionally consults a read-only evalmap cache, and
// optionally treats an external store as ground truth. Not safe for
// concurrent use.
type Evaluator struct {
	board position.Board
	memo  map[string]memoEntry
	cache *evalmap.Cache
	db    *store.Store
}

func New(board position.Board) *Evaluator {
	return &Evaluator{board: board, memo: map[string]memoEntry{}}
}

// SetCache installs (or with nil, removes) the evalmap consulted as a
// read-only fallback behind the memo.
func (e *Evaluator) SetCache(c *evalmap.Cache) { e.cache = c }

// UseStore makes every evaluation consult the store first and return its
// definite values verbatim. Pass nil to disable.
func (e *Evaluator) UseStore(s *store.Store) { e.db = s }

// ResetMemo discards everything learned by previous searches.
func (e *Evaluator) ResetMemo() { e.memo = map[string]memoEntry{} }

// Evaluate returns the negamax score of the position with the given side
// to move, searching to the given depth.
func (e *Evaluator) Evaluate(p position.Position, turn, depth int) (int, error) {
	key := position.Key(p, turn)
	if e.db != nil {
		rec, ok, err := e.db.Lookup(e.board.Size(), key)
		if err != nil {
			return 0, err
		}
		if ok && rec.HasValue {
			return rec.Value, nil
		}
	}
	if v, ok := e.lookup(key, depth); ok {
		return v, nil
	}
	if len(p[turn]) == 0 {
		return Win, nil
	}
	if len(p[1-turn]) == 0 {
		return -Win, nil
	}
	succ := e.board.Successors(p, turn)
	if len(succ) == 0 {
		return Blocked, nil
	}
	if depth < 1 {
		return e.leafScore(p, turn), nil
	}

	minEval := Blocked
	for _, next := range succ {
		childKey := position.Key(next, 1-turn)
		v, ok := e.lookup(childKey, depth-1)
		if !ok {
			var err error
			v, err = e.Evaluate(next, 1-turn, depth-1)
			if err != nil {
				return 0, err
			}
			e.memoize(childKey, v, depth-1)
		}
		if v <= -Win {
			// Refutation: this move already forces a win for us.
			return -v, nil
		}
		if v < minEval {
			minEval = v
		}
	}
	return -minEval, nil
}

func (e *Evaluator) lookup(key string, depth int) (int, bool) {
	if m, ok := e.memo[key]; ok && m.depth >= depth {
		return m.value, true
	}
	if e.cache != nil {
		if ent, ok := e.cache.Get(key); ok && ent.Depth >= depth {
			return ent.Value, true
		}
	}
	return 0, false
}

// memoize records a value certified at depth. A record is never replaced
// by one of lower depth.
func (e *Evaluator) memoize(key string, value, depth int) {
	if m, ok := e.memo[key]; ok && m.depth > depth {
		return
	}
	e.memo[key] = memoEntry{value: value, depth: depth}
}

// leafScore is the cheap positional estimate used when the depth budget is
// exhausted: distance-to-exit for both sides, with a bonus for pieces
// directly blocked at their exit square, expressed in the side-to-move's
// negamax sign convention.
func (e *Evaluator) leafScore(p position.Position, turn int) int {
	n := e.board.Size()
	remain := 0
	for _, sq := range p[position.Second] {
		remain -= 1 + sq/n
		if slices.Contains(p[position.First], sq-n) {
			remain--
		}
	}
	for _, sq := range p[position.First] {
		remain += n - sq%n
		if sq%n < n-1 && slices.Contains(p[position.Second], sq+1) {
			remain++
		}
	}
	if turn == position.First {
		return 1 - 2*remain
	}
	return 1 + 2*remain
}
