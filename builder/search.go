package builder

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sekika/dodgem/eval"
	"github.com/sekika/dodgem/position"
)

// OutcomeKind classifies the result of a bounded retrograde search.
type OutcomeKind uint8

const (
	OutcomeUndetermined OutcomeKind = iota
	OutcomeWin
	OutcomeLoss
	OutcomeDrawByRepetition
	OutcomeBlockedOpponent
)

// SearchOutcome carries the kind and, for determined outcomes, the score
// to persist (negamax convention, side to move).
type SearchOutcome struct {
	Kind  OutcomeKind
	Score int
}

func (o SearchOutcome) Determined() bool { return o.Kind != OutcomeUndetermined }

func outcomeFromScore(score int) SearchOutcome {
	switch {
	case score >= eval.Blocked:
		return SearchOutcome{Kind: OutcomeBlockedOpponent, Score: score}
	case score >= eval.Win:
		return SearchOutcome{Kind: OutcomeWin, Score: score}
	case score <= -eval.Win:
		return SearchOutcome{Kind: OutcomeLoss, Score: score}
	default:
		return SearchOutcome{Kind: OutcomeDrawByRepetition, Score: score}
	}
}

// pathStack holds the keys visited along the active recursion path only,
// popped on return, so repetition detection never copies the history.
type pathStack struct {
	keys []string
}

func (s *pathStack) contains(key string) bool { return slices.Contains(s.keys, key) }
func (s *pathStack) push(key string)          { s.keys = append(s.keys, key) }
func (s *pathStack) pop()                     { s.keys = s.keys[:len(s.keys)-1] }

// pathSearch is the builder's exact bounded search. Unlike eval.Evaluate
// it has no heuristic leaf and detects repetition along the current
// recursion path: a revisited key is a forced draw for solve purposes.
// Children already classified in the store are taken as ground truth,
// which is what makes the remain-layer ordering a correctness requirement.
func (b *Builder) pathSearch(p position.Position, turn, depth int, path *pathStack) (SearchOutcome, error) {
	key := position.Key(p, turn)
	if path.contains(key) {
		return SearchOutcome{Kind: OutcomeDrawByRepetition, Score: 0}, nil
	}
	if depth < 0 {
		return SearchOutcome{Kind: OutcomeUndetermined}, nil
	}
	if len(p[turn]) == 0 {
		return SearchOutcome{Kind: OutcomeWin, Score: eval.Win}, nil
	}
	if len(p[1-turn]) == 0 {
		return SearchOutcome{Kind: OutcomeLoss, Score: -eval.Win}, nil
	}
	succ := b.board.Successors(p, turn)
	if len(succ) == 0 {
		return SearchOutcome{Kind: OutcomeBlockedOpponent, Score: eval.Blocked}, nil
	}

	path.push(key)
	defer path.pop()

	best := eval.Blocked + 1
	undetermined := false
	for _, next := range succ {
		childKey := position.Key(next, 1-turn)
		rec, ok, err := b.db.Lookup(b.board.Size(), childKey)
		if err != nil {
			return SearchOutcome{}, err
		}
		var score int
		if ok && rec.HasValue {
			score = rec.Value
		} else {
			out, err := b.pathSearch(next, 1-turn, depth-1, path)
			if err != nil {
				return SearchOutcome{}, err
			}
			if !out.Determined() {
				undetermined = true
				continue
			}
			score = out.Score
		}
		if score < best {
			best = score
		}
	}
	if best <= -eval.Win {
		// A losing child refutes everything, determined or not.
		return outcomeFromScore(-best), nil
	}
	if undetermined {
		return SearchOutcome{Kind: OutcomeUndetermined}, nil
	}
	return outcomeFromScore(-best), nil
}

// evaluateKeys runs pathSearch over a set of keys on the worker pool. The
// store is only read here; persistence happens on the caller's side so
// writes stay single-threaded.
func (b *Builder) evaluateKeys(ctx context.Context, keys []string, depth int) (map[string]SearchOutcome, error) {
	out := make(map[string]SearchOutcome, len(keys))
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.threads)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, turn, err := position.ParseKey(key)
			if err != nil {
				return err
			}
			o, err := b.pathSearch(p, turn, depth, &pathStack{})
			if err != nil {
				return err
			}
			mu.Lock()
			out[key] = o
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
