package game

import (
	"fmt"

	"lukechampine.com/frand"
)

// PolicyKind tags the search policy variants that the strength levels map
// onto.
type PolicyKind uint8

const (
	// PolicyRandom searches to a randomly drawn shallow depth.
	PolicyRandom PolicyKind = iota
	// PolicyHeuristicBounded searches to a fixed shallow depth where the
	// leaf heuristic (or the remain race at depth 1) decides.
	PolicyHeuristicBounded
	// PolicyExactBounded searches deep enough to prove results outright.
	PolicyExactBounded
	// PolicyStoreBacked delegates to the external store at depth 1.
	PolicyStoreBacked
)

// SearchPolicy carries exactly the parameters one ply of move selection
// needs. A policy is selected once per ply from the mover's level and the
// current game phase.
type SearchPolicy struct {
	Kind        PolicyKind
	Depth       int
	UseCache    bool // consult the evalmap behind the memo
	ReloadCache bool // re-read the evalmap archive before searching
	FreshMemo   bool // start from an empty transposition memo
}

func randDepth(lo, hi int) int {
	return lo + frand.Intn(hi-lo+1)
}

// policyForTurn maps the side to move's strength level and the game phase
// (move count, remain) to a search policy.
func (s *Session) policyForTurn() (SearchPolicy, error) {
	n := s.board.Size()
	remain := s.board.Remain(s.pos)
	moves := len(s.history)
	level := s.cfg.Levels[s.turn]
	switch level {
	case 1:
		return SearchPolicy{Kind: PolicyRandom, Depth: randDepth(1, 7), FreshMemo: true}, nil
	case 2:
		switch n {
		case 3:
			return SearchPolicy{Kind: PolicyRandom, Depth: randDepth(6, 10), FreshMemo: true}, nil
		case 4:
			if moves < 8 {
				return SearchPolicy{
					Kind: PolicyHeuristicBounded, Depth: 1,
					UseCache: true, ReloadCache: s.refreshCache,
				}, nil
			}
			if remain > 12 {
				return SearchPolicy{Kind: PolicyRandom, Depth: randDepth(6, 11), FreshMemo: true}, nil
			}
			return SearchPolicy{Kind: PolicyExactBounded, Depth: 30, FreshMemo: true}, nil
		default:
			pol := SearchPolicy{Kind: PolicyHeuristicBounded, UseCache: true, ReloadCache: true}
			switch {
			case moves < 10:
				pol.Depth = 1
			case remain < 15:
				pol.Depth = 10
			default:
				pol.Depth = 4
			}
			return pol, nil
		}
	case 3:
		pol := SearchPolicy{UseCache: true, ReloadCache: s.refreshCache || n == 5}
		switch n {
		case 3:
			pol.Kind = PolicyExactBounded
			pol.Depth = 5
		case 4:
			if remain < 15 {
				pol.Kind = PolicyExactBounded
				pol.Depth = 40
			} else {
				pol.Kind = PolicyRandom
				pol.Depth = randDepth(12, 18)
			}
		default:
			switch {
			case moves < 3:
				pol.Kind = PolicyHeuristicBounded
				pol.Depth = 1
			case remain < 15:
				pol.Kind = PolicyExactBounded
				pol.Depth = 40
			default:
				pol.Kind = PolicyHeuristicBounded
				pol.Depth = 13 - remain/5
			}
		}
		return pol, nil
	case 4:
		return SearchPolicy{Kind: PolicyStoreBacked, Depth: 1}, nil
	}
	return SearchPolicy{}, fmt.Errorf("level %d not defined", level)
}
