// Package game is the policy layer that plays Dodgem: it maps strength
// levels to search policies, runs move selection through the evaluator,
// and applies the repetition/draw and move-history bookkeeping.
package game

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/sekika/dodgem/eval"
	"github.com/sekika/dodgem/evalmap"
	"github.com/sekika/dodgem/position"
	"github.com/sekika/dodgem/store"
)

// DefaultDrawRepetition ends the game in a draw once any position has
// occurred this many times.
const DefaultDrawRepetition = 3

var (
	ErrNotStarted  = errors.New("game has not been started")
	ErrFinished    = errors.New("game is already finished")
	ErrHumanToMove = errors.New("side to move is human-controlled")
)

// State is the session's lifecycle phase.
type State uint8

const (
	NotStarted State = iota
	InProgress
	Finished
)

// GameConfig is the immutable configuration of a session. Level 0 marks a
// side as externally controlled (moves arrive via ApplyMove); levels 1-4
// select computer strength.
type GameConfig struct {
	Size           int
	Levels         [2]int
	DrawRepetition int
	EvalmapPath    string
}

// Session owns one game: position, turn, move history, and the evaluator
// state shared by both sides. Not safe for concurrent use.
type Session struct {
	cfg   GameConfig
	board position.Board
	ev    *eval.Evaluator
	db    *store.Store
	cache *evalmap.Cache

	state   State
	pos     position.Position
	turn    int
	history []string

	draw          bool
	winner        int
	winDetermined int // -1 until a forced result is proven at the root
	refreshCache  bool

	partialWarned bool
	status        string
}

// NewSession validates the configuration, loads the evalmap if one is
// configured, and verifies store availability for store-backed levels.
// The store may be nil when no side plays at level 4.
func NewSession(cfg GameConfig, db *store.Store) (*Session, error) {
	board, err := position.NewBoard(cfg.Size)
	if err != nil {
		return nil, err
	}
	for side, level := range cfg.Levels {
		if level < 0 || level > 4 {
			return nil, fmt.Errorf("invalid level %d for side %d", level, side)
		}
	}
	if cfg.DrawRepetition == 0 {
		cfg.DrawRepetition = DefaultDrawRepetition
	}
	s := &Session{
		cfg:           cfg,
		board:         board,
		ev:            eval.New(board),
		db:            db,
		winDetermined: -1,
		refreshCache:  cfg.Levels[0] != cfg.Levels[1],
	}
	if cfg.EvalmapPath != "" {
		if s.cache, err = evalmap.Load(cfg.EvalmapPath, cfg.Size); err != nil {
			return nil, err
		}
	}
	if cfg.Levels[0] == 4 || cfg.Levels[1] == 4 {
		if db == nil {
			return nil, fmt.Errorf("%w: level 4 requires the evaluation store", store.ErrUnavailable)
		}
		if err := db.CheckSize(cfg.Size); err != nil {
			return nil, err
		}
	}
	if db != nil {
		s.checkComplete()
	}
	s.Start()
	return s, nil
}

// checkComplete warns, once per session, when the store exists but lacks
// the initial position. Play continues on in-memory evaluation for the
// missing positions.
func (s *Session) checkComplete() {
	ini := position.Key(s.board.Initial(), position.First)
	_, ok, err := s.db.Lookup(s.cfg.Size, ini)
	if err == nil && !ok && !s.partialWarned {
		log.Warn().Int("n", s.cfg.Size).Msg("evaluation database is not complete")
		s.partialWarned = true
		s.status = "Partial database"
	}
}

// Start resets to the initial position, clears the move history and seeds
// it with the initial key.
func (s *Session) Start() {
	s.pos = s.board.Initial()
	s.turn = position.First
	s.history = []string{position.Key(s.pos, s.turn)}
	s.state = InProgress
	s.draw = false
	s.winner = -1
	s.winDetermined = -1
}

func (s *Session) applyPolicy(pol SearchPolicy) error {
	if pol.FreshMemo {
		s.ev.ResetMemo()
		s.ev.SetCache(nil)
	}
	if pol.UseCache {
		if pol.ReloadCache && s.cfg.EvalmapPath != "" {
			cache, err := evalmap.Load(s.cfg.EvalmapPath, s.cfg.Size)
			if err != nil {
				return err
			}
			s.cache = cache
			s.ev.ResetMemo()
		}
		s.ev.SetCache(s.cache)
	}
	if pol.Kind == PolicyStoreBacked {
		s.ev.UseStore(s.db)
	} else {
		s.ev.UseStore(nil)
	}
	return nil
}

// PlayComputerMove selects and applies a move for the side to move:
// evaluate every successor, keep the minimum (best for the mover), break
// ties against the move history, and choose uniformly among what is left.
func (s *Session) PlayComputerMove() error {
	switch s.state {
	case NotStarted:
		return ErrNotStarted
	case Finished:
		return ErrFinished
	}
	if s.cfg.Levels[s.turn] == 0 {
		return ErrHumanToMove
	}
	pol, err := s.policyForTurn()
	if err != nil {
		return err
	}
	if err := s.applyPolicy(pol); err != nil {
		return err
	}

	succ := s.board.Successors(s.pos, s.turn)
	minEval := eval.Win + 2
	var best []position.Position
	for _, next := range succ {
		childKey := position.Key(next, 1-s.turn)
		v, err := s.ev.Evaluate(next, 1-s.turn, pol.Depth)
		if err != nil {
			return err
		}
		if pol.Depth == 1 && v < eval.Win && v > -eval.Win {
			// Endgame race: with the result not yet decided at depth 1,
			// prefer whichever successor is closest to exiting.
			v = s.board.Remain(next)
		}
		if e := log.Debug(); e.Enabled() {
			e = e.Str("key", childKey).Int("value", v)
			if s.cache != nil {
				if ent, ok := s.cache.Get(childKey); ok {
					e = e.Int("evalmap", ent.Value)
				}
			}
			e.Msg("candidate")
		}
		switch {
		case v < minEval:
			best = append(best[:0], next)
			minEval = v
		case v == minEval:
			best = append(best, next)
		}
	}

	// Prefer moves that do not revisit the history; if every candidate
	// repeats, take the least-repeated ones and declare a draw when the
	// repetition threshold would be reached.
	fresh := lo.Filter(best, func(p position.Position, _ int) bool {
		return !slices.Contains(s.history, position.Key(p, s.turn))
	})
	if len(fresh) > 0 {
		best = fresh
	} else {
		counts := lo.Map(best, func(p position.Position, _ int) int {
			return lo.Count(s.history, position.Key(p, s.turn))
		})
		minCount := slices.Min(counts)
		best = lo.Filter(best, func(_ position.Position, i int) bool {
			return counts[i] == minCount
		})
		if minCount >= s.cfg.DrawRepetition-1 {
			s.state = Finished
			s.draw = true
		}
	}

	if minEval <= -eval.Win {
		s.winDetermined = s.turn
	}
	if minEval >= eval.Win {
		// Losing anyway: delay it by racing the remain metric down.
		s.winDetermined = 1 - s.turn
		remains := lo.Map(best, func(p position.Position, _ int) int {
			return s.board.Remain(p)
		})
		minRemain := slices.Min(remains)
		best = lo.Filter(best, func(_ position.Position, i int) bool {
			return remains[i] == minRemain
		})
	}

	s.commit(best[frand.Intn(len(best))])
	return nil
}

// ApplyMove plays an externally supplied move (from a human or a remote
// caller) for the side to move, validated against the legal targets.
func (s *Session) ApplyMove(from, to int) error {
	switch s.state {
	case NotStarted:
		return ErrNotStarted
	case Finished:
		return ErrFinished
	}
	next, err := s.board.Apply(s.pos, s.turn, from, to)
	if err != nil {
		return err
	}
	s.commit(next)
	return nil
}

func (s *Session) commit(next position.Position) {
	s.pos = next
	s.history = append(s.history, position.Key(s.pos, s.turn))
	if finished, winner := s.board.Winner(s.pos, s.turn); finished {
		s.state = Finished
		s.winner = winner
	}
	s.turn = 1 - s.turn
}

// Presentation-boundary accessors.

func (s *Session) Board() position.Board { return s.board }

func (s *Session) Position() position.Position { return s.pos.Copy() }

func (s *Session) Turn() int { return s.turn }

func (s *Session) History() []string { return slices.Clone(s.history) }

func (s *Session) State() State { return s.state }

func (s *Session) Draw() bool { return s.draw }

func (s *Session) Status() string { return s.status }

// Winner returns the winning side, or -1 for a draw or unfinished game.
func (s *Session) Winner() int { return s.winner }

// WinDetermined returns the side with a proven forced win, or -1 while
// the result is still open.
func (s *Session) WinDetermined() int { return s.winDetermined }

// LastMove formats the most recent move, e.g. "5-6" or "3-X".
func (s *Session) LastMove() (string, error) {
	if len(s.history) < 2 {
		return "", errors.New("no moves played")
	}
	return position.LastMove(s.history[len(s.history)-2], s.history[len(s.history)-1])
}
