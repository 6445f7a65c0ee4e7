package game

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sekika/dodgem/position"
	"github.com/sekika/dodgem/store"
)

// Tally aggregates results over a series of games.
type Tally struct {
	FirstWins  int
	SecondWins int
	Draws      int
}

// PlayGame runs one game to completion between the configured computer
// levels. Termination is guaranteed by the repetition-draw rule.
func (s *Session) PlayGame() error {
	s.Start()
	declared := false
	for s.state == InProgress {
		if err := s.PlayComputerMove(); err != nil {
			return err
		}
		if mv, err := s.LastMove(); err == nil {
			log.Debug().Str("move", mv).Int("ply", len(s.history)-1).Msg("played")
		}
		if zerolog.GlobalLevel() <= zerolog.DebugLevel {
			fmt.Fprint(os.Stderr, s.board.Render(s.pos))
		}
		if !declared && s.winDetermined >= 0 {
			log.Info().Str("side", sideName(s.winDetermined)).Msg("forced-win-proven")
			declared = true
		}
	}
	return nil
}

// PlayGames plays games back to back and returns the aggregate tally.
// Both sides must be computer-controlled.
func PlayGames(cfg GameConfig, db *store.Store, games int) (Tally, error) {
	if cfg.Levels[0] < 1 || cfg.Levels[1] < 1 {
		return Tally{}, fmt.Errorf("levels %d-%d: a series needs computer players on both sides",
			cfg.Levels[0], cfg.Levels[1])
	}
	s, err := NewSession(cfg, db)
	if err != nil {
		return Tally{}, err
	}
	log.Info().Int("n", cfg.Size).Int("games", games).
		Int("level-first", cfg.Levels[0]).Int("level-second", cfg.Levels[1]).
		Msg("series-start")
	var tally Tally
	for i := 0; i < games; i++ {
		if err := s.PlayGame(); err != nil {
			return tally, err
		}
		switch {
		case s.Draw():
			tally.Draws++
		case s.Winner() == position.First:
			tally.FirstWins++
		default:
			tally.SecondWins++
		}
		log.Info().Int("game", i+1).
			Int("first-wins", tally.FirstWins).
			Int("second-wins", tally.SecondWins).
			Int("draws", tally.Draws).
			Msg("series-progress")
	}
	return tally, nil
}

func sideName(side int) string {
	if side == position.First {
		return "First"
	}
	return "Second"
}
