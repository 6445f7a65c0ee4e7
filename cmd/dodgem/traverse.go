package main

import (
	"fmt"
	"strconv"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog/log"

	"github.com/sekika/dodgem/config"
	"github.com/sekika/dodgem/evalmap"
	"github.com/sekika/dodgem/position"
	"github.com/sekika/dodgem/store"
)

// traverse walks the solved tree interactively: it prints the current
// node with its store record, lists every child move with store and
// evalmap values, and navigates on numeric input. 0 goes back, an empty
// line quits.
func traverse(cfg *config.Config, board position.Board, db *store.Store) error {
	cache, err := evalmap.Load(cfg.EvalmapPath, cfg.BoardSize)
	if err != nil {
		return err
	}
	ini := position.Key(board.Initial(), position.First)
	key := cfg.Traverse
	if key == "ini" {
		key = ini
	}
	if _, ok, err := db.Lookup(cfg.BoardSize, ini); err == nil && !ok {
		log.Warn().Int("n", cfg.BoardSize).Msg("evaluation database is not complete")
	}
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	var stack []string
	for {
		p, turn, err := position.ParseKey(key)
		if err != nil {
			return err
		}
		rec, ok, err := db.Lookup(cfg.BoardSize, key)
		if err != nil {
			return err
		}
		fmt.Printf("%s to move: %s %s\n", sideName(turn), key, evalSummary(rec, ok, turn))
		fmt.Print(board.Render(p))

		succ := board.Successors(p, turn)
		for i, next := range succ {
			childKey := position.Key(next, 1-turn)
			childRec, childOK, err := db.Lookup(cfg.BoardSize, childKey)
			if err != nil {
				return err
			}
			mv, err := position.LastMove(key, childKey)
			if err != nil {
				return err
			}
			extra := ""
			if ent, ok := cache.Get(childKey); ok {
				extra = fmt.Sprintf(" evalmap: %d", ent.Value)
			}
			fmt.Printf("(%d) %s %s %s%s\n", i+1, mv, childKey, evalSummary(childRec, childOK, 1-turn), extra)
		}
		fmt.Println("(0) Back")

		var pick int
		for {
			line, err := rl.Readline()
			if err != nil {
				return err
			}
			if line == "" {
				return nil
			}
			pick, err = strconv.Atoi(line)
			if err == nil && pick >= 0 && pick <= len(succ) {
				break
			}
		}
		if pick == 0 {
			if len(stack) == 0 {
				return nil
			}
			key = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			continue
		}
		stack = append(stack, key)
		key = position.Key(succ[pick-1], 1-turn)
	}
}

func evalSummary(rec store.Record, ok bool, turn int) string {
	if !ok {
		return "No data"
	}
	if !rec.HasValue {
		return "No eval"
	}
	// Orient the negamax value to the absolute sides: positive for First
	// means First wins when it is First to move, and vice versa.
	oriented := rec.Value
	if turn == position.Second {
		oriented = -oriented
	}
	switch {
	case rec.Value == 0:
		return "0 (Draw)"
	case oriented > 0:
		return fmt.Sprintf("DB: %d (First wins)", rec.Value)
	default:
		return fmt.Sprintf("DB: %d (Second wins)", rec.Value)
	}
}

func sideName(turn int) string {
	if turn == position.First {
		return "First"
	}
	return "Second"
}
