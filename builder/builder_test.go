package builder

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/matryer/is"

	"github.com/sekika/dodgem/position"
	"github.com/sekika/dodgem/store"
)

func solved3(t *testing.T) (position.Board, *store.Store) {
	t.Helper()
	is := is.New(t)
	board, err := position.NewBoard(3)
	is.NoErr(err)
	db, err := store.Open(filepath.Join(t.TempDir(), "dodgem.db"))
	is.NoErr(err)
	t.Cleanup(func() { db.Close() })

	b := New(board, db)
	b.SetThreads(2)
	is.NoErr(b.Run(context.Background()))
	return board, db
}

func TestSchedule(t *testing.T) {
	is := is.New(t)
	is.Equal(schedule(100), []int{2, 2, 2, 3, 3, 3, 5, 5, 7, 9})
	is.Equal(schedule(6000), []int{2, 2, 2, 3, 3, 3, 5, 5, 7})
	is.Equal(schedule(50000), []int{2, 2, 2, 3, 3, 3, 5, 5})
	is.Equal(schedule(200000), []int{2, 2, 3, 3, 3, 4, 4})
	is.Equal(schedule(600000), []int{2, 2, 3, 3, 3, 4})
	is.Equal(schedule(1000000), []int{2, 2, 3})
}

func TestOutcomeFromScore(t *testing.T) {
	is := is.New(t)
	is.Equal(outcomeFromScore(100).Kind, OutcomeWin)
	is.Equal(outcomeFromScore(101).Kind, OutcomeBlockedOpponent)
	is.Equal(outcomeFromScore(-100).Kind, OutcomeLoss)
	is.Equal(outcomeFromScore(-101).Kind, OutcomeLoss)
	is.Equal(outcomeFromScore(0).Kind, OutcomeDrawByRepetition)
	is.True(!(SearchOutcome{Kind: OutcomeUndetermined}).Determined())
	is.True(outcomeFromScore(100).Determined())
}

func TestPathSearchTerminals(t *testing.T) {
	is := is.New(t)
	board, err := position.NewBoard(3)
	is.NoErr(err)
	db, err := store.Open(filepath.Join(t.TempDir(), "dodgem.db"))
	is.NoErr(err)
	defer db.Close()
	b := New(board, db)

	out, err := b.pathSearch(position.Position{{}, {3}}, position.First, 2, &pathStack{})
	is.NoErr(err)
	is.Equal(out.Kind, OutcomeWin)

	out, err = b.pathSearch(position.Position{{}, {3}}, position.Second, 2, &pathStack{})
	is.NoErr(err)
	is.Equal(out.Kind, OutcomeLoss)

	// Second's piece on 3 has First pieces above and to the right.
	out, err = b.pathSearch(position.Position{{0, 4}, {3}}, position.Second, 2, &pathStack{})
	is.NoErr(err)
	is.Equal(out.Kind, OutcomeBlockedOpponent)

	out, err = b.pathSearch(board.Initial(), position.First, -1, &pathStack{})
	is.NoErr(err)
	is.True(!out.Determined())
}

func TestEvaluateKeysUsesStoreValues(t *testing.T) {
	is := is.New(t)
	board, err := position.NewBoard(3)
	is.NoErr(err)
	db, err := store.Open(filepath.Join(t.TempDir(), "dodgem.db"))
	is.NoErr(err)
	defer db.Close()
	b := New(board, db)
	b.SetThreads(2)

	// Mark every successor of the initial position as a loss for the side
	// to move; the bounded search then proves the initial position won.
	p := board.Initial()
	for _, next := range board.Successors(p, position.First) {
		key := position.Key(next, position.Second)
		is.NoErr(db.SetValue(3, key, -100, 19, board.Remain(next)))
	}

	key := position.Key(p, position.First)
	outcomes, err := b.evaluateKeys(context.Background(), []string{key}, 0)
	is.NoErr(err)
	is.Equal(outcomes[key].Kind, OutcomeWin)
	is.Equal(outcomes[key].Score, 100)
}

func TestRunSolvesThreeByThree(t *testing.T) {
	if testing.Short() {
		t.Skip("full 3×3 solve")
	}
	is := is.New(t)
	board, db := solved3(t)

	// Every remain level rolls up and every position in it gets a value.
	total, totalWins := 0, 0
	for remain := 1; remain <= board.MaxRemain(); remain++ {
		positions, wins, ok, err := db.Rollup(3, remain)
		is.NoErr(err)
		is.True(ok)
		is.True(wins <= positions)
		total += positions
		totalWins += wins
	}
	is.True(total > 0)
	is.True(totalWins > 0)
	// Backward induction decides every 3×3 position; the rollups are
	// written before the draw rewrite, so the win sum covers them all.
	is.True(totalWins <= total)

	// The only zero-value records are the three rewritten draws.
	draws := 0
	for remain := 1; remain <= board.MaxRemain(); remain++ {
		for depth := 0; depth <= board.MaxDepth(); depth++ {
			keys, err := db.BucketKeys(3, depth, remain)
			is.NoErr(err)
			for _, key := range keys {
				rec, ok, err := db.Lookup(3, key)
				is.NoErr(err)
				if ok && rec.HasValue && rec.Value == 0 {
					draws++
				}
			}
		}
	}
	is.Equal(draws, len(position.DrawKeys3()))

	// The initial position is classified.
	rec, ok, err := db.Lookup(3, position.Key(board.Initial(), position.First))
	is.NoErr(err)
	is.True(ok)
	is.True(rec.HasValue)
	is.Equal(rec.Remain, board.MaxRemain())
	is.Equal(rec.Depth, board.MaxDepth())

	// The forced-draw rewrite ran.
	for _, key := range position.DrawKeys3() {
		rec, ok, err := db.Lookup(3, key)
		is.NoErr(err)
		is.True(ok)
		is.True(rec.HasValue)
		is.Equal(rec.Value, 0)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("full 3×3 solve")
	}
	is := is.New(t)
	board, db := solved3(t)

	before, _, _, err := db.Rollup(3, board.MaxRemain())
	is.NoErr(err)

	b := New(board, db)
	b.SetThreads(2)
	is.NoErr(b.Run(context.Background()))

	after, _, _, err := db.Rollup(3, board.MaxRemain())
	is.NoErr(err)
	is.Equal(before, after)
}

func TestStatusReport(t *testing.T) {
	if testing.Short() {
		t.Skip("full 3×3 solve")
	}
	is := is.New(t)
	board, db := solved3(t)

	b := New(board, db)
	var buf bytes.Buffer
	is.NoErr(b.Status(&buf, false))
	is.True(buf.Len() > 0)

	var csvBuf bytes.Buffer
	is.NoErr(b.Status(&csvBuf, true))
	is.True(bytes.Contains(csvBuf.Bytes(), []byte(",")))

	// An unsolved size reports the missing database instead.
	other, err := position.NewBoard(4)
	is.NoErr(err)
	err = New(other, db).Status(&buf, false)
	is.True(err != nil)
}
