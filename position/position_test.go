package position

import (
	"testing"

	"github.com/matryer/is"
)

func TestNewBoard(t *testing.T) {
	is := is.New(t)
	for n := 3; n <= 5; n++ {
		b, err := NewBoard(n)
		is.NoErr(err)
		is.Equal(b.Size(), n)
		is.Equal(b.MaxRemain(), n*(n-1)*2)
	}
	_, err := NewBoard(2)
	is.True(err != nil)
	_, err = NewBoard(6)
	is.True(err != nil)
}

func TestInitial(t *testing.T) {
	is := is.New(t)
	b, _ := NewBoard(3)
	p := b.Initial()
	is.Equal(p[First], []int{0, 3})
	is.Equal(p[Second], []int{7, 8})
	is.Equal(b.Remain(p), b.MaxRemain())

	b4, _ := NewBoard(4)
	p4 := b4.Initial()
	is.Equal(p4[First], []int{0, 4, 8})
	is.Equal(p4[Second], []int{13, 14, 15})
}

func TestLegalTargets(t *testing.T) {
	is := is.New(t)
	b, _ := NewBoard(3)
	p := b.Initial()

	// First's piece on 0 can only step right; 3 is its own piece.
	is.Equal(b.LegalTargets(p, 0, First), []int{1})
	// 3 can step right or down, not up onto 0.
	is.Equal(b.LegalTargets(p, 3, First), []int{4, 6})
	// Second's piece on 7 can step up or left, not onto 8.
	is.Equal(b.LegalTargets(p, 7, Second), []int{4, 6})
	is.Equal(b.LegalTargets(p, 8, Second), []int{5})
}

func TestLegalTargetsExit(t *testing.T) {
	is := is.New(t)
	b, _ := NewBoard(3)

	// First on the rightmost column always sees the exit.
	p := Position{[]int{2}, []int{7}}
	targets := b.LegalTargets(p, 2, First)
	is.Equal(targets[0], Exit)

	// Second on the top row always sees the exit.
	p = Position{[]int{6}, []int{1}}
	targets = b.LegalTargets(p, 1, Second)
	is.Equal(targets[0], Exit)
}

func TestLegalTargetsNeverOccupied(t *testing.T) {
	is := is.New(t)
	for n := 3; n <= 5; n++ {
		b, _ := NewBoard(n)
		p := b.Initial()
		for turn := First; turn <= Second; turn++ {
			for _, sq := range p[turn] {
				for _, target := range b.LegalTargets(p, sq, turn) {
					if target == Exit {
						continue
					}
					is.True(!p.occupied(target))
				}
			}
		}
	}
}

func TestSuccessors(t *testing.T) {
	is := is.New(t)
	b, _ := NewBoard(3)
	p := b.Initial()
	succ := b.Successors(p, First)
	is.Equal(len(succ), 3) // 0→1, 3→4, 3→6
	for _, next := range succ {
		is.Equal(len(next[First]), 2)
		is.Equal(next[Second], []int{7, 8})
	}
}

func TestSuccessorsExitRemovesPiece(t *testing.T) {
	is := is.New(t)
	b, _ := NewBoard(3)
	p := Position{[]int{2}, []int{7}}
	var exited bool
	for _, next := range b.Successors(p, First) {
		if len(next[First]) == 0 {
			exited = true
		}
	}
	is.True(exited)
}

func TestApply(t *testing.T) {
	is := is.New(t)
	b, _ := NewBoard(3)
	p := b.Initial()

	next, err := b.Apply(p, First, 0, 1)
	is.NoErr(err)
	is.Equal(next[First], []int{1, 3})

	_, err = b.Apply(p, First, 0, 3) // occupied by own piece
	is.True(err != nil)
	_, err = b.Apply(p, First, 4, 5) // no piece there
	is.True(err != nil)
	_, err = b.Apply(p, First, 0, Exit) // not on the exit edge
	is.True(err != nil)
}

func TestWinnerByExit(t *testing.T) {
	is := is.New(t)
	b, _ := NewBoard(3)

	finished, winner := b.Winner(Position{[]int{}, []int{7}}, First)
	is.True(finished)
	is.Equal(winner, First)

	finished, winner = b.Winner(Position{[]int{0}, []int{}}, Second)
	is.True(finished)
	is.Equal(winner, Second)

	finished, _ = b.Winner(b.Initial(), First)
	is.True(!finished)
}

func TestWinnerByBlocking(t *testing.T) {
	is := is.New(t)
	b, _ := NewBoard(3)
	// Second's only piece on 3 is walled in by First on 0 and 4. First
	// just moved; blocking the opponent loses, so Second wins.
	p := Position{[]int{0, 4}, []int{3}}
	finished, winner := b.Winner(p, First)
	is.True(finished)
	is.Equal(winner, Second)
}

func TestRemainNonIncreasing(t *testing.T) {
	is := is.New(t)
	for n := 3; n <= 5; n++ {
		b, _ := NewBoard(n)
		// Walk two plies of the full tree from the initial position.
		p := b.Initial()
		r0 := b.Remain(p)
		for _, next := range b.Successors(p, First) {
			r1 := b.Remain(next)
			is.True(r1 <= r0)
			for _, next2 := range b.Successors(next, Second) {
				is.True(b.Remain(next2) <= r1)
			}
		}
	}
}
