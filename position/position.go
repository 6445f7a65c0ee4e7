// Package position models the Dodgem board: piece placement, legal move
// generation, the remain progress heuristic, and terminal detection. It
// knows nothing about search or persistence; every function here is a pure
// computation over validated state.
package position

import (
	"fmt"
	"slices"
)

// The two sides. First moves rightward and exits off the right edge;
// Second moves upward and exits off the top edge.
const (
	First  = 0
	Second = 1
)

// Exit is the move-target sentinel for a piece leaving the board.
const Exit = -1

var maxDepths = [...]int{20, 30, 50}

// ErrBadSize is returned for board sizes outside 3..5.
var ErrBadSize = fmt.Errorf("board size must be 3, 4, or 5")

// Board is a Dodgem board of a given size. The zero value is not usable;
// construct with NewBoard.
type Board struct {
	n int
}

func NewBoard(n int) (Board, error) {
	if n < 3 || n > 5 {
		return Board{}, fmt.Errorf("%w (got %d)", ErrBadSize, n)
	}
	return Board{n: n}, nil
}

func (b Board) Size() int { return b.n }

// MaxDepth is the configured depth ceiling for solving this board size.
func (b Board) MaxDepth() int { return maxDepths[b.n-3] }

// MaxRemain is the remain value of the initial position, 2n(n-1).
func (b Board) MaxRemain() int { return b.n * (b.n - 1) * 2 }

// Position holds the square indices of each side's pieces, row-major in
// [0, n²), kept sorted ascending. The sides never share a square.
type Position [2][]int

// Initial places First's pieces on the left column (except the top-left
// corner) and Second's pieces on the bottom row (except the bottom-left
// corner).
func (b Board) Initial() Position {
	var p Position
	for i := 0; i < b.n-1; i++ {
		p[First] = append(p[First], b.n*i)
		p[Second] = append(p[Second], b.n*(b.n-1)+1+i)
	}
	return p
}

func (p Position) Copy() Position {
	return Position{slices.Clone(p[First]), slices.Clone(p[Second])}
}

func (p Position) occupied(sq int) bool {
	return slices.Contains(p[First], sq) || slices.Contains(p[Second], sq)
}

// LegalTargets returns the squares the piece on sq may move to, including
// the Exit sentinel when the piece sits on its side's exit edge. Targets
// are filtered on board bounds and occupancy by either side.
func (b Board) LegalTargets(p Position, sq, turn int) []int {
	n := b.n
	var targets []int
	if turn == Second {
		if sq < n {
			targets = append(targets, Exit)
		} else if !p.occupied(sq - n) {
			targets = append(targets, sq-n)
		}
		if sq%n > 0 && !p.occupied(sq-1) {
			targets = append(targets, sq-1)
		}
		if sq%n < n-1 && !p.occupied(sq+1) {
			targets = append(targets, sq+1)
		}
		return targets
	}
	if sq%n == n-1 {
		targets = append(targets, Exit)
	} else if !p.occupied(sq + 1) {
		targets = append(targets, sq+1)
	}
	if sq >= n && !p.occupied(sq-n) {
		targets = append(targets, sq-n)
	}
	if sq < n*(n-1) && !p.occupied(sq+n) {
		targets = append(targets, sq+n)
	}
	return targets
}

// Successors applies every legal target of every piece of turn. Exit moves
// remove the piece from its side rather than relocating it.
func (b Board) Successors(p Position, turn int) []Position {
	var succ []Position
	for _, piece := range p[turn] {
		for _, target := range b.LegalTargets(p, piece, turn) {
			succ = append(succ, p.move(turn, piece, target))
		}
	}
	return succ
}

func (p Position) move(turn, from, to int) Position {
	next := p.Copy()
	side := next[turn]
	i := slices.Index(side, from)
	if to == Exit {
		next[turn] = slices.Delete(side, i, i+1)
		return next
	}
	side[i] = to
	slices.Sort(side)
	return next
}

// Apply moves turn's piece from from to to (which may be Exit), after
// validating the move against LegalTargets.
func (b Board) Apply(p Position, turn, from, to int) (Position, error) {
	if !slices.Contains(p[turn], from) {
		return Position{}, fmt.Errorf("no piece of side %d on square %d", turn, from)
	}
	if !slices.Contains(b.LegalTargets(p, from, turn), to) {
		return Position{}, fmt.Errorf("illegal move %d-%d for side %d", from, to, turn)
	}
	return p.move(turn, from, to), nil
}

// Winner reports whether the game has ended after turn's move, and who
// won. A side that exits all its pieces wins; a side whose opponent has
// just left it without any legal move also wins, since blocking the
// opponent loses the game.
func (b Board) Winner(p Position, turn int) (finished bool, winner int) {
	if len(p[First]) == 0 {
		return true, First
	}
	if len(p[Second]) == 0 {
		return true, Second
	}
	opp := 1 - turn
	for _, piece := range p[opp] {
		if len(b.LegalTargets(p, piece, opp)) > 0 {
			return false, 0
		}
	}
	return true, opp
}

// Remain estimates the total moves left before both sides exit: row
// distance to the top edge for Second, column distance to the right edge
// for First. It never increases along a legal move.
func (b Board) Remain(p Position) int {
	remain := 0
	for _, sq := range p[Second] {
		remain += 1 + sq/b.n
	}
	for _, sq := range p[First] {
		remain += b.n - sq%b.n
	}
	return remain
}
