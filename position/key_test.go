package position

import (
	"testing"

	"github.com/matryer/is"
)

func TestKeyCanonical(t *testing.T) {
	is := is.New(t)
	b, _ := NewBoard(3)
	is.Equal(Key(b.Initial(), First), "[[0,3],[7,8],0]")

	// The key is invariant under permutation of either side's piece list.
	p := Position{[]int{3, 0}, []int{8, 7}}
	is.Equal(Key(p, First), "[[0,3],[7,8],0]")
	is.Equal(Key(p, Second), "[[0,3],[7,8],1]")

	// Empty sides encode as empty lists.
	is.Equal(Key(Position{[]int{}, []int{5}}, Second), "[[],[5],1]")
}

func TestKeyPermutationInvariantAcrossTree(t *testing.T) {
	is := is.New(t)
	for n := 3; n <= 5; n++ {
		b, _ := NewBoard(n)
		p := b.Initial()
		for _, next := range b.Successors(p, First) {
			reversed := Position{
				{next[First][1], next[First][0]},
				{next[Second][1], next[Second][0]},
			}
			if n > 3 {
				reversed = Position{
					append([]int{next[First][len(next[First])-1]}, next[First][:len(next[First])-1]...),
					append([]int{next[Second][len(next[Second])-1]}, next[Second][:len(next[Second])-1]...),
				}
			}
			is.Equal(Key(next, Second), Key(reversed, Second))
		}
	}
}

func TestParseKeyRoundTrip(t *testing.T) {
	is := is.New(t)
	for _, key := range []string{
		"[[0,3],[7,8],0]",
		"[[1,3],[7,8],1]",
		"[[],[5],1]",
		"[[2],[],0]",
	} {
		p, turn, err := ParseKey(key)
		is.NoErr(err)
		is.Equal(Key(p, turn), key)
	}
}

func TestParseKeyRejectsGarbage(t *testing.T) {
	is := is.New(t)
	for _, key := range []string{"", "{}", "[[0],[1]]", "[[0],[1],2]", "[0,1,0]"} {
		_, _, err := ParseKey(key)
		is.True(err != nil)
	}
}

func TestDrawKeys3Parse(t *testing.T) {
	is := is.New(t)
	for _, key := range DrawKeys3() {
		p, turn, err := ParseKey(key)
		is.NoErr(err)
		is.Equal(turn, Second)
		is.Equal(Key(p, turn), key)
	}
}

func TestLastMove(t *testing.T) {
	is := is.New(t)
	mv, err := LastMove("[[0,3],[7,8],0]", "[[1,3],[7,8],0]")
	is.NoErr(err)
	is.Equal(mv, "0-1")

	// Second moved between these keys.
	mv, err = LastMove("[[0,3],[7,8],0]", "[[0,3],[4,8],1]")
	is.NoErr(err)
	is.Equal(mv, "7-4")

	// An exit shows as "from-X".
	mv, err = LastMove("[[2],[7],0]", "[[],[7],1]")
	is.NoErr(err)
	is.Equal(mv, "2-X")
}
