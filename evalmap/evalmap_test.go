package evalmap

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/matryer/is"

	"github.com/sekika/dodgem/position"
	"github.com/sekika/dodgem/store"
)

func TestExportLoadRoundTrip(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "dodgem.db"))
	is.NoErr(err)
	defer db.Close()

	// depth 18 - remain 8 = 10 clears the 3×3 frontier constraint of 3.
	is.NoErr(db.SetValue(3, "[[1,3],[7,8],1]", 100, 18, 8))
	is.NoErr(db.SetValue(3, "[[0,4],[7,8],1]", -100, 16, 10))
	// Below the minDepth threshold of 10.
	is.NoErr(db.SetValue(3, "[[2,3],[4,8],0]", 100, 9, 8))
	// Draw values never export.
	is.NoErr(db.SetValue(3, "[[0,3],[7,8],0]", 0, 18, 8))

	path := filepath.Join(dir, "eval.json.gz")
	is.NoErr(Export(db, path))

	c, err := Load(path, 3)
	is.NoErr(err)
	is.Equal(c.Size(), 3)

	ent, ok := c.Get("[[1,3],[7,8],1]")
	is.True(ok)
	is.Equal(ent, Entry{Value: 100, Depth: 18})
	ent, ok = c.Get("[[0,4],[7,8],1]")
	is.True(ok)
	is.Equal(ent, Entry{Value: -100, Depth: 16})

	_, ok = c.Get("[[2,3],[4,8],0]")
	is.True(!ok)
	_, ok = c.Get("[[0,3],[7,8],0]")
	is.True(!ok)
}

func TestExportPinsForcedDraws(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "dodgem.db"))
	is.NoErr(err)
	defer db.Close()

	// Any record at all marks the size as solved.
	is.NoErr(db.SetValue(3, "[[1,3],[7,8],1]", 100, 18, 8))

	path := filepath.Join(dir, "eval.json.gz")
	is.NoErr(Export(db, path))

	c, err := Load(path, 3)
	is.NoErr(err)
	board, _ := position.NewBoard(3)
	for _, key := range position.DrawKeys3() {
		ent, ok := c.Get(key)
		is.True(ok)
		is.Equal(ent, Entry{Value: 0, Depth: board.MaxDepth()})
	}
}

func TestLoadMissingSize(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "dodgem.db"))
	is.NoErr(err)
	defer db.Close()

	path := filepath.Join(dir, "eval.json.gz")
	is.NoErr(Export(db, path))

	// An unsolved size exports an empty map, which still loads.
	c, err := Load(path, 4)
	is.NoErr(err)
	is.Equal(c.Len(), 0)
}

func TestLoadMissingFile(t *testing.T) {
	is := is.New(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.json.gz"), 3)
	is.True(err != nil)
	is.True(!errors.Is(err, ErrMissingSize))
}
