package config

import (
	"testing"

	"github.com/matryer/is"
)

func TestLoadDefaults(t *testing.T) {
	is := is.New(t)
	var c Config
	is.NoErr(c.Load(nil))
	is.Equal(c.BoardSize, 4)
	is.Equal(c.Level, 3)
	is.Equal(c.OppLevel, 3) // 0 means "same as -level"
	is.Equal(c.Games, 10)
	is.True(!c.Play)
	is.True(!c.Create)
}

func TestLoadFlags(t *testing.T) {
	is := is.New(t)
	var c Config
	is.NoErr(c.Load([]string{"-play", "-n", "3", "-level", "1", "-gote", "2", "-games", "5"}))
	is.True(c.Play)
	is.Equal(c.BoardSize, 3)
	is.Equal(c.Level, 1)
	is.Equal(c.OppLevel, 2)
	is.Equal(c.Games, 5)
}

func TestLoadEnv(t *testing.T) {
	is := is.New(t)
	t.Setenv("DODGEM_N", "5")
	t.Setenv("DODGEM_THREADS", "2")
	var c Config
	is.NoErr(c.Load(nil))
	is.Equal(c.BoardSize, 5)
	is.Equal(c.Threads, 2)
}

func TestLoadBadFlag(t *testing.T) {
	is := is.New(t)
	var c Config
	is.True(c.Load([]string{"-no-such-flag"}) != nil)
}
