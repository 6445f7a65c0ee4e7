// Package config loads the engine configuration from flags, environment
// variables (DODGEM_*), or an optional config file.
package config

import (
	"os"
	"path/filepath"

	"github.com/namsral/flag"
)

type Config struct {
	StorePath   string
	EvalmapPath string
	BoardSize   int
	Level       int
	OppLevel    int
	Games       int
	Verbose     int
	Threads     int

	Play     bool
	Create   bool
	Evalmap  bool
	Status   bool
	Traverse string
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".dodgem")
}

func (c *Config) Load(args []string) error {
	fs := flag.NewFlagSetWithEnvPrefix("dodgem", "DODGEM", flag.ContinueOnError)
	fs.String(flag.DefaultConfigFlagname, "", "path to config file")
	fs.StringVar(&c.StorePath, "store-path", filepath.Join(defaultDir(), "dodgem.db"), "path to the SQLite evaluation database")
	fs.StringVar(&c.EvalmapPath, "evalmap-path", filepath.Join(defaultDir(), "dodgem_eval.json.gz"), "path to the gzipped evalmap archive")
	fs.IntVar(&c.BoardSize, "n", 4, "board size (3-5)")
	fs.IntVar(&c.Level, "level", 3, "strength level for the first player (1-4)")
	fs.IntVar(&c.OppLevel, "gote", 0, "strength level for the second player (0 = same as -level)")
	fs.IntVar(&c.Games, "games", 10, "number of games in play mode")
	fs.IntVar(&c.Verbose, "verbose", 2, "verbosity (1-5)")
	fs.IntVar(&c.Threads, "threads", 0, "solver worker count (0 = all CPUs)")
	fs.BoolVar(&c.Play, "play", false, "play games")
	fs.BoolVar(&c.Create, "create", false, "build the evaluation database")
	fs.BoolVar(&c.Evalmap, "evalmap", false, "export the evalmap archive from the database")
	fs.BoolVar(&c.Status, "status", false, "show database status")
	fs.StringVar(&c.Traverse, "traverse", "", "traverse the database from a position key (\"ini\" for the initial position)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.OppLevel == 0 {
		c.OppLevel = c.Level
	}
	return nil
}
