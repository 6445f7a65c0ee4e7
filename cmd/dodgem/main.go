package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sekika/dodgem/builder"
	"github.com/sekika/dodgem/config"
	"github.com/sekika/dodgem/evalmap"
	"github.com/sekika/dodgem/game"
	"github.com/sekika/dodgem/position"
	"github.com/sekika/dodgem/store"
)

const documentURL = "https://sekika.github.io/dodgem/"

func usage(w io.Writer) {
	io.WriteString(w, "dodgem: play, solve, and inspect the game of Dodgem\n")
	io.WriteString(w, "  -play      play games between two computer levels\n")
	io.WriteString(w, "  -create    build the evaluation database for a board size\n")
	io.WriteString(w, "  -evalmap   export the evalmap archive from the database\n")
	io.WriteString(w, "  -status    show the database's depth/remain distribution\n")
	io.WriteString(w, "  -traverse  walk the solved tree interactively\n")
	io.WriteString(w, "run \"dodgem -h\" for all options\n")
}

func setupLogging(verbose int) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch {
	case verbose >= 4:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case verbose >= 2:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}

// openStore opens the evaluation store, turning the unavailable/missing
// error classes into actionable guidance.
func openStore(cfg *config.Config) *store.Store {
	db, err := store.Open(cfg.StorePath)
	if err != nil {
		fatalStore(cfg, err)
	}
	return db
}

func fatalStore(cfg *config.Config, err error) {
	fmt.Fprintln(os.Stderr, err)
	if errors.Is(err, store.ErrNoDatabase) || errors.Is(err, store.ErrUnavailable) {
		fmt.Fprintf(os.Stderr, "Create the database by running: dodgem -create -n %d\n", cfg.BoardSize)
		fmt.Fprintf(os.Stderr, "For more information, see %sdatabase.html\n", documentURL)
	}
	os.Exit(1)
}

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	setupLogging(cfg.Verbose)

	board, err := position.NewBoard(cfg.BoardSize)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case cfg.Create:
		db := openStore(cfg)
		defer db.Close()
		b := builder.New(board, db)
		b.SetThreads(cfg.Threads)
		if err := b.Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("solve failed")
		}
	case cfg.Evalmap:
		db := openStore(cfg)
		defer db.Close()
		if err := evalmap.Export(db, cfg.EvalmapPath); err != nil {
			fatalStore(cfg, err)
		}
	case cfg.Status:
		db := openStore(cfg)
		defer db.Close()
		b := builder.New(board, db)
		if err := b.Status(os.Stdout, cfg.Verbose >= 4); err != nil {
			fatalStore(cfg, err)
		}
	case cfg.Traverse != "":
		db := openStore(cfg)
		defer db.Close()
		if err := db.CheckSize(cfg.BoardSize); err != nil {
			fatalStore(cfg, err)
		}
		if err := traverse(cfg, board, db); err != nil && err != io.EOF {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case cfg.Play:
		gameCfg := game.GameConfig{
			Size:        cfg.BoardSize,
			Levels:      [2]int{cfg.Level, cfg.OppLevel},
			EvalmapPath: cfg.EvalmapPath,
		}
		var db *store.Store
		if cfg.Level == 4 || cfg.OppLevel == 4 {
			db = openStore(cfg)
			defer db.Close()
		}
		tally, err := game.PlayGames(gameCfg, db, cfg.Games)
		if err != nil {
			if errors.Is(err, store.ErrNoDatabase) || errors.Is(err, store.ErrUnavailable) {
				fatalStore(cfg, err)
			}
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("%dx%d L%d-L%d %d plays: 1st player %d win %d loss %d draw\n",
			cfg.BoardSize, cfg.BoardSize, cfg.Level, cfg.OppLevel, cfg.Games,
			tally.FirstWins, tally.SecondWins, tally.Draws)
	default:
		usage(os.Stdout)
	}
}
