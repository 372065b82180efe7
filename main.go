package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/mattn/go-isatty"
	"meshwars/internal/config"
	"meshwars/internal/database"
	"meshwars/internal/game"
	"meshwars/internal/log"
	"meshwars/internal/session"
	"meshwars/internal/universe"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `usage: meshwars [config.yaml]               play on the console
       meshwars dot [config.yaml]           print the sector graph as DOT
       meshwars map <out.svg|png|jpg> [config.yaml]  render the sector graph`

// command is what the process was asked to do
type command struct {
	mode       string // "", "dot" or "map"
	mapPath    string
	configPath string
}

func main() {
	// Set up global panic handler first
	defer func() {
		if r := recover(); r != nil {
			log.Error("GLOBAL PANIC recovered", "error", r, "stack", string(debug.Stack()))
			fmt.Fprintf(os.Stderr, "meshwars crashed. See the log for details.\n")
			os.Exit(1)
		}
	}()

	args := os.Args[1:]
	cmd := command{configPath: "meshwars.yaml"}
	if len(args) > 0 && (args[0] == "-h" || args[0] == "--help") {
		fmt.Println(usage)
		return
	}
	if len(args) > 0 && (args[0] == "dot" || args[0] == "map") {
		cmd.mode = args[0]
		args = args[1:]
	}
	if cmd.mode == "map" {
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		cmd.mapPath = args[0]
		args = args[1:]
	}
	switch {
	case len(args) == 1:
		cmd.configPath = args[0]
	case len(args) > 1:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(cmd); err != nil {
		log.Error("meshwars stopped", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		log.Close()
		os.Exit(1)
	}
	log.Close()
}

func run(cmd command) error {
	cfg, err := config.Load(cmd.configPath)
	if err != nil {
		return err
	}
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		return err
	}
	if cfg.Log.File != "" {
		if err := log.SetFileOutput(cfg.Log.File, cfg.Log.Format); err != nil {
			fmt.Printf("Warning: Could not configure logging to file: %v\n", err)
		}
	}
	log.Info("meshwars starting", "version", version, "commit", commit, "date", date)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	world := game.NewWorld(db, cfg)
	if err := world.EnsureUniverse(ctx); err != nil {
		return err
	}

	switch cmd.mode {
	case "dot":
		pf, err := world.PathFinder(ctx)
		if err != nil {
			return err
		}
		return pf.WriteDOT(os.Stdout)
	case "map":
		return renderMap(ctx, world, cmd.mapPath)
	}

	return play(ctx, session.NewEngine(world, cfg.Session))
}

// renderMap writes the sector graph to path as an image
func renderMap(ctx context.Context, world *game.World, path string) error {
	format, err := universe.ImageFormatFor(path)
	if err != nil {
		return err
	}
	pf, err := world.PathFinder(ctx)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := pf.WriteImage(ctx, f, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info("sector map written", "path", path, "format", format)
	return nil
}

// play relays stdin lines to the engine for a single local commander
func play(ctx context.Context, engine *session.Engine) error {
	identity := "console:" + os.Getenv("USER")
	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())

	resp := engine.Start(ctx, identity)
	fmt.Println(resp.Text)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for resp.Continue {
		if interactive {
			fmt.Print("> ")
		}
		select {
		case <-ctx.Done():
			log.Info("signal received, leaving", "identity", identity)
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			resp = engine.Handle(ctx, identity, line, resp.State)
			fmt.Println(resp.Text)
		}
	}
	return nil
}
