// parcheesi - a Parcheesi rules engine and analysis CLI
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xtaveras38/Parcheesi/pkg/engine"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "play":
		cmdPlay(args)
	case "moves":
		cmdMoves(args)
	case "rollout":
		cmdRollout(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`parcheesi - Parcheesi Rules Engine

Usage: parcheesi <command> [options]

Commands:
  play      Self-play a full game between AI players
  moves     Rank the legal moves of a state for a dice roll
  rollout   Monte Carlo win-probability rollout

Use "parcheesi <command> -h" for command-specific help.

State Format:
  States are the engine's JSON snapshots. Pass a file path or "-"
  for stdin.`)
}

// loadState reads and validates a JSON snapshot from a file or stdin.
func loadState(path string) (*engine.GameState, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}

	var g engine.GameState
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

func parseDice(diceStr string) (engine.DiceResult, error) {
	parts := strings.Split(diceStr, ",")
	if len(parts) != 2 {
		parts = strings.Split(diceStr, "-")
	}
	if len(parts) != 2 {
		return engine.DiceResult{}, fmt.Errorf("dice should be in format '3,1' or '3-1'")
	}

	d1, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	d2, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	d := engine.DiceResult{Die1: d1, Die2: d2}
	if err1 != nil || err2 != nil || !d.Valid() {
		return engine.DiceResult{}, fmt.Errorf("dice values must be 1-6")
	}
	return d, nil
}

func parseColorArg(s string) (engine.Color, error) {
	switch strings.ToLower(s) {
	case "red":
		return engine.Red, nil
	case "blue":
		return engine.Blue, nil
	case "green":
		return engine.Green, nil
	case "yellow":
		return engine.Yellow, nil
	default:
		return 0, fmt.Errorf("unknown color %q (red, blue, green, yellow)", s)
	}
}

func parseDifficultyArg(s string) (engine.Difficulty, error) {
	switch strings.ToLower(s) {
	case "easy":
		return engine.Easy, nil
	case "medium":
		return engine.Medium, nil
	case "hard":
		return engine.Hard, nil
	default:
		return 0, fmt.Errorf("unknown difficulty %q (easy, medium, hard)", s)
	}
}

func cmdPlay(args []string) {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	players := fs.Int("players", 4, "Number of players (2-4)")
	diffStr := fs.String("difficulty", "medium", "AI difficulty: easy, medium, hard")
	seed := fs.Int64("seed", 0, "Dice seed (0 = random)")
	verbose := fs.Bool("v", false, "Print every move")
	fs.Parse(args)

	diff, err := parseDifficultyArg(*diffStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	configs := make([]engine.PlayerConfig, 0, *players)
	for c := engine.Color(0); int(c) < *players && c < engine.NumColors; c++ {
		configs = append(configs, engine.PlayerConfig{
			Name:       c.String(),
			Color:      c,
			AI:         true,
			Difficulty: diff,
		})
	}

	g, err := engine.NewGame(configs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	e := engine.NewEngine(engine.EngineOptions{})
	roller := engine.NewRoller(*seed)
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(rngSeed))

	start := time.Now()
	for g.Phase != engine.PhaseFinished {
		switch g.Phase {
		case engine.PhaseRolling:
			dice := roller.Roll()
			player := g.CurrentPlayer()
			moves, err := g.Roll(dice)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if *verbose {
				if len(moves) == 0 {
					fmt.Printf("turn %3d  %-6s rolls %s, no moves\n", g.Turn-1, player.Color, dice)
				} else {
					fmt.Printf("turn %3d  %-6s rolls %s\n", g.Turn, player.Color, dice)
				}
			}
		case engine.PhaseMoving:
			moves := g.LegalMoves()
			if len(moves) == 0 {
				g.AdvanceTurn()
				continue
			}
			move := e.ChooseMove(rng, g, moves, diff)
			if *verbose {
				fmt.Printf("          %-6s %s token %d: %d -> %d\n",
					g.CurrentPlayer().Color, move.Type, move.TokenIndex, move.From, move.To)
			}
			if err := g.Apply(move); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
	}
	elapsed := time.Since(start)

	winner := g.CheckWinner()
	fmt.Printf("Winner: %s after %d turns (%.2fs, %d captures)\n",
		winner.Color, g.Turn, elapsed.Seconds(), len(g.Captures))
}

func cmdMoves(args []string) {
	fs := flag.NewFlagSet("moves", flag.ExitOnError)
	stateFlag := fs.String("state", "", "State JSON file ('-' for stdin)")
	diceFlag := fs.String("dice", "", "Dice roll (e.g., 3,1 or 3-1)")
	fs.Parse(args)

	if *stateFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: state required")
		fmt.Fprintln(os.Stderr, "Usage: parcheesi moves -state <file> [-dice <roll>]")
		os.Exit(1)
	}

	g, err := loadState(*stateFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// A rolling-phase state needs dice supplied on the command line.
	if g.Phase == engine.PhaseRolling {
		if *diceFlag == "" {
			fmt.Fprintln(os.Stderr, "Error: state is awaiting a roll; pass -dice")
			os.Exit(1)
		}
		dice, err := parseDice(*diceFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if _, err := g.Roll(dice); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	moves := g.LegalMoves()
	if len(moves) == 0 {
		fmt.Println("No legal moves (turn is forfeited)")
		return
	}

	e := engine.NewEngine(engine.EngineOptions{})
	ranked := e.RankMoves(g, moves)

	fmt.Printf("Moves for %s (dice %s):\n", g.CurrentPlayer().Color, g.Dice)
	for i, rm := range ranked {
		m := rm.Move
		fmt.Printf("  %d. %-13s token %d  %3d -> %3d  (value %d)  score %+.3f\n",
			i+1, m.Type, m.TokenIndex, m.From, m.To, m.Value, rm.Score)
	}
}

func cmdRollout(args []string) {
	fs := flag.NewFlagSet("rollout", flag.ExitOnError)
	stateFlag := fs.String("state", "", "State JSON file ('-' for stdin)")
	targetFlag := fs.String("target", "", "Color to report statistics for")
	trials := fs.Int("trials", 1296, "Number of games to simulate")
	workers := fs.Int("workers", 0, "Number of worker goroutines (0 = auto)")
	seed := fs.Int64("seed", 0, "Random seed (0 = random)")
	fs.Parse(args)

	if *stateFlag == "" || *targetFlag == "" {
		fmt.Fprintln(os.Stderr, "Error: state and target required")
		fmt.Fprintln(os.Stderr, "Usage: parcheesi rollout -state <file> -target <color> [-trials N]")
		os.Exit(1)
	}

	g, err := loadState(*stateFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	target, err := parseColorArg(*targetFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	e := engine.NewEngine(engine.EngineOptions{})
	opts := engine.DefaultRolloutOptions()
	opts.Trials = *trials
	opts.Workers = *workers
	opts.Seed = *seed

	start := time.Now()
	result, err := e.Rollout(g, target, opts)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error during rollout: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Rollout (%d trials, %.1fs):\n", result.TrialsCompleted, elapsed.Seconds())
	fmt.Printf("  %s win: %.1f%% ± %.1f%% (95%% CI: ±%.1f%%)\n",
		target, result.TargetWin*100, result.TargetStdDev*100, result.TargetCI*100)
	for c := engine.Color(0); c < engine.NumColors; c++ {
		if g.PlayerByColor(c) == nil {
			continue
		}
		fmt.Printf("  %-6s  %.1f%%\n", c, result.WinProb[c]*100)
	}
	if result.Unfinished > 0 {
		fmt.Printf("  %d trials hit the turn cap\n", result.Unfinished)
	}
}
