package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agrawal-rohit/palette-auto-generator/internal/config"
	"github.com/agrawal-rohit/palette-auto-generator/internal/logging"
	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization"
	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization/annealing"
	"github.com/agrawal-rohit/palette-auto-generator/internal/optimization/fitness"
)

var (
	genAnchor     string
	genPatience   int
	genDecayRate  float64
	genIterations int
	genSeed       int64
	genPace       time.Duration
	genQuiet      bool
	genJSON       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one palette search and print the result",
	Long: `generate runs a single search in-process. Each iteration is printed as
"iteration fitness temperature" followed by the final palette. Interrupting the
command stops the search and prints the best state reached so far.`,
	Example: `  palette generate --anchor '#3366ff' --decay 90 --seed 42`,
	RunE:    runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&genAnchor, "anchor", config.GetEnv("PALETTE_ANCHOR", "#3366ff"), "Anchor color as #rrggbb")
	generateCmd.Flags().IntVar(&genPatience, "patience", -1, "Iterations without a move before converging (default SEARCH_PATIENCE)")
	generateCmd.Flags().Float64Var(&genDecayRate, "decay", -1, "Cooling rate in percent (default SEARCH_DECAY_RATE)")
	generateCmd.Flags().IntVar(&genIterations, "iterations", 0, "Maximum iterations (default SEARCH_MAX_ITERATIONS)")
	generateCmd.Flags().Int64Var(&genSeed, "seed", int64(config.GetEnvAsInt("PALETTE_SEED", 0)), "Random seed, 0 for time based")
	generateCmd.Flags().DurationVar(&genPace, "pace", 0, "Minimum time between iterations")
	generateCmd.Flags().BoolVarP(&genQuiet, "quiet", "q", false, "Only print the final palette")
	generateCmd.Flags().BoolVar(&genJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	anchor, err := optimization.ParseHex(genAnchor)
	if err != nil {
		return err
	}

	runCfg := cfg.SearchDefaults()
	if cmd.Flags().Changed("patience") {
		runCfg.Patience = genPatience
	}
	if cmd.Flags().Changed("decay") {
		runCfg.DecayRate = genDecayRate
	}
	if cmd.Flags().Changed("iterations") {
		runCfg.MaxIterations = genIterations
	}
	runCfg.Seed = genSeed

	out := cmd.OutOrStdout()
	opts := []annealing.Option{
		annealing.WithLogger(logging.NewZapLogger(logger)),
		annealing.WithPacer(annealing.NewRatePacer(genPace)),
	}
	if !genQuiet && !genJSON {
		opts = append(opts, annealing.WithObserver(&printObserver{out: out}))
	}

	oracle := fitness.Default()
	driver := annealing.NewDriver(oracle, opts...)
	run, err := driver.Start(runCfg, anchor)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snap, err := run.RunToCompletion(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if genJSON {
		return writeResultJSON(out, snap, oracle.Breakdown(snap.Anchor, snap.Vector))
	}
	writeResult(out, snap)
	return nil
}

// printObserver writes one line per completed iteration.
type printObserver struct {
	out io.Writer
}

func (p *printObserver) IterationCompleted(rec optimization.MetricsRecord, accepted bool) {
	fmt.Fprintf(p.out, "%d %.6f %.6f\n", rec.Iteration, rec.Fitness, rec.Temperature)
}

func (p *printObserver) RunFinished(annealing.Snapshot) {}

func writeResult(out io.Writer, snap annealing.Snapshot) {
	summary := annealing.Summarize(snap.Metrics)
	fmt.Fprintf(out, "\nstate: %s after %d iterations (seed %d)\n", snap.State, snap.Iteration, snap.Seed)
	fmt.Fprintf(out, "fitness: final %.4f, best %.4f at %d, mean %.4f\n",
		summary.FinalFitness, summary.BestFitness, summary.BestIteration, summary.MeanFitness)
	fmt.Fprintf(out, "anchor:      %s\n", snap.Anchor.Hex())
	for _, role := range optimization.Roles {
		fmt.Fprintf(out, "%-12s %s\n", role.String()+":", snap.Vector.Color(role).Hex())
	}
}

func writeResultJSON(out io.Writer, snap annealing.Snapshot, scores fitness.Scores) error {
	palette := make(map[string]string, optimization.PaletteSize)
	for _, role := range optimization.Roles {
		palette[role.String()] = snap.Vector.Color(role).Hex()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"state":   snap.State,
		"seed":    snap.Seed,
		"anchor":  snap.Anchor.Hex(),
		"palette": palette,
		"scores":  scores,
		"summary": annealing.Summarize(snap.Metrics),
		"metrics": snap.Metrics,
	})
}
