package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/wyfcoding/beats/bootstrap"
	"github.com/wyfcoding/beats/verify"

	"github.com/spf13/cobra"
)

var (
	verifyFlags struct {
		seed       uint64
		trials     int
		ops        int
		minN       int
		maxN       int
		valueRange int64
		parallel   int
		jsonOut    bool
	}

	verifyCmd = &cobra.Command{
		Use:   "verify",
		Short: "Run randomized differential checks against a brute-force reference",
		Long: `verify builds random sequences, applies random range adds and queries to
both the segment tree and a brute-force array, and fails on the first disagreement.
Flags override the [verify] section of the config file.`,
		RunE: runVerify,
	}
)

func init() {
	f := verifyCmd.Flags()
	f.Uint64Var(&verifyFlags.seed, "seed", 0, "base random seed; trial i uses seed+i")
	f.IntVar(&verifyFlags.trials, "trials", 0, "number of independent trials")
	f.IntVar(&verifyFlags.ops, "ops", 0, "operations per trial")
	f.IntVar(&verifyFlags.minN, "min-n", 0, "minimum sequence length")
	f.IntVar(&verifyFlags.maxN, "max-n", 0, "maximum sequence length")
	f.Int64Var(&verifyFlags.valueRange, "value-range", 0, "values and deltas are drawn from [-v, v]")
	f.IntVar(&verifyFlags.parallel, "parallel", 0, "trials run concurrently")
	f.BoolVar(&verifyFlags.jsonOut, "json", false, "print the report as JSON")
}

func runVerify(cmd *cobra.Command, _ []string) error {
	b := bootstrap.New("beats", version)
	if err := b.Initialize(configPath, "verify"); err != nil {
		return err
	}

	vc := b.Config.Verify
	opts := verify.Options{
		Seed:       vc.Seed,
		Trials:     vc.Trials,
		Ops:        vc.Ops,
		MinN:       vc.MinN,
		MaxN:       vc.MaxN,
		ValueRange: vc.ValueRange,
		Parallel:   vc.Parallel,
		Logger:     b.Logger.Logger,
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		opts.Seed = verifyFlags.seed
	}
	if flags.Changed("trials") {
		opts.Trials = verifyFlags.trials
	}
	if flags.Changed("ops") {
		opts.Ops = verifyFlags.ops
	}
	if flags.Changed("min-n") {
		opts.MinN = verifyFlags.minN
	}
	if flags.Changed("max-n") {
		opts.MaxN = verifyFlags.maxN
	}
	if flags.Changed("value-range") {
		opts.ValueRange = verifyFlags.valueRange
	}
	if flags.Changed("parallel") {
		opts.Parallel = verifyFlags.parallel
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	report, err := verify.Run(ctx, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if verifyFlags.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "trials=%d ops=%d adds=%d queries=%d mismatches=%d duration=%s\n",
			report.Trials, report.Ops, report.Adds, report.Queries, len(report.Mismatches), report.Duration)
		for _, m := range report.Mismatches {
			fmt.Fprintln(out, m.String())
		}
	}
	return report.Err()
}
