package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vnykmshr/forkflow/pkg/scheduling/forkjoin"
)

// minSpeedup is the speedup the bench command highlights as good.
const minSpeedup = 1.5

func newBenchCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time the same reduction across pool sizes and report speedup",
		Example: `  forkjoin bench --parallelism 1,4 --rounds 5
  forkjoin bench --work mix --parallelism 1,2,4,8`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(v, cmd.Flags(), cmd.InheritedFlags()); err != nil {
				return err
			}
			env, err := newRuntimeEnv(v)
			if err != nil {
				return err
			}
			defer env.close()

			sizes := v.GetIntSlice("parallelism")
			rounds := v.GetInt("rounds")
			if len(sizes) == 0 {
				return fmt.Errorf("--parallelism needs at least one pool size")
			}
			if rounds < 1 {
				return fmt.Errorf("--rounds must be positive, got %d", rounds)
			}
			return runBench(cmd.OutOrStdout(), env, sizes, rounds)
		},
	}
	cmd.Flags().IntSlice("parallelism", []int{1, 4}, "pool sizes to compare; the first is the baseline")
	cmd.Flags().Int("rounds", 3, "timed runs per pool size; the fastest is kept")
	return cmd
}

type benchResult struct {
	parallelism int
	best        time.Duration
	result      uint64
	steals      int64
}

func runBench(out io.Writer, env *runtimeEnv, sizes []int, rounds int) error {
	color.NoColor = color.NoColor || env.settings.NoColor

	results := make([]benchResult, 0, len(sizes))
	for _, size := range sizes {
		res, err := benchSize(env, size, rounds)
		if err != nil {
			return err
		}
		if len(results) > 0 && res.result != results[0].result {
			return fmt.Errorf("parallelism %d produced %d, baseline produced %d",
				size, res.result, results[0].result)
		}
		results = append(results, res)
	}

	good := color.New(color.FgGreen).SprintfFunc()
	poor := color.New(color.FgYellow).SprintfFunc()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WORKERS\tBEST\tSTEALS\tSPEEDUP")
	for _, r := range results {
		speedup := float64(results[0].best) / float64(r.best)
		format := poor
		if speedup > minSpeedup || r.parallelism == results[0].parallelism {
			format = good
		}
		fmt.Fprintf(tw, "%d\t%v\t%d\t%s\n", r.parallelism, r.best, r.steals, format("%.2fx", speedup))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "result %d (work=%s, n=%d, threshold=%d)\n",
		results[0].result, env.settings.Work, env.settings.N, env.settings.Threshold)
	return nil
}

func benchSize(env *runtimeEnv, size, rounds int) (benchResult, error) {
	pool, err := forkjoin.NewSafe(env.poolConfig(fmt.Sprintf("bench-%d", size), size))
	if err != nil {
		return benchResult{}, err
	}
	defer func() { <-pool.Shutdown() }()

	stopReporter, err := env.startReporter(pool)
	if err != nil {
		return benchResult{}, err
	}
	defer stopReporter()

	// Warm-up run, not timed.
	warm, err := reduceOnce(pool, env.settings)
	if err != nil {
		return benchResult{}, err
	}

	res := benchResult{parallelism: pool.Size(), result: warm.result, best: time.Duration(1<<63 - 1)}
	for i := 0; i < rounds; i++ {
		r, err := reduceOnce(pool, env.settings)
		if err != nil {
			return benchResult{}, err
		}
		if r.result != warm.result {
			return benchResult{}, fmt.Errorf("round %d produced %d, want %d", i, r.result, warm.result)
		}
		if r.elapsed < res.best {
			res.best = r.elapsed
		}
	}
	res.steals = pool.Stats().Totals().Steals
	return res, nil
}
