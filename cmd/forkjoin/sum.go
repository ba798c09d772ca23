package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vnykmshr/forkflow/pkg/scheduling/forkjoin"
)

func newSumCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sum",
		Short: "Compute one parallel reduction and print the result",
		Example: `  forkjoin sum --n 1000000 --threshold 1000 --parallelism 4
  FORKJOIN_JOIN_POLICY=help forkjoin sum --work mix`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(v, cmd.Flags(), cmd.InheritedFlags()); err != nil {
				return err
			}
			env, err := newRuntimeEnv(v)
			if err != nil {
				return err
			}
			defer env.close()
			return runSum(cmd.OutOrStdout(), env, v.GetInt("parallelism"))
		},
	}
	cmd.Flags().Int("parallelism", 0, "number of workers (0 = GOMAXPROCS)")
	return cmd
}

func runSum(out io.Writer, env *runtimeEnv, parallelism int) error {
	color.NoColor = color.NoColor || env.settings.NoColor

	pool, err := forkjoin.NewSafe(env.poolConfig("sum", parallelism))
	if err != nil {
		return err
	}
	stopReporter, err := env.startReporter(pool)
	if err != nil {
		<-pool.Shutdown()
		return err
	}

	r, err := reduceOnce(pool, env.settings)
	stopReporter()
	stats := pool.Stats()
	<-pool.Shutdown()
	if err != nil {
		return err
	}

	label := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(out, "%s %d\n", label("result:"), r.result)
	fmt.Fprintf(out, "%s %v on %d workers (%s join)\n", label("time:"), r.elapsed, stats.Size, env.settings.JoinPolicy)

	totals := stats.Totals()
	fmt.Fprintf(out, "%s executed=%d forks=%d steals=%d aborts=%d inline=%d parked=%d\n",
		label("tasks:"), totals.Executed, totals.Forks, totals.Steals, totals.StealAborts,
		totals.InlineJoins, totals.ParkedJoins)

	if want, ok := expected(env.settings); ok {
		if r.result != want {
			color.New(color.FgRed).Fprintf(out, "mismatch: want %d\n", want)
			return fmt.Errorf("result %d does not match %d", r.result, want)
		}
		color.New(color.FgGreen).Fprintln(out, "verified against n(n+1)/2")
	}
	return nil
}
