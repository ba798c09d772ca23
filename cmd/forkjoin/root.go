package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vnykmshr/forkflow/pkg/metrics"
	"github.com/vnykmshr/forkflow/pkg/scheduling/forkjoin"
	"github.com/vnykmshr/forkflow/pkg/scheduling/reporter"
)

const envPrefix = "FORKJOIN"

// settings is the resolved command configuration. Every field can be set by
// flag or by a FORKJOIN_* environment variable.
type settings struct {
	N           int
	Threshold   int
	Work        string
	JoinPolicy  forkjoin.JoinPolicy
	MetricsAddr string
	Report      string
	LogLevel    string
	NoColor     bool
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "forkjoin",
		Short:         "Run divide-and-conquer reductions on a work-stealing pool",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := root.PersistentFlags()
	flags.Int("n", 1_000_000, "sum the integers 0..=n")
	flags.Int("threshold", 1000, "largest range computed without splitting")
	flags.String("work", "sum", "leaf workload: sum or mix (arithmetic-heavy)")
	flags.String("join-policy", "park", "how joiners wait for stolen tasks: park or help")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	flags.String("report", "", "log pool stats on this cron schedule, e.g. '@every 1s'")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.Bool("no-color", false, "disable colored output")

	root.AddCommand(newSumCommand(v), newBenchCommand(v))
	return root
}

// bindFlags makes flags visible through v, including the persistent flags
// inherited from the root command.
func bindFlags(v *viper.Viper, fs ...*pflag.FlagSet) error {
	for _, f := range fs {
		if err := v.BindPFlags(f); err != nil {
			return err
		}
	}
	return nil
}

func loadSettings(v *viper.Viper) (settings, error) {
	policy, err := forkjoin.ParseJoinPolicy(v.GetString("join-policy"))
	if err != nil {
		return settings{}, err
	}
	s := settings{
		N:           v.GetInt("n"),
		Threshold:   v.GetInt("threshold"),
		Work:        v.GetString("work"),
		JoinPolicy:  policy,
		MetricsAddr: v.GetString("metrics-addr"),
		Report:      v.GetString("report"),
		LogLevel:    v.GetString("log-level"),
		NoColor:     v.GetBool("no-color"),
	}
	if s.N < 0 {
		return settings{}, fmt.Errorf("--n must not be negative, got %d", s.N)
	}
	if s.Threshold < 1 {
		return settings{}, fmt.Errorf("--threshold must be positive, got %d", s.Threshold)
	}
	if _, err := leafFor(s.Work); err != nil {
		return settings{}, err
	}
	return s, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// runtimeEnv holds what a command needs around its pools: logging, the
// optional metrics endpoint and the optional reporter.
type runtimeEnv struct {
	settings settings
	logger   *zap.Logger
	registry *prometheus.Registry
	server   *http.Server
}

func newRuntimeEnv(v *viper.Viper) (*runtimeEnv, error) {
	s, err := loadSettings(v)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(s.LogLevel)
	if err != nil {
		return nil, err
	}

	env := &runtimeEnv{settings: s, logger: logger}
	if s.MetricsAddr != "" {
		env.registry = prometheus.NewRegistry()
		env.registry.MustRegister(collectors.NewGoCollector())
		env.server = &http.Server{
			Addr:              s.MetricsAddr,
			Handler:           promhttp.HandlerFor(env.registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := env.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		logger.Info("serving metrics", zap.String("addr", s.MetricsAddr))
	}
	return env, nil
}

func (e *runtimeEnv) poolConfig(name string, parallelism int) forkjoin.Config {
	cfg := forkjoin.Config{
		Name:        name,
		Parallelism: parallelism,
		JoinPolicy:  e.settings.JoinPolicy,
		Logger:      e.logger,
	}
	if e.registry != nil {
		cfg.Metrics = metrics.Config{Enabled: true, Registry: e.registry, Namespace: metrics.DefaultNamespace}
	}
	return cfg
}

// startReporter returns a stop function; it is a no-op without --report.
func (e *runtimeEnv) startReporter(pool *forkjoin.Pool) (func(), error) {
	if e.settings.Report == "" {
		return func() {}, nil
	}
	r, err := reporter.New(pool, reporter.Config{
		Schedule: e.settings.Report,
		Logger:   e.logger,
		Name:     pool.Name(),
	})
	if err != nil {
		return nil, err
	}
	r.Start()
	return func() {
		<-r.Stop()
		r.ReportNow()
	}, nil
}

func (e *runtimeEnv) close() {
	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.server.Shutdown(ctx)
	}
	_ = e.logger.Sync()
}
