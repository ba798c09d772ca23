package forkjoin

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"go.uber.org/zap"

	"github.com/vnykmshr/forkflow/pkg/common/validation"
	"github.com/vnykmshr/forkflow/pkg/metrics"
)

const module = "forkjoin"

// NoStealRetries disables repeated victim scans when set as
// Config.MaxStealRetries.
const NoStealRetries = -1

// JoinPolicy selects what a worker does while it waits for a task that is
// running elsewhere.
type JoinPolicy int

const (
	// JoinPark blocks the worker on the task's barrier.
	JoinPark JoinPolicy = iota

	// JoinHelp steals and runs other tasks while waiting, parking briefly
	// between steal attempts.
	JoinHelp
)

func (p JoinPolicy) String() string {
	switch p {
	case JoinPark:
		return "park"
	case JoinHelp:
		return "help"
	default:
		return fmt.Sprintf("JoinPolicy(%d)", int(p))
	}
}

// ParseJoinPolicy accepts "park" or "help".
func ParseJoinPolicy(s string) (JoinPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "park":
		return JoinPark, nil
	case "help":
		return JoinHelp, nil
	default:
		return JoinPark, fmt.Errorf("unknown join policy %q (want park or help)", s)
	}
}

// Config holds configuration options for creating a pool.
type Config struct {
	// Name identifies the pool in logs and metrics.
	Name string `default:"forkjoin"`

	// Parallelism is the number of workers. Zero means runtime.GOMAXPROCS(0).
	Parallelism int

	// DequeCapacity is the initial size of each worker deque. Deques grow
	// on demand.
	DequeCapacity int `default:"64"`

	// JoinPolicy controls waiting for stolen tasks. Defaults to JoinPark.
	JoinPolicy JoinPolicy

	// MaxStealRetries bounds how many extra passes over the victims a thief
	// makes when a pass lost at least one steal race. Zero selects the
	// default of 4; use NoStealRetries for a single pass.
	MaxStealRetries int `default:"4"`

	// IdleBackoffInitial and IdleBackoffMax bound the exponential sleep of
	// a worker that found nothing to run.
	IdleBackoffInitial time.Duration `default:"50us"`
	IdleBackoffMax     time.Duration `default:"5ms"`

	// HelpWaitInterval is how long a helping joiner parks between steal
	// attempts.
	HelpWaitInterval time.Duration `default:"100us"`

	// DisableRestart leaves a lost worker dead and marks the pool degraded
	// instead of starting a replacement.
	DisableRestart bool

	// Logger receives lifecycle events. Defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics registers a Prometheus collector for the pool when enabled.
	Metrics metrics.Config

	// OnWorkerStart is called when a worker goroutine starts, including
	// replacements.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker goroutine exits.
	OnWorkerStop func(workerID int)

	// PanicHandler is called with the value recovered from a panicking
	// task. The task fails with a *PanicError either way.
	PanicHandler func(taskID uint64, recovered any)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() Config {
	var cfg Config
	_ = cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() error {
	if err := defaults.Set(c); err != nil {
		return err
	}
	if c.Parallelism == 0 {
		c.Parallelism = runtime.GOMAXPROCS(0)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return nil
}

// stealRetries is MaxStealRetries with NoStealRetries mapped to zero.
func (c *Config) stealRetries() int {
	if c.MaxStealRetries < 0 {
		return 0
	}
	return c.MaxStealRetries
}

// Validate checks a configuration after defaults have been applied.
func (c *Config) Validate() error {
	if err := validation.ValidateNotEmpty(module, "Name", c.Name); err != nil {
		return err
	}
	if err := validation.ValidatePositive(module, "Parallelism", c.Parallelism); err != nil {
		return err
	}
	if err := validation.ValidatePositive(module, "DequeCapacity", c.DequeCapacity); err != nil {
		return err
	}
	if err := validation.ValidateOneOf(module, "JoinPolicy", c.JoinPolicy, JoinPark, JoinHelp); err != nil {
		return err
	}
	if err := validation.ValidateAtLeast(module, "MaxStealRetries", c.MaxStealRetries, NoStealRetries); err != nil {
		return err
	}
	if err := validation.ValidatePositiveDuration(module, "IdleBackoffInitial", c.IdleBackoffInitial); err != nil {
		return err
	}
	if err := validation.ValidateDurationAtLeast(module, "IdleBackoffMax", c.IdleBackoffMax,
		c.IdleBackoffInitial, "IdleBackoffInitial"); err != nil {
		return err
	}
	return validation.ValidatePositiveDuration(module, "HelpWaitInterval", c.HelpWaitInterval)
}
