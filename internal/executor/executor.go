// Package executor implements the cooperative rate scheduler (§4.1): it
// drives virtual time, decides node eligibility against each node's own
// period, fires eligible nodes in priority order, and guarantees the
// shutdown sweep on every terminating path.
package executor

import (
	"fmt"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/driveresearch/simcore/internal/blackboard"
	"github.com/driveresearch/simcore/internal/clock"
	"github.com/driveresearch/simcore/internal/node"
)

// epsilon guards node eligibility against floating-point jitter, per §4.1.
const epsilon = 1e-9

// phase is the executor's state machine: CREATED -> INITIALIZED -> RUNNING -> STOPPED.
type phase int

const (
	phaseCreated phase = iota
	phaseInitialized
	phaseRunning
	phaseStopped
)

// StopReason explains why Run returned.
type StopReason string

const (
	StopDuration    StopReason = "duration_exceeded"
	StopTermination StopReason = "termination_signal"
	StopPredicate   StopReason = "stop_condition"
	StopFatalError  StopReason = "fatal_error"
)

// Invocation records one non-OK node outcome; Run returns them in
// Result.Invocations.
type Invocation struct {
	NodeName string
	SimTime  float64
	Status   node.Status
}

// Result is everything Run reports back about how the loop ended.
type Result struct {
	Stop         StopReason
	FatalErr     error // non-nil only when Stop == StopFatalError
	FinalTime    float64
	Invocations  []Invocation
	Counts       map[string]int // per-node invocation count, for fairness checks
}

// scheduled wraps a node.Node with the private next_time bookkeeping §4.1
// specifies the framework (not the node) owns.
type scheduled struct {
	n        node.Node
	period   float64
	nextTime float64
}

// Executor exclusively owns the node list, the Clock, and the Blackboard
// (§3's ownership rule).
type Executor struct {
	clock *clock.Clock
	bb    *blackboard.Blackboard
	nodes []*scheduled
	phase phase
	log   *slog.Logger
}

// New constructs an Executor at phase CREATED.
func New(c *clock.Clock, bb *blackboard.Blackboard, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{clock: c, bb: bb, log: log, phase: phaseCreated}
}

// Register adds n to the schedule. Nodes are kept sorted by ascending
// Priority, ties broken by registration order (Go's sort is stable only if
// we request it; we maintain order via a simple insertion that preserves
// registration order among equal priorities).
func (e *Executor) Register(n node.Node) error {
	if e.phase != phaseCreated {
		return fmt.Errorf("executor: cannot register node %q after initialization", n.Name())
	}
	if n.RateHz() <= 0 {
		return fmt.Errorf("executor: node %q has non-positive rate_hz %v", n.Name(), n.RateHz())
	}
	s := &scheduled{n: n, period: 1 / n.RateHz()}
	insertAt := len(e.nodes)
	for i, existing := range e.nodes {
		if n.Priority() < existing.n.Priority() {
			insertAt = i
			break
		}
	}
	e.nodes = append(e.nodes, nil)
	copy(e.nodes[insertAt+1:], e.nodes[insertAt:])
	e.nodes[insertAt] = s
	return nil
}

// Run drives the simulation until duration_sim is reached, stopCondition
// returns true, the blackboard's termination signal is latched, or a node
// raises a fatal error. It unconditionally calls every on_init'd node's
// OnShutdown exactly once, in reverse priority order, before returning.
func (e *Executor) Run(durationSim float64, stopCondition func() bool) (res Result) {
	res = Result{Counts: make(map[string]int, len(e.nodes))}

	// Every node that reaches OnInit must reach OnShutdown exactly once,
	// on every terminating path including an OnInit failure itself — this
	// is the hard guarantee in §4.1, so the shutdown sweep runs via defer
	// rather than from each individual break below.
	defer func() {
		res.FinalTime = e.clock.Now()
		e.phase = phaseStopped
		if shutdownErr := e.shutdownAll(); shutdownErr != nil {
			e.log.Error("node shutdown errors", "err", shutdownErr)
		}
	}()

	if err := e.initAll(); err != nil {
		res.Stop = StopFatalError
		res.FatalErr = err
		return res
	}
	e.phase = phaseRunning

	for {
		if stopCondition != nil && stopCondition() {
			res.Stop = StopPredicate
			break
		}
		if e.bb.Terminated() {
			res.Stop = StopTermination
			break
		}
		if e.clock.Now() >= durationSim {
			res.Stop = StopDuration
			break
		}

		fatal := e.fireTick(&res)
		if fatal != nil {
			res.Stop = StopFatalError
			res.FatalErr = fatal
			break
		}

		e.clock.Tick()
	}

	return res
}

func (e *Executor) initAll() error {
	var initErrs error
	for _, s := range e.nodes {
		if err := s.n.OnInit(); err != nil {
			initErrs = multierr.Append(initErrs, fmt.Errorf("node %q on_init: %w", s.n.Name(), err))
		}
		now := e.clock.Now()
		s.nextTime = now // every node is eligible at t=0, per §4.1.
	}
	e.phase = phaseInitialized
	return initErrs
}

// fireTick runs every eligible node once, in priority order, and returns a
// non-nil error only for a fatal node error.
func (e *Executor) fireTick(res *Result) error {
	now := e.clock.Now()
	for _, s := range e.nodes {
		if now+epsilon < s.nextTime {
			continue
		}
		status, err := s.n.OnRun(now)
		res.Counts[s.n.Name()]++
		if status != node.OK {
			res.Invocations = append(res.Invocations, Invocation{NodeName: s.n.Name(), SimTime: now, Status: status})
			e.log.Warn("node returned non-OK status", "node", s.n.Name(), "status", status.String(), "sim_time", now)
		}
		s.nextTime = now + s.period
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) shutdownAll() error {
	var shutdownErrs error
	for i := len(e.nodes) - 1; i >= 0; i-- {
		if err := e.nodes[i].n.OnShutdown(); err != nil {
			shutdownErrs = multierr.Append(shutdownErrs, fmt.Errorf("node %q on_shutdown: %w", e.nodes[i].n.Name(), err))
		}
	}
	return shutdownErrs
}
