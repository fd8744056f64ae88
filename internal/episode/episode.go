// Package episode assembles one run from on_init to on_shutdown: a Clock, a
// Blackboard, an Executor, and the dynamics/lidar/obstacle/collision nodes
// wired together by internal/config, plus the mapping from how the run
// ended to the final EpisodeResult status.
package episode

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/driveresearch/simcore/internal/blackboard"
	"github.com/driveresearch/simcore/internal/clock"
	"github.com/driveresearch/simcore/internal/collision"
	"github.com/driveresearch/simcore/internal/executor"
	"github.com/driveresearch/simcore/internal/node"
	"github.com/driveresearch/simcore/internal/telemetry"
)

// Status is the final state an episode ends in.
type Status string

const (
	StatusSuccess   Status = "goal_reached"
	StatusCollision Status = "collision"
	StatusOffTrack  Status = "off_track"
	StatusTimeout   Status = "timeout"
	StatusError     Status = "error"
)

// Result is the single structured record an episode produces at shutdown,
// per §6's "episode result layout".
type Result struct {
	Status              Status  `json:"status"`
	DistanceTravelled   float64 `json:"distance_travelled"`
	CheckpointsPassed   int     `json:"checkpoints_passed"`
	MaxLateralDeviation float64 `json:"max_lateral_deviation"`
	DurationSim         float64 `json:"duration_sim"`
}

// Outcome is the in-process result of running one episode: the EpisodeResult
// plus the recorded non-fatal node events the Executor observed, and the
// run's identifier for correlating with external logs.
type Outcome struct {
	RunID       string                `json:"run_id"`
	Result      Result                `json:"result"`
	Invocations []executor.Invocation `json:"invocations,omitempty"`
	Counts      map[string]int        `json:"counts"`
	FatalErr    error                 `json:"-"`
}

// SkippedInvocations returns only the SKIPPED-status entries of Outcome's
// recorded invocations.
func (o Outcome) SkippedInvocations() []executor.Invocation {
	return lo.Filter(o.Invocations, func(inv executor.Invocation, _ int) bool {
		return inv.Status.String() == "SKIPPED"
	})
}

// Episode ties the scheduling primitives to the domain nodes for one run.
type Episode struct {
	runID     uuid.UUID
	clock     *clock.Clock
	bb        *blackboard.Blackboard
	executor  *executor.Executor
	collision *collision.Node
	recorder  *telemetry.Recorder
	log       *slog.Logger
}

// New assembles an Episode from its already-constructed parts. Callers
// outside this package use config.Config.Build rather than calling New
// directly, since Build is responsible for validating and wiring every
// node in the order §4.5 requires.
func New(c *clock.Clock, bb *blackboard.Blackboard, ex *executor.Executor, collisionNode *collision.Node, recorder *telemetry.Recorder, log *slog.Logger) *Episode {
	if log == nil {
		log = slog.Default()
	}
	return &Episode{
		runID:     uuid.New(),
		clock:     c,
		bb:        bb,
		executor:  ex,
		collision: collisionNode,
		recorder:  recorder,
		log:       log,
	}
}

// RunID returns the episode's unique run identifier.
func (e *Episode) RunID() string { return e.runID.String() }

// RegisterExternal adds an external-collaborator node (§6) — typically the
// planner/controller — to the episode's schedule. It must be called before
// Run, since node registration is only accepted while the Executor is in
// its CREATED phase.
func (e *Episode) RegisterExternal(n node.Node) error {
	return e.executor.Register(n)
}

// Recorder returns the telemetry recorder wired into this episode, if any.
func (e *Episode) Recorder() *telemetry.Recorder { return e.recorder }

// Blackboard returns the episode's shared FrameData store, so an external
// collaborator node (registered via RegisterExternal) can be constructed
// against the same instance every in-process node reads and writes.
func (e *Episode) Blackboard() *blackboard.Blackboard { return e.bb }

// Run drives the episode to completion and returns the Outcome. Per
// SPEC_FULL.md §4.1, a fatal node error is folded into the Outcome's Result
// (status "error") rather than returned as a Go error: it is a normal,
// anticipated terminal state of an episode, not a programming failure.
func (e *Episode) Run(durationSim float64, stopCondition func() bool) Outcome {
	res := e.executor.Run(durationSim, stopCondition)

	status := e.resolveStatus(res)
	outcome := Outcome{
		RunID: e.runID.String(),
		Result: Result{
			Status:              status,
			DistanceTravelled:   e.collision.DistanceTravelled(),
			CheckpointsPassed:   e.collision.CheckpointsPassed(),
			MaxLateralDeviation: e.collision.MaxLateralDeviation(),
			DurationSim:         res.FinalTime,
		},
		Invocations: res.Invocations,
		Counts:      res.Counts,
		FatalErr:    res.FatalErr,
	}

	e.log.Info("episode finished",
		"run_id", outcome.RunID,
		"status", outcome.Result.Status,
		"duration_sim", outcome.Result.DurationSim,
		"stop_reason", res.Stop,
	)
	return outcome
}

// resolveStatus maps the executor's StopReason and the collision node's
// terminal Reason into the episode's final status. A fatal node error always
// wins (status error): it means the run state can no longer be trusted
// regardless of what the collision node last observed. Otherwise the
// collision > off_track > goal_reached > timeout tie-break from §4.5 applies.
func (e *Episode) resolveStatus(res executor.Result) Status {
	if res.Stop == executor.StopFatalError {
		return StatusError
	}
	switch e.collision.Reason() {
	case collision.ReasonCollision:
		return StatusCollision
	case collision.ReasonOffTrack:
		return StatusOffTrack
	case collision.ReasonGoalReached:
		return StatusSuccess
	default:
		return StatusTimeout
	}
}
