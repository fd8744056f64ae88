// Package telemetry implements the logger external collaborator's core-side
// half (§6): a Node that consumes every blackboard topic at its own declared
// rate and appends an opaque recorded frame. The core does not mandate a
// wire format for the recorded stream; cmd/simcore is free to serialise
// Frames however its caller wants.
package telemetry

import (
	"log/slog"

	"github.com/golang/geo/r2"

	"github.com/driveresearch/simcore/internal/blackboard"
	"github.com/driveresearch/simcore/internal/control"
	"github.com/driveresearch/simcore/internal/lidar"
	"github.com/driveresearch/simcore/internal/node"
	"github.com/driveresearch/simcore/internal/obstacle"
	"github.com/driveresearch/simcore/internal/vehicle"
)

// Frame is one recorded sample of every topic the logger could read this
// tick. Fields are zero-valued when nothing has been published yet for
// that topic.
type Frame struct {
	SimTime   float64
	Ego       vehicle.State
	HaveEgo   bool
	Scan      lidar.Scan
	HaveScan  bool
	Cmd       control.Command
	HaveCmd   bool
	Obstacles []obstacle.Placed
}

// Recorder is the logger Node. It holds every recorded Frame for the
// lifetime of the episode; nothing trims this history, and Frames() returns
// it without clearing it.
type Recorder struct {
	name     string
	rateHz   float64
	priority int

	bb     *blackboard.Blackboard
	log    *slog.Logger
	frames []Frame
}

// Config bundles construction-time dependencies for a Recorder.
type Config struct {
	Name       string
	RateHz     float64
	Priority   int
	Blackboard *blackboard.Blackboard
	Log        *slog.Logger
}

// New constructs a Recorder.
func New(cfg Config) *Recorder {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		name:     cfg.Name,
		rateHz:   cfg.RateHz,
		priority: cfg.Priority,
		bb:       cfg.Blackboard,
		log:      log,
	}
}

func (r *Recorder) Name() string    { return r.name }
func (r *Recorder) RateHz() float64 { return r.rateHz }
func (r *Recorder) Priority() int   { return r.priority }
func (r *Recorder) OnInit() error   { return nil }
func (r *Recorder) OnShutdown() error {
	r.log.Debug("recorder shutdown", "frames_recorded", len(r.frames))
	return nil
}

// OnRun snapshots every topic currently on the blackboard into a new Frame.
// The logger is read-only: it never writes to the blackboard and so can run
// at the lowest priority (last) within a tick without affecting any other
// node's view of this tick's data.
func (r *Recorder) OnRun(simTime float64) (node.Status, error) {
	f := Frame{SimTime: simTime}
	if ego, ok := blackboard.Get[vehicle.State](r.bb, blackboard.TopicEgoState); ok {
		f.Ego, f.HaveEgo = ego, true
	}
	// The LiDAR ranges and the obstacle polygons live in buffers their
	// writers reuse every tick, so they are copied into the Frame.
	if scan, ok := blackboard.Get[lidar.Scan](r.bb, blackboard.TopicLidarScan); ok {
		scan.Ranges = append([]float64(nil), scan.Ranges...)
		f.Scan, f.HaveScan = scan, true
	}
	if cmd, ok := blackboard.Get[control.Command](r.bb, blackboard.TopicControlCmd); ok {
		f.Cmd, f.HaveCmd = cmd, true
	}
	if placed, ok := blackboard.Get[[]obstacle.Placed](r.bb, blackboard.TopicObstacles); ok {
		f.Obstacles = make([]obstacle.Placed, len(placed))
		for i, p := range placed {
			p.Polygon = append([]r2.Point(nil), p.Polygon...)
			f.Obstacles[i] = p
		}
	}
	r.frames = append(r.frames, f)
	r.log.Debug("frame recorded", "sim_time", simTime, "have_ego", f.HaveEgo, "have_scan", f.HaveScan)
	return node.OK, nil
}

// Frames returns every frame recorded so far. The returned slice aliases the
// Recorder's internal storage and must not be mutated by the caller.
func (r *Recorder) Frames() []Frame { return r.frames }
