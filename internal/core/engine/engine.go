// Package engine is the external surface of the prediction core. An Engine owns
// the published arena geometry, its navigation mesh and the navigator session;
// every operation is synchronous and safe for concurrent use.
package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/zeusync/arena/internal/core/arena"
	"github.com/zeusync/arena/internal/core/control"
	"github.com/zeusync/arena/internal/core/linalg"
	"github.com/zeusync/arena/internal/core/navigation"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/simulation"
)

// Operation names used for metrics.
const (
	OpInitialize       = "initialize"
	OpContact          = "contact"
	OpBall             = "ball"
	OpBallTrajectory   = "ball_trajectory"
	OpVehicle          = "vehicle"
	OpVehicleCollision = "vehicle_collision"
	OpBallVehicle      = "ball_vehicle"
	OpAttitude         = "attitude"
	OpPath             = "path"
)

// State describes what the engine currently serves.
type State struct {
	Initialized bool   `json:"initialized" msgpack:"initialized"`
	Mode        string `json:"mode" msgpack:"mode"`
	Map         string `json:"map" msgpack:"map"`
	Triangles   int    `json:"triangles" msgpack:"triangles"`
	MeshNodes   int    `json:"mesh_nodes" msgpack:"mesh_nodes"`
	Fingerprint uint64 `json:"fingerprint" msgpack:"fingerprint"`
}

type Stats struct {
	State    State              `json:"state" msgpack:"state"`
	Builds   uint64             `json:"builds" msgpack:"builds"`
	Analyses uint64             `json:"analyses" msgpack:"analyses"`
	Dropped  uint64             `json:"dropped" msgpack:"dropped"`
	Ops      map[string]OpStats `json:"ops" msgpack:"ops"`
}

type Engine struct {
	// initMu serializes Initialize and Reset; readers only load current.
	initMu  sync.Mutex
	current atomic.Pointer[arenaEntry]
	arenas  *lru.Cache[string, *arenaEntry]
	builds  atomic.Uint64
	closed  atomic.Bool

	navigator *navigation.Navigator
	metrics   *Metrics

	config    Config
	navConfig navigation.Config
	logger    log.Log
}

func New(config Config, navConfig navigation.Config, logger log.Log) *Engine {
	config = config.withDefaults()
	logger = logger.With(log.String("component", "engine"))

	arenas, err := lru.New[string, *arenaEntry](config.MeshCache)
	if err != nil {
		// only reachable with a non-positive size, which withDefaults rules out
		panic(err)
	}

	return &Engine{
		arenas:    arenas,
		navigator: navigation.NewNavigator(nil, navConfig, logger),
		metrics:   NewMetrics(context.Background(), config.MetricsBuffer),
		config:    config,
		navConfig: navConfig,
		logger:    logger,
	}
}

// Initialize selects the arena. Calling it again with the same mode and map is
// a no-op; a different arena is built (or taken from the cache) and published
// atomically, so concurrent operations see either the old or the new arena.
func (e *Engine) Initialize(mode, name string) (err error) {
	start := time.Now()
	defer func() { e.metrics.Record(OpInitialize, time.Since(start), err != nil) }()

	if e.closed.Load() {
		return ErrClosed
	}

	mode, name, err = arena.Resolve(mode, name)
	if err != nil {
		return errors.Wrap(err, "initialize")
	}

	e.initMu.Lock()
	defer e.initMu.Unlock()

	if cur := e.current.Load(); cur != nil && cur.mode == mode && cur.name == name {
		return nil
	}

	entry, cached := e.arenas.Get(arenaKey(mode, name))
	if !cached {
		entry, err = e.build(mode, name)
		if err != nil {
			return err
		}
		e.arenas.Add(arenaKey(mode, name), entry)
	}

	e.current.Store(entry)
	e.navigator.Rebind(entry.mesh)

	e.logger.Info("arena initialized",
		log.String("mode", mode),
		log.String("map", name),
		log.Bool("cached", cached),
		log.Int("triangles", entry.geometry.Len()),
		log.Int("mesh_nodes", entry.mesh.Len()),
		log.Uint64("mesh_key", entry.mesh.Fingerprint()),
		log.Duration("took", time.Since(start)),
	)
	return nil
}

func (e *Engine) build(mode, name string) (*arenaEntry, error) {
	geometry, err := arena.Build(mode, name)
	if err != nil {
		return nil, errors.Wrapf(err, "build arena %s/%s", mode, name)
	}
	e.builds.Add(1)
	return &arenaEntry{
		mode:     mode,
		name:     name,
		geometry: geometry,
		mesh:     navigation.NewMesh(geometry, e.navConfig),
	}, nil
}

// Reset forgets the published arena. Built arenas stay cached.
func (e *Engine) Reset() {
	e.initMu.Lock()
	defer e.initMu.Unlock()

	e.current.Store(nil)
	e.navigator.Rebind(nil)
	e.logger.Info("engine reset")
}

func (e *Engine) Initialized() bool {
	return e.current.Load() != nil
}

// Mode returns the published mode and map, empty before Initialize.
func (e *Engine) Mode() (mode, name string) {
	if cur := e.current.Load(); cur != nil {
		return cur.mode, cur.name
	}
	return "", ""
}

func (e *Engine) State() State {
	cur := e.current.Load()
	if cur == nil {
		return State{}
	}
	return State{
		Initialized: true,
		Mode:        cur.mode,
		Map:         cur.name,
		Triangles:   cur.geometry.Len(),
		MeshNodes:   cur.mesh.Len(),
		Fingerprint: cur.geometry.Fingerprint(),
	}
}

// QuerySurfaceContact probes the arena with a sphere. Before Initialize it
// returns arena.NoContact.
func (e *Engine) QuerySurfaceContact(position linalg.Vec3, radius float64) arena.Ray {
	cur, miss := e.load()
	defer e.metrics.observe(OpContact, time.Now(), &miss)
	if miss {
		return arena.NoContact
	}
	return cur.geometry.Collide(position, radius)
}

// SimulateBall predicts the ball seconds ahead at the configured tick rate.
// Before Initialize it returns the zero Ball.
func (e *Engine) SimulateBall(ball simulation.Ball, seconds float64) simulation.Ball {
	cur, miss := e.load()
	defer e.metrics.observe(OpBall, time.Now(), &miss)
	if miss {
		return simulation.Ball{}
	}
	return simulation.PredictBall(ball, seconds, e.dt(), cur.geometry)
}

// SimulateBallTrajectory returns one frame per tick. A non-positive tickRate
// uses the configured rate. Before Initialize it returns nil.
func (e *Engine) SimulateBallTrajectory(ball simulation.Ball, tickRate, seconds float64) []simulation.Frame {
	cur, miss := e.load()
	defer e.metrics.observe(OpBallTrajectory, time.Now(), &miss)
	if miss {
		return nil
	}
	dt := e.dt()
	if tickRate > 0 {
		dt = 1 / tickRate
	}
	return simulation.BallTrajectory(ball, seconds, dt, cur.geometry)
}

// SimulateVehicle advances the car with idle inputs. OnGround is taken as
// given. Before Initialize it returns the zero Car.
func (e *Engine) SimulateVehicle(car simulation.Car, seconds float64) simulation.Car {
	_, miss := e.load()
	defer e.metrics.observe(OpVehicle, time.Now(), &miss)
	if miss {
		return simulation.Car{}
	}
	return simulation.PredictCar(car, simulation.DriveCommand{}, seconds, e.dt())
}

// SimulateVehicleCollision flies the car until it first touches the arena,
// retrying once with the enlarged radius. Before Initialize it returns the
// zero Car and arena.NoContact.
func (e *Engine) SimulateVehicleCollision(car simulation.Car) (simulation.Car, arena.Ray) {
	cur, miss := e.load()
	defer e.metrics.observe(OpVehicleCollision, time.Now(), &miss)
	if miss {
		return simulation.Car{}, arena.NoContact
	}
	probe := simulation.CollisionProbe{
		Radius:      e.config.CollisionRadius,
		RetryRadius: e.config.CollisionRetryRadius,
	}
	return simulation.PredictCarCollision(car, e.config.CollisionHorizon, 1/e.config.CollisionTickRate, cur.geometry, probe)
}

// SimulateBallVehicleInteraction steps the ball once against the car and the
// arena. The car is not modified. Before Initialize it returns the zero Ball.
func (e *Engine) SimulateBallVehicleInteraction(ball simulation.Ball, car simulation.Car, dt float64) simulation.Ball {
	cur, miss := e.load()
	defer e.metrics.observe(OpBallVehicle, time.Now(), &miss)
	if miss {
		return simulation.Ball{}
	}
	ball.StepWithCar(dt, car, cur.geometry)
	return ball
}

// ComputeAttitudeCommand returns (roll, pitch, yaw) steering orientation
// towards target. It needs no arena and answers before Initialize.
func (e *Engine) ComputeAttitudeCommand(orientation linalg.Mat3, angularVelocity linalg.Vec3, target linalg.Mat3, dt float64) linalg.Vec3 {
	miss := false
	defer e.metrics.observe(OpAttitude, time.Now(), &miss)

	r := control.NewReorient(target)
	r.Gains = e.config.Attitude.Gains
	r.EpsPhi = e.config.Attitude.EpsPhi
	r.EpsOmega = e.config.Attitude.EpsOmega
	r.Orientation = orientation
	r.AngularVelocity = angularVelocity
	r.Step(dt)
	return r.Command()
}

// RequestPath plans a curve from the start pose to the end pose through the
// shared navigator session. Before Initialize it returns an empty Curve.
func (e *Engine) RequestPath(startPosition, startTangent, endPosition, endTangent linalg.Vec3, multiplier float64) navigation.Curve {
	_, miss := e.load()
	defer e.metrics.observe(OpPath, time.Now(), &miss)
	if miss {
		return navigation.Curve{}
	}
	pose := navigation.Pose{Position: startPosition, Tangent: startTangent}
	return e.navigator.Plan(pose, endPosition, endTangent, multiplier)
}

func (e *Engine) Stats() Stats {
	return Stats{
		State:    e.State(),
		Builds:   e.builds.Load(),
		Analyses: e.navigator.Analyses(),
		Dropped:  e.metrics.Dropped(),
		Ops:      e.metrics.Snapshot(),
	}
}

// Close stops the metrics collector. Later Initialize calls fail with
// ErrClosed; queries keep answering.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	return e.metrics.Close()
}

func (e *Engine) load() (*arenaEntry, bool) {
	cur := e.current.Load()
	return cur, cur == nil
}

func (e *Engine) dt() float64 {
	return 1 / e.config.TickRate
}
