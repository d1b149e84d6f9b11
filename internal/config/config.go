// Package config loads the process configuration from YAML.
package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/arena/internal/core/arena"
	"github.com/zeusync/arena/internal/core/engine"
	"github.com/zeusync/arena/internal/core/navigation"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/server"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	LogLevel  string            `yaml:"log_level" json:"log_level"`
	Engine    engine.Config     `yaml:"engine" json:"engine"`
	Navigator navigation.Config `yaml:"navigator" json:"navigator"`
	Server    server.Config     `yaml:"server" json:"server"`
}

func Default() Config {
	return Config{
		LogLevel:  log.LevelInfo.String(),
		Engine:    engine.DefaultConfig(),
		Navigator: navigation.DefaultConfig(),
		Server:    server.DefaultServerConfig(),
	}
}

// Load reads a YAML file. Keys missing from the file keep their defaults.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "open config")
	}
	defer func() { _ = f.Close() }()

	config, err := Decode(f)
	if err != nil {
		return Config{}, errors.Wrapf(err, "load %s", path)
	}
	return config, nil
}

// Decode reads YAML over the defaults and validates the result. Unknown keys
// are rejected; an empty document yields the defaults.
func Decode(r io.Reader) (Config, error) {
	config := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(ErrInvalidConfig, err.Error())
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Level returns the parsed log level.
func (c Config) Level() log.Level {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.LevelInfo
	}
	return level
}

func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "log_level: %v", err)
	}

	if err := c.validateEngine(); err != nil {
		return err
	}
	if err := c.validateNavigator(); err != nil {
		return err
	}

	if err := c.Server.Validate(); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "server: %v", err)
	}
	return nil
}

func (c Config) validateEngine() error {
	e := c.Engine
	if e.Mode != "" || e.Map != "" {
		if _, _, err := arena.Resolve(e.Mode, e.Map); err != nil {
			return errors.Wrapf(ErrInvalidConfig, "engine: %s/%s: %v", e.Mode, e.Map, err)
		}
	}

	for _, ref := range e.Preload {
		if _, _, err := engine.ParseArena(ref); err != nil {
			return errors.Wrapf(ErrInvalidConfig, "engine.preload %q: %v", ref, err)
		}
	}

	switch {
	case e.TickRate < 0:
		return errors.Wrapf(ErrInvalidConfig, "engine.tick_rate %g", e.TickRate)
	case e.CollisionHorizon < 0 || e.CollisionTickRate < 0:
		return errors.Wrap(ErrInvalidConfig, "engine: negative collision horizon or rate")
	case e.CollisionRadius < 0 || e.CollisionRetryRadius < 0:
		return errors.Wrap(ErrInvalidConfig, "engine: negative collision radius")
	case e.CollisionRetryRadius > 0 && e.CollisionRetryRadius < e.CollisionRadius:
		return errors.Wrapf(ErrInvalidConfig, "engine.collision_retry_radius %g below collision_radius %g",
			e.CollisionRetryRadius, e.CollisionRadius)
	case e.Attitude.Gains.Kp < 0 || e.Attitude.Gains.Kd < 0:
		return errors.Wrap(ErrInvalidConfig, "engine.attitude: negative gain")
	case e.Attitude.EpsPhi < 0 || e.Attitude.EpsOmega < 0:
		return errors.Wrap(ErrInvalidConfig, "engine.attitude: negative tolerance")
	case e.MeshCache < 0 || e.MetricsBuffer < 0:
		return errors.Wrap(ErrInvalidConfig, "engine: negative cache or buffer size")
	}
	return nil
}

func (c Config) validateNavigator() error {
	n := c.Navigator
	switch {
	case n.AnalysisRadius <= 0:
		return errors.Wrapf(ErrInvalidConfig, "navigator.analysis_radius %g", n.AnalysisRadius)
	case n.PositionTolerance < 0 || n.TangentTolerance < 0:
		return errors.Wrap(ErrInvalidConfig, "navigator: negative tolerance")
	case n.NodeSpacing <= 0:
		return errors.Wrapf(ErrInvalidConfig, "navigator.node_spacing %g", n.NodeSpacing)
	case n.EdgeLength < n.NodeSpacing:
		return errors.Wrapf(ErrInvalidConfig, "navigator.edge_length %g below node_spacing %g", n.EdgeLength, n.NodeSpacing)
	case n.TurnRadius <= 0:
		return errors.Wrapf(ErrInvalidConfig, "navigator.turn_radius %g", n.TurnRadius)
	case n.MaxControls < 0 || n.Workers < 0:
		return errors.Wrap(ErrInvalidConfig, "navigator: negative max_controls or workers")
	}
	return nil
}
