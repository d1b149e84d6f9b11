package engine

import (
	"github.com/zeusync/arena/internal/core/control"
	"github.com/zeusync/arena/internal/core/simulation"
)

type Config struct {
	// Mode and Map are initialized by the server on startup; empty means wait
	// for an explicit initialize request.
	Mode string `yaml:"mode" json:"mode"`
	Map  string `yaml:"map" json:"map"`
	// Preload lists "mode" or "mode/map" arenas built into the cache on startup.
	Preload []string `yaml:"preload" json:"preload"`

	// TickRate is the default simulation rate in ticks per second.
	TickRate float64 `yaml:"tick_rate" json:"tick_rate"`

	// Vehicle collision prediction horizon, rate and probe radii.
	CollisionHorizon     float64 `yaml:"collision_horizon" json:"collision_horizon"`
	CollisionTickRate    float64 `yaml:"collision_tick_rate" json:"collision_tick_rate"`
	CollisionRadius      float64 `yaml:"collision_radius" json:"collision_radius"`
	CollisionRetryRadius float64 `yaml:"collision_retry_radius" json:"collision_retry_radius"`

	Attitude AttitudeConfig `yaml:"attitude" json:"attitude"`

	// MeshCache is the number of arenas kept built for fast re-initialization.
	MeshCache     int `yaml:"mesh_cache" json:"mesh_cache"`
	MetricsBuffer int `yaml:"metrics_buffer" json:"metrics_buffer"`
}

type AttitudeConfig struct {
	Gains    control.Gains `yaml:"gains" json:"gains"`
	EpsPhi   float64       `yaml:"eps_phi" json:"eps_phi"`
	EpsOmega float64       `yaml:"eps_omega" json:"eps_omega"`
}

func DefaultConfig() Config {
	probe := simulation.DefaultCollisionProbe()
	return Config{
		TickRate:             120,
		CollisionHorizon:     3,
		CollisionTickRate:    60,
		CollisionRadius:      probe.Radius,
		CollisionRetryRadius: probe.RetryRadius,
		Attitude: AttitudeConfig{
			Gains:  control.DefaultGains(),
			EpsPhi: control.DefaultEpsPhi,
		},
		MeshCache:     4,
		MetricsBuffer: 4096,
	}
}

// withDefaults fills zero fields so a partially populated Config is usable.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if !(c.TickRate > 0) {
		c.TickRate = def.TickRate
	}
	if !(c.CollisionHorizon > 0) {
		c.CollisionHorizon = def.CollisionHorizon
	}
	if !(c.CollisionTickRate > 0) {
		c.CollisionTickRate = def.CollisionTickRate
	}
	if !(c.CollisionRadius > 0) {
		c.CollisionRadius = def.CollisionRadius
	}
	if !(c.CollisionRetryRadius > 0) {
		c.CollisionRetryRadius = def.CollisionRetryRadius
	}
	if c.Attitude.Gains == (control.Gains{}) {
		c.Attitude.Gains = def.Attitude.Gains
	}
	if !(c.Attitude.EpsPhi > 0) {
		c.Attitude.EpsPhi = def.Attitude.EpsPhi
	}
	if c.MeshCache <= 0 {
		c.MeshCache = def.MeshCache
	}
	if c.MetricsBuffer <= 0 {
		c.MetricsBuffer = def.MetricsBuffer
	}
	return c
}
