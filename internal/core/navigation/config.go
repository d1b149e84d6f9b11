// Package navigation plans drivable curves over the arena surface: a
// heading-aware navigation mesh, bounded surroundings analysis and OGH curve
// sampling, wrapped in a lock-guarded Navigator session.
package navigation

// Config controls mesh density and when a session re-analyzes its surroundings.
type Config struct {
	// AnalysisRadius bounds the surroundings search around the pose.
	AnalysisRadius float64 `yaml:"analysis_radius" json:"analysis_radius"`
	// A pose that moved less than PositionTolerance and whose unit tangent
	// moved less than TangentTolerance reuses the previous analysis.
	PositionTolerance float64 `yaml:"position_tolerance" json:"position_tolerance"`
	TangentTolerance  float64 `yaml:"tangent_tolerance" json:"tangent_tolerance"`

	NodeSpacing float64 `yaml:"node_spacing" json:"node_spacing"`
	EdgeLength  float64 `yaml:"edge_length" json:"edge_length"`
	TurnRadius  float64 `yaml:"turn_radius" json:"turn_radius"`
	NodeLift    float64 `yaml:"node_lift" json:"node_lift"`
	// MaxControls caps the intermediate nodes a path keeps.
	MaxControls int `yaml:"max_controls" json:"max_controls"`
	Workers     int `yaml:"workers" json:"workers"`
}

func DefaultConfig() Config {
	return Config{
		AnalysisRadius:    6000,
		PositionTolerance: 0.5,
		TangentTolerance:  0.005,
		NodeSpacing:       400,
		EdgeLength:        1000,
		TurnRadius:        300,
		NodeLift:          17,
		MaxControls:       32,
	}
}
