package main

import (
	"math"

	"github.com/pthm-cable/circuit/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the tuned parameter set, defaulting to the values in cfg.
func NewParamVector(cfg *config.Config) *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Evolution
			{Name: "mutation_probability", Path: "policy.mutation_probability", Min: 0.01, Max: 0.6, Default: cfg.Policy.MutationProbability},
			{Name: "keep_fraction", Path: "population.keep_fraction", Min: 0.02, Max: 0.5, Default: cfg.Population.KeepFraction},
			{Name: "learning_rate", Path: "policy.learning_rate", Min: 0.001, Max: 0.3, Default: cfg.Policy.LearningRate},
			// Handling
			{Name: "acceleration_step", Path: "vehicle.acceleration_step", Min: 0.02, Max: 1.0, Default: cfg.Vehicle.AccelerationStep},
			{Name: "turn_step", Path: "vehicle.turn_step", Min: 0.1, Max: 5.0, Default: cfg.Vehicle.TurnStep},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = math.Max(spec.Min, math.Min(spec.Max, v[i]))
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg and refreshes its
// derived values. Order must match Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	cfg.Policy.MutationProbability = clamped[0]
	cfg.Population.KeepFraction = clamped[1]
	cfg.Policy.LearningRate = clamped[2]
	cfg.Vehicle.AccelerationStep = clamped[3]
	cfg.Vehicle.TurnStep = clamped[4]

	cfg.Recompute()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Policy.MutationProbability,
		cfg.Population.KeepFraction,
		cfg.Policy.LearningRate,
		cfg.Vehicle.AccelerationStep,
		cfg.Vehicle.TurnStep,
	}
}

// EvalRecord is one row of optimize_log.csv.
type EvalRecord struct {
	Eval                int     `csv:"eval"`
	Fitness             float64 `csv:"fitness"`
	BestLaps            int     `csv:"best_laps"`
	MutationProbability float64 `csv:"mutation_probability"`
	KeepFraction        float64 `csv:"keep_fraction"`
	LearningRate        float64 `csv:"learning_rate"`
	AccelerationStep    float64 `csv:"acceleration_step"`
	TurnStep            float64 `csv:"turn_step"`
	ElapsedSec          float64 `csv:"elapsed_sec"`
}

// newEvalRecord fills a log row from clamped parameter values.
func newEvalRecord(eval int, fitness float64, laps int, clamped []float64) EvalRecord {
	return EvalRecord{
		Eval:                eval,
		Fitness:             fitness,
		BestLaps:            laps,
		MutationProbability: clamped[0],
		KeepFraction:        clamped[1],
		LearningRate:        clamped[2],
		AccelerationStep:    clamped[3],
		TurnStep:            clamped[4],
	}
}
