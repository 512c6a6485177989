package model

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/katalvlaran/emuflux/emu"
	"github.com/katalvlaran/emuflux/flux"
	"github.com/katalvlaran/emuflux/network"
	"github.com/katalvlaran/emuflux/residual"
	"github.com/katalvlaran/emuflux/symbolic"
)

// Defaults for omitted settings.
const (
	DefaultLowerBound = 0.0
	DefaultUpperBound = 200.0
	DefaultRestarts   = 10
	DefaultIterations = 100
	DefaultTolerance  = 1e-10
)

// Sentinel errors.
var (
	// ErrInvalidModel is returned for malformed or inconsistent model files.
	ErrInvalidModel = errors.New("model: invalid model")

	// ErrNullspace is returned when the free fluxes do not determine the
	// dependent ones.
	ErrNullspace = errors.New("model: free fluxes do not determine the network")

	// ErrOptionViolation is returned when an invalid Option is supplied.
	ErrOptionViolation = errors.New("model: invalid option supplied")
)

// File is the YAML document.
type File struct {
	Name         string            `yaml:"name"`
	Reactions    []ReactionSpec    `yaml:"reactions"`
	Excluded     []string          `yaml:"excluded,omitempty"`
	Measurements []MeasurementSpec `yaml:"measurements"`
	Inputs       []InputSpec       `yaml:"inputs"`
	Nullspace    NullspaceSpec     `yaml:"nullspace"`
	Settings     Settings          `yaml:"settings"`
}

// ReactionSpec is one reaction line. Type defaults to irreversible.
type ReactionSpec struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type,omitempty"`
	Equation string   `yaml:"equation"`
	Atoms    string   `yaml:"atoms,omitempty"`
	Lower    *float64 `yaml:"lower,omitempty"`
	Upper    *float64 `yaml:"upper,omitempty"`
}

// MeasurementSpec is a measured unit such as "Glu:01111".
type MeasurementSpec struct {
	Unit       string      `yaml:"unit"`
	MID        []float64   `yaml:"mid"`
	Errors     []float64   `yaml:"errors"`
	Correction [][]float64 `yaml:"correction,omitempty"`
}

// MixtureSpec is one labeled species of an input feed.
type MixtureSpec struct {
	Ratio     float64   `yaml:"ratio"`
	Fractions []float64 `yaml:"fractions"`
}

// InputSpec is a labeled input metabolite.
type InputSpec struct {
	Metabolite string        `yaml:"metabolite"`
	Mixtures   []MixtureSpec `yaml:"mixtures"`
}

// NullspaceSpec names the free reactions and, optionally, the dependent ones
// with the matrix N such that dependent = −N·free.
type NullspaceSpec struct {
	Free      []string    `yaml:"free"`
	Dependent []string    `yaml:"dependent,omitempty"`
	Matrix    [][]float64 `yaml:"matrix,omitempty"`
}

// Settings holds run parameters; zero values take the defaults.
type Settings struct {
	AnalyticJacobian *bool   `yaml:"analytic_jacobian,omitempty"`
	SparseThreshold  *int    `yaml:"sparse_threshold,omitempty"`
	Components       bool    `yaml:"components,omitempty"`
	Restarts         int     `yaml:"restarts,omitempty"`
	Iterations       int     `yaml:"iterations,omitempty"`
	Tolerance        float64 `yaml:"tolerance,omitempty"`
	Seed             int64   `yaml:"seed,omitempty"`
	Workers          int     `yaml:"workers,omitempty"`
}

// Problem is a compiled model, ready for simulation and fitting.
type Problem struct {
	Name         string
	Reactions    []network.Reaction
	EMUReactions []emu.Reaction
	Networks     []emu.Network
	Model        *symbolic.Model
	Inputs       []emu.UnitMID
	Measurements []residual.Measurement
	Layout       flux.Layout
	FreeNames    []string
	Lower        []float64 // per free flux
	Upper        []float64 // per free flux
	Settings     Settings
}

// Option configures Load and Compile.
type Option func(*Options)

// Options holds loader settings.
type Options struct {
	Ctx    context.Context
	Logger *slog.Logger

	err error
}

// DefaultOptions returns a background context and a discarding logger.
func DefaultOptions() Options {
	return Options{
		Ctx:    context.Background(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithContext bounds the EMU derivation.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		if ctx == nil {
			o.err = ErrOptionViolation
			return
		}
		o.Ctx = ctx
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l == nil {
			o.err = ErrOptionViolation
			return
		}
		o.Logger = l
	}
}
