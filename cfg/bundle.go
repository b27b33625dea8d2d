// Package cfg loads libcbm parameter bundles and spinup/step input tables
// from a configuration file via Viper, mirroring the teacher's own
// Viper-and-cast-based configuration loading in inmaputil/cmd.go.
package cfg

import (
	"fmt"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	libcbm "github.com/cat-cfs/libcbm-go"
)

// rawMeanAnnualTemperature is one (spatial unit, temperature) sample; the
// bundle file carries these as a list rather than a map so that the
// spatial-unit key survives through Viper's YAML/JSON/TOML decoding
// without key-type coercion.
type rawMeanAnnualTemperature struct {
	SpatialUnit int
	Temperature float64
}

type rawBundle struct {
	DecayParameters          []libcbm.DecayParameter          `mapstructure:"decay_parameters"`
	TurnoverParameters       []libcbm.TurnoverParameter        `mapstructure:"turnover_parameters"`
	RootParameters           []libcbm.RootParameter            `mapstructure:"root_parameters"`
	SlowMixingRate           float64                           `mapstructure:"slow_mixing_rate"`
	DisturbanceMatrixRows    []libcbm.DisturbanceMatrixRow     `mapstructure:"disturbance_matrix_rows"`
	DisturbanceAssociations  []libcbm.DisturbanceAssociation   `mapstructure:"disturbance_associations"`
	GrowthCurves             []libcbm.GrowthCurve              `mapstructure:"growth_curves"`
	LandClassTransitions     []libcbm.LandClassTransition      `mapstructure:"land_class_transitions"`
	MeanAnnualTemperature    []rawMeanAnnualTemperature        `mapstructure:"mean_annual_temperature"`
}

// LoadParameterBundle reads a parameter bundle from path. Viper infers the
// file format from its extension (YAML, JSON and TOML are all accepted,
// exactly as the teacher's configuration loader accepts multiple formats
// via the same mechanism).
func LoadParameterBundle(path string) (*libcbm.ParameterBundle, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cfg: reading parameter bundle %s: %w", path, err)
	}

	var raw rawBundle
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("cfg: decoding parameter bundle %s: %w", path, err)
	}

	bundle := &libcbm.ParameterBundle{
		DecayParameters:         raw.DecayParameters,
		TurnoverParameters:      raw.TurnoverParameters,
		RootParameters:          raw.RootParameters,
		SlowMixingRate:          raw.SlowMixingRate,
		DisturbanceMatrixRows:   raw.DisturbanceMatrixRows,
		DisturbanceAssociations: raw.DisturbanceAssociations,
		GrowthCurves:            raw.GrowthCurves,
		LandClassTransitions:    raw.LandClassTransitions,
		MeanAnnualTemperature:   make(map[int]float64, len(raw.MeanAnnualTemperature)),
	}
	for _, t := range raw.MeanAnnualTemperature {
		bundle.MeanAnnualTemperature[t.SpatialUnit] = t.Temperature
	}
	return bundle, nil
}

// rawSpinupInput mirrors libcbm.SpinupInput's shape for decoding; Increments
// is a parallel, optionally-absent list keyed by stand index rather than by
// a map, since Viper's list decoding is more forgiving of sparse/missing
// entries than a map keyed by index would be.
type rawSpinupInput struct {
	Parameters []libcbm.SpinupParameters `mapstructure:"parameters"`
	Increments [][]libcbm.AgeIncrement   `mapstructure:"increments"`
}

// LoadSpinupInput reads a spinup-input bundle from path.
func LoadSpinupInput(path string) (libcbm.SpinupInput, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return libcbm.SpinupInput{}, fmt.Errorf("cfg: reading spinup input %s: %w", path, err)
	}
	var raw rawSpinupInput
	if err := v.Unmarshal(&raw); err != nil {
		return libcbm.SpinupInput{}, fmt.Errorf("cfg: decoding spinup input %s: %w", path, err)
	}
	input := libcbm.SpinupInput{Parameters: raw.Parameters}
	if len(raw.Increments) > 0 {
		input.Increments = raw.Increments
	}
	return input, nil
}

// PoolNames coerces a Viper "pools" value (a list read from the same
// configuration file) into an ordered []string, using cast the way the
// teacher's srCmd coerces its own "layers" value with cast.ToIntSliceE.
func PoolNames(v *viper.Viper) ([]string, error) {
	if !v.IsSet("pools") {
		return nil, nil
	}
	names, err := cast.ToStringSliceE(v.Get("pools"))
	if err != nil {
		return nil, fmt.Errorf("cfg: reading 'pools': %w", err)
	}
	return names, nil
}

// GrowthMode coerces a Viper "growth_mode" string value ("volume" or
// "increment") into a libcbm.GrowthMode, defaulting to GrowthModeVolume.
func GrowthMode(v *viper.Viper) (libcbm.GrowthMode, error) {
	if !v.IsSet("growth_mode") {
		return libcbm.GrowthModeVolume, nil
	}
	s, err := cast.ToStringE(v.Get("growth_mode"))
	if err != nil {
		return 0, fmt.Errorf("cfg: reading 'growth_mode': %w", err)
	}
	switch s {
	case "", "volume":
		return libcbm.GrowthModeVolume, nil
	case "increment":
		return libcbm.GrowthModeIncrement, nil
	default:
		return 0, fmt.Errorf("cfg: unknown growth_mode %q", s)
	}
}
