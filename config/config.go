// Package config implements the §6.3 configuration inputs: ServerConf's
// scalar tuning values plus one or more named FieldConf presets. Loading
// mirrors the teacher's reinforcement.FromYaml: viper reads a YAML
// document into a loosely-typed outer envelope, then the inner spec is
// re-marshaled through yaml.v3 into strict, validated structs.
package config

import (
	"errors"
	"fmt"

	"cascadenet/field"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ServerConf bundles the server-wide tuning values of spec §3 ServerConf.
// Fields carry no yaml tags: viper lowercases every key it reads, and
// yaml.v3's default matching is the lowercased field name, so the re-marshal
// round trip lines up without tag bookkeeping.
type ServerConf struct {
	MaxPlayers          int
	TickMicroseconds    uint64
	MaxLagTicks         uint64
	StartCountdownTicks uint64
	FieldConfs          []string
}

// ErrNoMinGbHangTicks is returned by Validate when there are no field confs
// to compute a minimum gb_hang_ticks over.
var ErrNoMinGbHangTicks = errors.New("config: no field confs to validate against")

// ErrLagWindowTooWide is returned when max_lag_ticks does not stay strictly
// below every preset's gb_hang_ticks (spec §3 ServerConf invariant).
var ErrLagWindowTooWide = errors.New("config: max_lag_ticks must be less than every field conf's gb_hang_ticks")

// Validate checks the cross-field invariant of spec §3: max_lag_ticks <
// min(field_confs[i].gb_hang_ticks), taken over every resolved preset, and
// every name in FieldConfs must resolve to a preset.
func (c *ServerConf) Validate(presets map[string]*field.Conf) error {
	if len(presets) == 0 {
		return ErrNoMinGbHangTicks
	}
	for _, name := range c.FieldConfs {
		if _, ok := presets[name]; !ok {
			return fmt.Errorf("config: unknown field conf preset %q", name)
		}
	}
	for _, fc := range presets {
		if c.MaxLagTicks >= fc.GbHangTicks {
			return ErrLagWindowTooWide
		}
	}
	return nil
}

// outerConfig is the loosely-typed envelope viper decodes first, mirroring
// the teacher's OuterConfig{Kind, Def}.
type outerConfig struct {
	Server     map[string]any            `mapstructure:"server"`
	FieldConfs map[string]map[string]any `mapstructure:"fieldConfs"`
}

// fieldConfYAML is the yaml.v3 shape re-marshaled from the outer envelope's
// fieldConfs entries, one per named preset. Untagged for the same
// viper-lowercasing reason as ServerConf.
type fieldConfYAML struct {
	SwapTicks         uint64
	ManualRaiseSpeed  int
	RaiseSpeeds       []int
	RaiseSpeedChanges []uint64
	StopCombo0        uint64
	StopComboK        uint64
	StopChain0        uint64
	StopChainK        uint64
	GbHangTicks       uint64
	FlashTicks        uint64
	LevitateTicks     uint64
	PopTicks          uint64
	Pop0Ticks         uint64
	TransformTicks    uint64
	ColorCount        int
	RaiseAdjacent     string
	LostTicks         uint64
}

func (y fieldConfYAML) toConf() (*field.Conf, error) {
	var adjacent field.RaiseAdjacent
	switch y.RaiseAdjacent {
	case "", "never":
		adjacent = field.RaiseAdjacentNever
	case "always":
		adjacent = field.RaiseAdjacentAlways
	case "alternate":
		adjacent = field.RaiseAdjacentAlternate
	default:
		return nil, fmt.Errorf("config: unknown raiseAdjacent mode %q", y.RaiseAdjacent)
	}
	conf := &field.Conf{
		SwapTicks:         y.SwapTicks,
		ManualRaiseSpeed:  y.ManualRaiseSpeed,
		RaiseSpeeds:       y.RaiseSpeeds,
		RaiseSpeedChanges: y.RaiseSpeedChanges,
		StopCombo0:        y.StopCombo0,
		StopComboK:        y.StopComboK,
		StopChain0:        y.StopChain0,
		StopChainK:        y.StopChainK,
		GbHangTicks:       y.GbHangTicks,
		FlashTicks:        y.FlashTicks,
		LevitateTicks:     y.LevitateTicks,
		PopTicks:          y.PopTicks,
		Pop0Ticks:         y.Pop0Ticks,
		TransformTicks:    y.TransformTicks,
		ColorCount:        y.ColorCount,
		RaiseAdjacent:     adjacent,
		LostTicks:         y.LostTicks,
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Load reads path via viper, decodes the outer envelope, and re-marshals
// each section through yaml.v3 into a ServerConf plus its named FieldConf
// presets -- the same two-stage decode the teacher's reinforcement.FromYaml
// uses for OuterConfig/TrainingConfig.
func Load(path string) (*ServerConf, map[string]*field.Conf, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	if err := vp.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	outer := &outerConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, nil, fmt.Errorf("config: unmarshal envelope: %w", err)
	}

	serverSpec, err := yaml.Marshal(outer.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("config: marshal server section: %w", err)
	}
	sc := &ServerConf{}
	if err := yaml.Unmarshal(serverSpec, sc); err != nil {
		return nil, nil, fmt.Errorf("config: unmarshal ServerConf: %w", err)
	}

	presets := make(map[string]*field.Conf, len(outer.FieldConfs))
	for name, raw := range outer.FieldConfs {
		spec, err := yaml.Marshal(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("config: marshal field conf %q: %w", name, err)
		}
		fy := fieldConfYAML{}
		if err := yaml.Unmarshal(spec, &fy); err != nil {
			return nil, nil, fmt.Errorf("config: unmarshal field conf %q: %w", name, err)
		}
		fc, err := fy.toConf()
		if err != nil {
			return nil, nil, fmt.Errorf("config: field conf %q: %w", name, err)
		}
		presets[name] = fc
	}

	if err := sc.Validate(presets); err != nil {
		return nil, nil, err
	}

	return sc, presets, nil
}
