package param

import (
	"github.com/pkg/errors"
)

// Spec is the declarative form of a parameter, as written in a scenario
// file. Only the fields relevant to the kind are consulted.
type Spec struct {
	Kind   string `toml:"kind" json:"kind"`
	Start  int    `toml:"start" json:"start"`
	Wrap   int    `toml:"wrap" json:"wrap"`
	Lower  int    `toml:"lower" json:"lower"`
	Upper  int    `toml:"upper" json:"upper"`
	Length int    `toml:"length" json:"length"`
	Seed   int64  `toml:"seed" json:"seed"`
	Key    string `toml:"key" json:"key"`
	Mul    int    `toml:"mul" json:"mul"`
	Add    int    `toml:"add" json:"add"`
	Value  string `toml:"value" json:"value"`
}

// New builds a parameter from its declarative spec.
func New(spec Spec) (Param, error) {
	switch spec.Kind {
	case "value":
		return NewConstant(spec.Value), nil
	case "sequence":
		if spec.Wrap > 0 {
			return NewWrappedSequence(spec.Start, spec.Wrap), nil
		}
		return NewSequence(spec.Start), nil
	case "sequence-request":
		if spec.Wrap > 0 {
			return NewWrappedSequenceRequest(spec.Start, spec.Wrap), nil
		}
		return NewSequenceRequest(spec.Start), nil
	case "sequence-batch":
		return NewSequenceBatch(spec.Start), nil
	case "shuffle":
		if spec.Length <= 0 {
			return nil, errors.New("shuffle parameters need a positive length")
		}
		return NewShuffle(spec.Length, spec.Seed), nil
	case "random-value":
		if spec.Upper < spec.Lower {
			return nil, errors.Errorf("random-value bounds are inverted: %d..%d", spec.Lower, spec.Upper)
		}
		return NewRandomValue(spec.Lower, spec.Upper, spec.Seed), nil
	case "random-value-request":
		if spec.Upper < spec.Lower {
			return nil, errors.Errorf("random-value-request bounds are inverted: %d..%d", spec.Lower, spec.Upper)
		}
		return NewRandomValueRequest(spec.Lower, spec.Upper, spec.Seed), nil
	case "random-string":
		if spec.Length <= 0 {
			return nil, errors.New("random-string parameters need a positive length")
		}
		return NewRandomString(spec.Length, spec.Seed), nil
	case "random-string-request":
		if spec.Length <= 0 {
			return nil, errors.New("random-string-request parameters need a positive length")
		}
		return NewRandomStringRequest(spec.Length, spec.Seed), nil
	case "calc":
		if spec.Key == "" {
			return nil, errors.New("calc parameters need a key to derive from")
		}
		return NewCalc(spec.Key, spec.Wrap, spec.Mul, spec.Add), nil
	default:
		return nil, errors.Errorf("unknown parameter kind %q", spec.Kind)
	}
}
