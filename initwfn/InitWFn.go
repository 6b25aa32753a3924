// Package initwfn describes Gorgonia weight initializers as plain
// values so that network configurations can be stored as JSON
package initwfn

import (
	"encoding/json"
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type names a weight initialization algorithm
type Type string

// Available initializers
const (
	GlorotU  Type = "glorot_uniform"
	GlorotN  Type = "glorot_normal"
	HeU      Type = "he_uniform"
	HeN      Type = "he_normal"
	Zeroes   Type = "zeroes"
	Constant Type = "constant"
	Uniform  Type = "uniform"
	Gaussian Type = "gaussian"
)

// InitWFn describes a weight initializer. Only the fields used by
// Type are meaningful.
type InitWFn struct {
	Type   Type    `json:"type"`
	Gain   float64 `json:"gain,omitempty"`
	Value  float64 `json:"value,omitempty"`
	Low    float64 `json:"low,omitempty"`
	High   float64 `json:"high,omitempty"`
	Mean   float64 `json:"mean,omitempty"`
	StdDev float64 `json:"stddev,omitempty"`
}

// Default returns the initializer used when none is configured
func Default() *InitWFn {
	return &InitWFn{Type: GlorotU, Gain: 1.0}
}

// NewGlorotU returns a Glorot uniform initializer
func NewGlorotU(gain float64) (*InitWFn, error) {
	return validated(InitWFn{Type: GlorotU, Gain: gain})
}

// NewGlorotN returns a Glorot normal initializer
func NewGlorotN(gain float64) (*InitWFn, error) {
	return validated(InitWFn{Type: GlorotN, Gain: gain})
}

// NewHeU returns a He uniform initializer
func NewHeU(gain float64) (*InitWFn, error) {
	return validated(InitWFn{Type: HeU, Gain: gain})
}

// NewHeN returns a He normal initializer
func NewHeN(gain float64) (*InitWFn, error) {
	return validated(InitWFn{Type: HeN, Gain: gain})
}

// NewZeroes returns an initializer which sets every weight to 0
func NewZeroes() (*InitWFn, error) {
	return validated(InitWFn{Type: Zeroes})
}

// NewConstant returns an initializer which sets every weight to value
func NewConstant(value float64) (*InitWFn, error) {
	return validated(InitWFn{Type: Constant, Value: value})
}

// NewUniform returns an initializer drawing weights from U[low, high)
func NewUniform(low, high float64) (*InitWFn, error) {
	return validated(InitWFn{Type: Uniform, Low: low, High: high})
}

// NewGaussian returns an initializer drawing weights from N(mean, σ²)
func NewGaussian(mean, stddev float64) (*InitWFn, error) {
	return validated(InitWFn{Type: Gaussian, Mean: mean, StdDev: stddev})
}

func validated(i InitWFn) (*InitWFn, error) {
	if err := i.Validate(); err != nil {
		return nil, fmt.Errorf("new%v: %w", i.Type, err)
	}
	return &i, nil
}

// Validate checks that the parameters are legal for the Type
func (i *InitWFn) Validate() error {
	switch i.Type {
	case GlorotU, GlorotN, HeU, HeN:
		if i.Gain <= 0 {
			return fmt.Errorf("validate: %v gain must be positive, got %v",
				i.Type, i.Gain)
		}
	case Uniform:
		if i.Low >= i.High {
			return fmt.Errorf("validate: uniform requires low < high, "+
				"got [%v, %v)", i.Low, i.High)
		}
	case Gaussian:
		if i.StdDev <= 0 {
			return fmt.Errorf("validate: gaussian standard deviation "+
				"must be positive, got %v", i.StdDev)
		}
	case Zeroes, Constant:
	default:
		return fmt.Errorf("validate: no such initializer type %q", i.Type)
	}
	return nil
}

// InitWFn returns the Gorgonia initializer described by i
func (i *InitWFn) InitWFn() G.InitWFn {
	switch i.Type {
	case GlorotU:
		return G.GlorotU(i.Gain)
	case GlorotN:
		return G.GlorotN(i.Gain)
	case HeU:
		return G.HeU(i.Gain)
	case HeN:
		return G.HeN(i.Gain)
	case Constant:
		return G.ValuesOf(i.Value)
	case Uniform:
		return G.Uniform(i.Low, i.High)
	case Gaussian:
		return G.Gaussian(i.Mean, i.StdDev)
	}
	return G.Zeroes()
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %+v}", i.Type, *i)
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	type plain InitWFn
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("unmarshalJSON: %w", err)
	}

	init := InitWFn(p)
	if err := init.Validate(); err != nil {
		return fmt.Errorf("unmarshalJSON: %w", err)
	}
	*i = init
	return nil
}
