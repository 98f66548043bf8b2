// Package domain contains pure, dependency-free domain models for the
// stiffness aggregation pipeline.
package domain

import "fmt"

// StiffnessType selects which physical quantity is read from a patch
// interaction matrix for a given source/receiver pair.
type StiffnessType int

// Supported stiffness quantities.
const (
	// StiffnessSigma is the change in normal stress on the receiver patch.
	StiffnessSigma StiffnessType = iota

	// StiffnessTau is the change in shear stress on the receiver patch.
	StiffnessTau

	// StiffnessCFF is the change in Coulomb failure function, combining
	// shear and normal stress changes with the coefficient of friction.
	StiffnessCFF
)

// String returns the display name of the stiffness quantity.
func (t StiffnessType) String() string {
	switch t {
	case StiffnessSigma:
		return "ΔSigma"
	case StiffnessTau:
		return "ΔTau"
	case StiffnessCFF:
		return "ΔCFF"
	default:
		return fmt.Sprintf("StiffnessType(%d)", int(t))
	}
}

// Units returns the physical units of the quantity.
func (t StiffnessType) Units() string { return "MPa" }

// ParseStiffnessType converts a configuration token into a StiffnessType.
// Accepted tokens are "sigma", "tau", and "cff".
func ParseStiffnessType(name string) (StiffnessType, error) {
	switch name {
	case "sigma":
		return StiffnessSigma, nil
	case "tau":
		return StiffnessTau, nil
	case "cff":
		return StiffnessCFF, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStiffnessType, name)
	}
}
