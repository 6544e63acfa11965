package match

import (
	"fmt"
	"strings"

	"github.com/openrecon/mvmatch/internal/errors"
	"github.com/openrecon/mvmatch/internal/scene"
)

// Method selects the nearest-neighbor matching strategy.
type Method int

const (
	// MethodAuto picks the fastest strategy for the descriptor type:
	// FASTCASCADEHASHINGL2 for scalar descriptors, BRUTEFORCEHAMMING
	// for binary codes.
	MethodAuto Method = iota

	// Scalar descriptor strategies.
	MethodBruteForceL2
	MethodHNSWL2
	MethodANNL2
	MethodCascadeHashingL2
	MethodFastCascadeHashingL2

	// Binary descriptor strategies.
	MethodBruteForceHamming
)

var methodNames = map[Method]string{
	MethodAuto:                 "AUTO",
	MethodBruteForceL2:         "BRUTEFORCEL2",
	MethodHNSWL2:               "HNSWL2",
	MethodANNL2:                "ANNL2",
	MethodCascadeHashingL2:     "CASCADEHASHINGL2",
	MethodFastCascadeHashingL2: "FASTCASCADEHASHINGL2",
	MethodBruteForceHamming:    "BRUTEFORCEHAMMING",
}

// String returns the selector spelling of the method.
func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod converts a selector string to a Method.
func ParseMethod(s string) (Method, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for m, name := range methodNames {
		if name == upper {
			return m, nil
		}
	}
	return 0, errors.New(errors.ErrCodeMethodUnknown,
		fmt.Sprintf("invalid nearest neighbor method %q", s), nil).
		WithSuggestion("one of AUTO, BRUTEFORCEL2, HNSWL2, ANNL2, CASCADEHASHINGL2, FASTCASCADEHASHINGL2, BRUTEFORCEHAMMING")
}

// scalar reports whether the method searches float descriptors.
func (m Method) scalar() bool {
	switch m {
	case MethodBruteForceL2, MethodHNSWL2, MethodANNL2,
		MethodCascadeHashingL2, MethodFastCascadeHashingL2:
		return true
	}
	return false
}

// Resolve maps AUTO to a concrete method for the descriptor type and
// rejects selectors incompatible with it.
func (m Method) Resolve(dt scene.DescriptorType) (Method, error) {
	if m == MethodAuto {
		if dt == scene.DescriptorBinary {
			return MethodBruteForceHamming, nil
		}
		return MethodFastCascadeHashingL2, nil
	}

	compatible := (dt == scene.DescriptorScalar && m.scalar()) ||
		(dt == scene.DescriptorBinary && m == MethodBruteForceHamming)
	if !compatible {
		return 0, errors.New(errors.ErrCodeMethodIncompatible,
			fmt.Sprintf("method %s is incompatible with %s descriptors", m, dt), nil)
	}
	return m, nil
}
