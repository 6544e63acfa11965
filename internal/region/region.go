// Package region holds per-view feature descriptor data and makes it
// available to the matching stage under a configurable memory budget.
package region

import (
	"fmt"

	"github.com/openrecon/mvmatch/internal/scene"
)

// Set is the ordered descriptor data of one view.
//
// Descriptors are stored row-major in a single backing slice; exactly one of
// Scalars or Binary is populated, according to Type. The provider that loaded
// a Set owns it while cached; callers must not retain a Set beyond one
// matching operation.
type Set struct {
	Type  scene.DescriptorType
	Dim   int
	Count int

	Scalars []float32
	Binary  []byte
}

// NewScalarSet wraps float32 descriptor data.
func NewScalarSet(dim int, data []float32) (*Set, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("region: dim must be positive, got %d", dim)
	}
	if len(data)%dim != 0 {
		return nil, fmt.Errorf("region: scalar data length %d is not a multiple of dim %d", len(data), dim)
	}
	return &Set{
		Type:    scene.DescriptorScalar,
		Dim:     dim,
		Count:   len(data) / dim,
		Scalars: data,
	}, nil
}

// NewBinarySet wraps binary descriptor data.
func NewBinarySet(dim int, data []byte) (*Set, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("region: dim must be positive, got %d", dim)
	}
	if len(data)%dim != 0 {
		return nil, fmt.Errorf("region: binary data length %d is not a multiple of dim %d", len(data), dim)
	}
	return &Set{
		Type:   scene.DescriptorBinary,
		Dim:    dim,
		Count:  len(data) / dim,
		Binary: data,
	}, nil
}

// ScalarAt returns the i-th scalar descriptor as a slice into the backing array.
func (s *Set) ScalarAt(i int) []float32 {
	return s.Scalars[i*s.Dim : (i+1)*s.Dim]
}

// BinaryAt returns the i-th binary descriptor as a slice into the backing array.
func (s *Set) BinaryAt(i int) []byte {
	return s.Binary[i*s.Dim : (i+1)*s.Dim]
}
