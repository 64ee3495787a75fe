package array

import "fmt"

// Stack accumulates per-scene arrays into a 4-D result, scene axis
// outermost. Scenes are written independently by worker goroutines;
// each SetScene touches a disjoint slice range, and the stack is read
// only after all workers have been joined.
type Stack struct {
	arr       *Masked
	sceneDims []int
}

// NewStack allocates a stack of n scenes, each with the given dims/dtype.
func NewStack(n int, scene *Masked) (*Stack, error) {
	if n <= 0 {
		return nil, fmt.Errorf("stack needs at least one scene, got %d", n)
	}
	dims := append([]int{n}, scene.Dims()...)
	arr, err := NewDims(dims, scene.DType())
	if err != nil {
		return nil, err
	}
	return &Stack{arr: arr, sceneDims: append([]int(nil), scene.Dims()...)}, nil
}

// SetScene copies scene i into the stack. The scene must match the dims and
// dtype the stack was allocated with; a disagreement means the request
// produced inconsistent extents and the whole stack is unusable.
func (s *Stack) SetScene(i int, scene *Masked) error {
	if i < 0 || i >= s.arr.dims[0] {
		return fmt.Errorf("scene index %d out of range [0, %d)", i, s.arr.dims[0])
	}
	if scene.DType() != s.arr.dtype {
		return fmt.Errorf("scene %d dtype %v does not match stack dtype %v", i, scene.DType(), s.arr.dtype)
	}
	if !dimsEqual(scene.Dims(), s.sceneDims) {
		return fmt.Errorf("scene %d dims %v do not match stack scene dims %v", i, scene.Dims(), s.sceneDims)
	}

	nb := scene.NumBytes()
	ne := scene.Elems()
	copy(s.arr.data[i*nb:(i+1)*nb], scene.Data())
	copy(s.arr.mask[i*ne:(i+1)*ne], scene.Mask())
	return nil
}

// Array returns the assembled 4-D masked array.
func (s *Stack) Array() *Masked { return s.arr }

func dimsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
