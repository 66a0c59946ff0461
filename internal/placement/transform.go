// Package placement builds the 4x4 transforms that position sight anchors in camera space.
//
// Transforms use the column-vector convention: a point p maps to T*p and the translation
// lives in the last column. Values are stored row-major.
package placement

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const size = 4

// Transform is a 4x4 affine transform stored row-major: m00, m01, m02, m03, m10, ...
type Transform [size * size]float64

// Identity returns the identity transform.
func Identity() Transform {
	var t Transform
	for i := range size {
		t[i*size+i] = 1
	}

	return t
}

// FromColumns builds a transform from sixteen values laid out column by column,
// the layout AR frameworks use for camera poses.
func FromColumns(values [size * size]float64) Transform {
	var t Transform
	for col := range size {
		for row := range size {
			t[row*size+col] = values[col*size+row]
		}
	}

	return t
}

// Columns returns the transform laid out column by column.
func (t Transform) Columns() [size * size]float64 {
	var values [size * size]float64
	for col := range size {
		for row := range size {
			values[col*size+row] = t[row*size+col]
		}
	}

	return values
}

// At returns the element at the given row and column.
func (t Transform) At(row, col int) float64 {
	return t[row*size+col]
}

// Mul returns t*other.
func (t Transform) Mul(other Transform) Transform {
	var product mat.Dense
	product.Mul(t.dense(), other.dense())

	var out Transform
	for row := range size {
		for col := range size {
			out[row*size+col] = product.At(row, col)
		}
	}

	return out
}

// Translation returns the translation component.
func (t Transform) Translation() r3.Vec {
	return r3.Vec{X: t.At(0, 3), Y: t.At(1, 3), Z: t.At(2, 3)}
}

// IsFinite reports whether no element is NaN or infinite.
func (t Transform) IsFinite() bool {
	for _, v := range t {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// Rotation returns a right-handed rotation of angle radians about axis.
func Rotation(angle float64, axis r3.Vec) Transform {
	rot := r3.NewRotation(angle, axis).Mat()

	t := Identity()
	for row := range 3 {
		for col := range 3 {
			t[row*size+col] = rot.At(row, col)
		}
	}

	return t
}

func (t Transform) dense() *mat.Dense {
	data := make([]float64, len(t))
	copy(data, t[:])

	return mat.NewDense(size, size, data)
}
