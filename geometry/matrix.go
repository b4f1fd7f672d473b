package geometry

import (
	"strconv"
	"strings"
)

// Matrix is a PDF transformation matrix [a b c d e f]:
//
//	x' = a*x + c*y + e
//	y' = b*x + d*y + f
type Matrix struct {
	A, B, C, D, E, F float64
}

// Identity returns the identity matrix.
func Identity() Matrix { return Matrix{A: 1, D: 1} }

// Translate returns a translation by (tx, ty).
func Translate(tx, ty float64) Matrix { return Matrix{A: 1, D: 1, E: tx, F: ty} }

// Scale returns a uniform scale.
func Scale(s float64) Matrix { return Matrix{A: s, D: s} }

// Rotate returns a counter-clockwise rotation by deg degrees. Quarter turns
// are exact.
func Rotate(deg int) Matrix {
	r, err := NormalizeRotation(deg)
	if err != nil {
		return Identity()
	}
	switch r {
	case 90:
		return Matrix{B: 1, C: -1}
	case 180:
		return Matrix{A: -1, D: -1}
	case 270:
		return Matrix{B: -1, C: 1}
	default:
		return Identity()
	}
}

// Multiply returns the matrix that applies m first, then n.
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.B*n.C,
		B: m.A*n.B + m.B*n.D,
		C: m.C*n.A + m.D*n.C,
		D: m.C*n.B + m.D*n.D,
		E: m.E*n.A + m.F*n.C + n.E,
		F: m.E*n.B + m.F*n.D + n.F,
	}
}

// Apply maps the point (x, y).
func (m Matrix) Apply(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// ApplyVector maps a direction, ignoring translation.
func (m Matrix) ApplyVector(x, y float64) (float64, float64) {
	return m.A*x + m.C*y, m.B*x + m.D*y
}

// Bounds maps the rectangle [0,w]x[0,h] and returns the bounding box of the
// result.
func (m Matrix) Bounds(w, h float64) (llx, lly, urx, ury float64) {
	xs := [4]float64{}
	ys := [4]float64{}
	xs[0], ys[0] = m.Apply(0, 0)
	xs[1], ys[1] = m.Apply(w, 0)
	xs[2], ys[2] = m.Apply(0, h)
	xs[3], ys[3] = m.Apply(w, h)
	llx, lly, urx, ury = xs[0], ys[0], xs[0], ys[0]
	for i := 1; i < 4; i++ {
		llx = min(llx, xs[i])
		urx = max(urx, xs[i])
		lly = min(lly, ys[i])
		ury = max(ury, ys[i])
	}
	return llx, lly, urx, ury
}

// Operand renders the six matrix values as a content stream operand list,
// ready to be followed by "cm".
func (m Matrix) Operand() string {
	vals := [6]float64{m.A, m.B, m.C, m.D, m.E, m.F}
	parts := make([]string, len(vals))
	for i, v := range vals {
		if v == 0 {
			v = 0 // drop negative zero
		}
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, " ")
}
