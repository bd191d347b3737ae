package FDM3D

import (
	"math"

	"github.com/notargets/fdmpoisson/utils"
)

// ScalarField is a function of physical coordinates sampled on the grid.
type ScalarField func(x, y, z float64) float64

// BuildVector evaluates f at every interior point of g, in the row order
// of BuildPoisson. Interior point (i, j, k) sits at ((i+1)hx, (j+1)hy,
// (k+1)hz).
func BuildVector(g Grid, f ScalarField, ex utils.Executor) (v []float64, err error) {
	if err = g.Validate(); err != nil {
		return
	}
	var (
		Nxi, Nyi, _ = g.Interior()
		hx, hy, hz  = g.Spacing()
	)
	v = make([]float64, g.DoF())
	ex.ParallelFor(len(v), func(lo, hi int) {
		for idx := lo; idx < hi; idx++ {
			i, j, k := IJK(idx, Nxi, Nyi)
			v[idx] = f(float64(i+1)*hx, float64(j+1)*hy, float64(k+1)*hz)
		}
	})
	return
}

// ExactSolution is the manufactured solution u = sin x sin y sin z cos(xyz).
// It vanishes on the boundary of [0, 2π]^3.
func ExactSolution(x, y, z float64) float64 {
	return math.Sin(x) * math.Sin(y) * math.Sin(z) * math.Cos(x*y*z)
}

// RHSFunction is f = -Δu for ExactSolution, using
// Δ(gh) = hΔg + gΔh + 2∇g·∇h with g = sin x sin y sin z, h = cos(xyz).
func RHSFunction(x, y, z float64) float64 {
	var (
		sx, sy, sz = math.Sin(x), math.Sin(y), math.Sin(z)
		cx, cy, cz = math.Cos(x), math.Cos(y), math.Cos(z)
		xyz        = x * y * z
		h, sh      = math.Cos(xyz), math.Sin(xyz)
	)
	var (
		g             = sx * sy * sz
		gx, gy, gz    = cx * sy * sz, sx * cy * sz, sx * sy * cz
		lapG          = -3 * g
		hx, hy, hz    = -y * z * sh, -x * z * sh, -x * y * sh
		lapH          = -(y*y*z*z + x*x*z*z + x*x*y*y) * h
		gradGDotGradH = gx*hx + gy*hy + gz*hz
	)
	return -(h*lapG + g*lapH + 2*gradGDotGradH)
}

// One is the constant field f ≡ 1.
func One(x, y, z float64) float64 { return 1 }
