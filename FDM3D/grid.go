package FDM3D

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidGridSize = errors.New("invalid grid size")
	ErrLengthMismatch  = errors.New("vector length mismatch")
)

// DomainLength is the edge of the cubic domain [0, 2π]^3 used by the
// manufactured solution.
const DomainLength = 2 * math.Pi

// Grid is a uniform lattice of Nx x Ny x Nz points spanning [0, L] on every
// axis. Points with index 0 or N-1 on any axis lie on the Dirichlet
// boundary and carry no unknown.
type Grid struct {
	Nx, Ny, Nz int
	L          float64
}

func NewGrid(Nx, Ny, Nz int, L float64) (g Grid, err error) {
	g = Grid{Nx: Nx, Ny: Ny, Nz: Nz, L: L}
	err = g.Validate()
	return
}

// NewCubicGrid returns an N x N x N grid.
func NewCubicGrid(N int, L float64) (g Grid, err error) {
	return NewGrid(N, N, N, L)
}

func (g Grid) Validate() error {
	if g.Nx < 3 || g.Ny < 3 || g.Nz < 3 {
		return fmt.Errorf("%w: %d x %d x %d, every axis needs at least 3 points",
			ErrInvalidGridSize, g.Nx, g.Ny, g.Nz)
	}
	if !(g.L > 0) || math.IsInf(g.L, 0) {
		return fmt.Errorf("%w: domain length %v must be positive", ErrInvalidGridSize, g.L)
	}
	return nil
}

// Interior returns the number of unknowns along each axis.
func (g Grid) Interior() (Nxi, Nyi, Nzi int) {
	return g.Nx - 2, g.Ny - 2, g.Nz - 2
}

// DoF is the number of interior points, which is the order of the system.
func (g Grid) DoF() int {
	Nxi, Nyi, Nzi := g.Interior()
	return Nxi * Nyi * Nzi
}

// Spacing returns h = L/(N-1) for each axis.
func (g Grid) Spacing() (hx, hy, hz float64) {
	hx = g.L / float64(g.Nx-1)
	hy = g.L / float64(g.Ny-1)
	hz = g.L / float64(g.Nz-1)
	return
}

// InvSpacing2 returns 1/h^2 for each axis, the stencil weights.
func (g Grid) InvSpacing2() (hx2, hy2, hz2 float64) {
	hx, hy, hz := g.Spacing()
	return 1 / (hx * hx), 1 / (hy * hy), 1 / (hz * hz)
}

func (g Grid) String() string {
	return fmt.Sprintf("%d x %d x %d on [0, %.4f]^3, DoF = %d", g.Nx, g.Ny, g.Nz, g.L, g.DoF())
}

// Index3D maps interior coordinates to the degree of freedom index, x
// fastest. It is the single ordering shared by matrix rows and vectors.
func Index3D(i, j, k, Nxi, Nyi int) int {
	return k*(Nxi*Nyi) + j*Nxi + i
}

// IJK inverts Index3D.
func IJK(idx, Nxi, Nyi int) (i, j, k int) {
	i = idx % Nxi
	j = (idx / Nxi) % Nyi
	k = idx / (Nxi * Nyi)
	return
}
