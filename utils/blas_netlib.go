//go:build cgo && netlib

package utils

/*
#cgo LDFLAGS: -lopenblas -lm -lpthread
#include <cblas.h>
*/
import "C"

import (
	"gonum.org/v1/gonum/blas/blas64"
	netblas "gonum.org/v1/netlib/blas/netlib"
)

// Built with -tags netlib, gonum vector kernels used by the host solver
// dispatch to OpenBLAS.
func init() {
	blas64.Use(netblas.Implementation{})
	BLASImplementation = "netlib (OpenBLAS)"
}
