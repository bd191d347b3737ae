package InputParameters

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/fdmpoisson/FDM3D"
	"github.com/notargets/fdmpoisson/solver"
)

func TestParseInputParameters(t *testing.T) {
	fileInput := []byte(`
Title: Test Case
BaseGridSize: 32
RelTol: 1.0e-10
MaxIterations: 250
Preconditioner: none # Can be none or jacobi
`)
	input := NewInputParametersPoisson()
	require.NoError(t, input.Parse(fileInput))
	var buf bytes.Buffer
	input.Print(&buf)
	assert.Contains(t, buf.String(), "\"Test Case\"")
	assert.Contains(t, buf.String(), "[32]\t\t\t= BaseGridSize")
	assert.Contains(t, buf.String(), "[250]\t\t\t= MaxIterations")
	assert.Contains(t, buf.String(), "[none]\t\t\t= Preconditioner")
	assert.Equal(t, "Test Case", input.Title)
	assert.Equal(t, 32, input.BaseGridSize)
	// Absent keys keep their defaults
	assert.Equal(t, FDM3D.DomainLength, input.DomainLength)
	assert.Equal(t, 1e-8, input.AbsTol)
	assert.Equal(t, 1e6, input.DivTol)

	p, err := input.Params()
	require.NoError(t, err)
	assert.Equal(t, 32, p.BaseGridSize)
	assert.Equal(t, solver.Config{AbsTol: 1e-8, RelTol: 1e-10, DivTol: 1e6, MaxIterations: 250,
		Preconditioner: solver.NoPreconditioner}, p.Solver)
}

func TestDefaultInputParameters(t *testing.T) {
	input := NewInputParametersPoisson()
	require.NoError(t, input.Validate())
	p, err := input.Params()
	require.NoError(t, err)
	assert.Equal(t, 64, p.BaseGridSize)
	assert.Equal(t, solver.DefaultConfig(), p.Solver)
}

func TestInvalidInputParameters(t *testing.T) {
	for _, bad := range []string{
		"BaseGridSize: 2",
		"MaxIterations: 0",
		"Preconditioner: ilu",
		"DomainLength: -1",
		"DivTol: 0.5",
		"BaseGridSize: [1, 2]",
	} {
		input := NewInputParametersPoisson()
		assert.Error(t, input.Parse([]byte(bad)), bad)
	}
}
