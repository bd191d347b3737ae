package InputParameters

import (
	"fmt"
	"io"
	"math"

	"github.com/ghodss/yaml"

	"github.com/notargets/fdmpoisson/model_problems/Poisson3D"
	"github.com/notargets/fdmpoisson/solver"
)

// Parameters obtained from the YAML input file
type InputParametersPoisson struct {
	Title          string  `yaml:"Title"`
	DomainLength   float64 `yaml:"DomainLength"`
	BaseGridSize   int     `yaml:"BaseGridSize"`
	AbsTol         float64 `yaml:"AbsTol"`
	RelTol         float64 `yaml:"RelTol"`
	DivTol         float64 `yaml:"DivTol"`
	MaxIterations  int     `yaml:"MaxIterations"`
	Preconditioner string  `yaml:"Preconditioner"`
}

// NewInputParametersPoisson returns the defaults applied to keys missing
// from an input file.
func NewInputParametersPoisson() (ip *InputParametersPoisson) {
	var (
		p   = Poisson3D.DefaultParams()
		cfg = p.Solver
	)
	ip = &InputParametersPoisson{
		Title:          p.Title,
		DomainLength:   p.DomainLength,
		BaseGridSize:   p.BaseGridSize,
		AbsTol:         cfg.AbsTol,
		RelTol:         cfg.RelTol,
		DivTol:         cfg.DivTol,
		MaxIterations:  cfg.MaxIterations,
		Preconditioner: cfg.Preconditioner.String(),
	}
	return
}

// Parse overlays data on the current values, so keys absent from data keep
// their defaults.
func (ip *InputParametersPoisson) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, ip); err != nil {
		return
	}
	return ip.Validate()
}

func (ip *InputParametersPoisson) Validate() (err error) {
	switch {
	case ip.BaseGridSize < 3:
		return fmt.Errorf("BaseGridSize %d must be at least 3", ip.BaseGridSize)
	case !(ip.DomainLength > 0) || math.IsInf(ip.DomainLength, 0):
		return fmt.Errorf("DomainLength %v must be positive", ip.DomainLength)
	}
	_, err = ip.Params()
	return
}

// Params converts the file contents to the study parameters.
func (ip *InputParametersPoisson) Params() (p Poisson3D.Params, err error) {
	var pc solver.Preconditioner
	if pc, err = solver.NewPreconditioner(ip.Preconditioner); err != nil {
		return
	}
	p = Poisson3D.Params{
		Title:        ip.Title,
		DomainLength: ip.DomainLength,
		BaseGridSize: ip.BaseGridSize,
		Solver: solver.Config{
			AbsTol:         ip.AbsTol,
			RelTol:         ip.RelTol,
			DivTol:         ip.DivTol,
			MaxIterations:  ip.MaxIterations,
			Preconditioner: pc,
		},
	}
	err = p.Solver.Validate()
	return
}

func (ip *InputParametersPoisson) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", ip.Title)
	fmt.Fprintf(w, "%8.5f\t\t= DomainLength\n", ip.DomainLength)
	fmt.Fprintf(w, "[%d]\t\t\t= BaseGridSize\n", ip.BaseGridSize)
	fmt.Fprintf(w, "%8.1e\t\t= AbsTol\n", ip.AbsTol)
	fmt.Fprintf(w, "%8.1e\t\t= RelTol\n", ip.RelTol)
	fmt.Fprintf(w, "%8.1e\t\t= DivTol\n", ip.DivTol)
	fmt.Fprintf(w, "[%d]\t\t\t= MaxIterations\n", ip.MaxIterations)
	fmt.Fprintf(w, "[%s]\t\t\t= Preconditioner\n", ip.Preconditioner)
}
