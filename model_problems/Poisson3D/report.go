package Poisson3D

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Reporter receives the study output in order: Begin, then for every level
// any Warn calls followed by one Row, then End.
type Reporter interface {
	Begin(p Params) error
	Warn(d Divergence) error
	Row(r Row) error
	End() error
}

const (
	tableHeader = "Level |   Nx=Ny=Nz   |    DoF     | CG iters | GPU Solver time [s] | CPU Solver time [s] |    L2 error   |  Linf error"
	rowFormat   = "%5d | %12d | %10d | %8d | %19.3f | %19.3f | %13.3e | %11.3e\n"
)

var rule = strings.Repeat("-", len(tableHeader))

// TextReporter writes the fixed width table.
type TextReporter struct {
	W io.Writer
}

func NewTextReporter(w io.Writer) *TextReporter { return &TextReporter{W: w} }

func (tr *TextReporter) Begin(p Params) (err error) {
	_, err = fmt.Fprintf(tr.W, "Refinement study (Poisson 3D, %s + CG)\n%s\n%s\n%s\n",
		p.Solver.Preconditioner, rule, tableHeader, rule)
	return
}

func (tr *TextReporter) Warn(d Divergence) (err error) {
	if d.Quantity == "CG iterations" {
		_, err = fmt.Fprintf(tr.W, "Mismatch at level %d: %s CPU=%d, GPU=%d\n",
			d.Level, d.Quantity, int(d.Host), int(d.Accel))
		return
	}
	_, err = fmt.Fprintf(tr.W, "Mismatch at level %d: %s CPU=%e, GPU=%e\n", d.Level, d.Quantity, d.Host, d.Accel)
	return
}

func (tr *TextReporter) Row(r Row) (err error) {
	_, err = fmt.Fprintf(tr.W, rowFormat, r.Level, r.GridSize, r.DoF, r.Iterations,
		r.AccelTime.Seconds(), r.HostTime.Seconds(), r.L2, r.Linf)
	return
}

func (tr *TextReporter) End() (err error) {
	_, err = fmt.Fprintln(tr.W, rule)
	return
}

var CSVHeader = []string{"level", "grid_size", "dof", "iterations", "accel_time", "host_time", "l2", "linf"}

// CSVReporter writes one record per level, flushed as each level completes
// so an aborted study still leaves its finished levels on disk.
type CSVReporter struct {
	w *csv.Writer
}

func NewCSVReporter(w io.Writer) *CSVReporter { return &CSVReporter{w: csv.NewWriter(w)} }

func (cr *CSVReporter) Begin(Params) error {
	return cr.write(CSVHeader)
}

func (cr *CSVReporter) Warn(Divergence) error { return nil }

func (cr *CSVReporter) Row(r Row) error {
	f := func(v float64) string { return strconv.FormatFloat(v, 'e', 9, 64) }
	return cr.write([]string{
		strconv.Itoa(r.Level), strconv.Itoa(r.GridSize), strconv.Itoa(r.DoF), strconv.Itoa(r.Iterations),
		f(r.AccelTime.Seconds()), f(r.HostTime.Seconds()), f(r.L2), f(r.Linf),
	})
}

func (cr *CSVReporter) End() error { return nil }

func (cr *CSVReporter) write(rec []string) error {
	if err := cr.w.Write(rec); err != nil {
		return err
	}
	cr.w.Flush()
	return cr.w.Error()
}

// Reporters fans every call out to each member in order.
type Reporters []Reporter

func (rs Reporters) Begin(p Params) error {
	return rs.each(func(r Reporter) error { return r.Begin(p) })
}

func (rs Reporters) Warn(d Divergence) error {
	return rs.each(func(r Reporter) error { return r.Warn(d) })
}

func (rs Reporters) Row(row Row) error {
	return rs.each(func(r Reporter) error { return r.Row(row) })
}

func (rs Reporters) End() error {
	return rs.each(func(r Reporter) error { return r.End() })
}

func (rs Reporters) each(f func(r Reporter) error) error {
	for _, r := range rs {
		if err := f(r); err != nil {
			return err
		}
	}
	return nil
}
