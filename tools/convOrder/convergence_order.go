package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
)

var (
	csvFile string
)

func main() {
	csvFilePtr := flag.String("csvFile", csvFile, "CSV report written by fdmpoisson --csv")
	flag.Parse()
	csvFile = *csvFilePtr
	if len(csvFile) == 0 {
		flag.Usage()
		os.Exit(1)
	}
	fmt.Printf("Input file: %v\n", csvFile)
	f, err := os.Open(csvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
	defer f.Close()
	cs, err := readCSV(bufio.NewReader(f))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
	cs.Print(os.Stdout)
}

type ConvergenceStudy struct {
	gridSize []int
	l2, linf []float64
}

func (cs *ConvergenceStudy) Add(gridSize int, l2, linf float64) {
	cs.gridSize = append(cs.gridSize, gridSize)
	cs.l2 = append(cs.l2, l2)
	cs.linf = append(cs.linf, linf)
}

// Orders returns log(e_{l-1}/e_l)/log(h_{l-1}/h_l) for consecutive levels,
// which is log2 of the error ratio when the grid doubles. The first level
// has no predecessor and gets NaN.
func (cs *ConvergenceStudy) Orders() (l2Order, linfOrder []float64) {
	n := len(cs.gridSize)
	l2Order, linfOrder = make([]float64, n), make([]float64, n)
	for i := range cs.gridSize {
		if i == 0 {
			l2Order[i], linfOrder[i] = math.NaN(), math.NaN()
			continue
		}
		hRatio := math.Log(float64(cs.gridSize[i]-1) / float64(cs.gridSize[i-1]-1))
		l2Order[i] = math.Log(cs.l2[i-1]/cs.l2[i]) / hRatio
		linfOrder[i] = math.Log(cs.linf[i-1]/cs.linf[i]) / hRatio
	}
	return
}

func (cs *ConvergenceStudy) Print(w io.Writer) {
	l2Order, linfOrder := cs.Orders()
	fmt.Fprintf(w, "%10s | %13s | %8s | %13s | %8s\n", "Nx=Ny=Nz", "L2 error", "order", "Linf error", "order")
	for i := range cs.gridSize {
		fmt.Fprintf(w, "%10d | %13.3e | %8.3f | %13.3e | %8.3f\n",
			cs.gridSize[i], cs.l2[i], l2Order[i], cs.linf[i], linfOrder[i])
	}
}

func readCSV(r io.Reader) (cs *ConvergenceStudy, err error) {
	var (
		records  [][]string
		n        int
		l2, linf float64
	)
	cs = &ConvergenceStudy{}
	if records, err = csv.NewReader(r).ReadAll(); err != nil {
		return
	}
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) < 8 {
			return nil, fmt.Errorf("line %d: expected 8 fields, got %d", i+1, len(rec))
		}
		if n, err = strconv.Atoi(rec[1]); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if l2, err = strconv.ParseFloat(rec[6], 64); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if linf, err = strconv.ParseFloat(rec[7], 64); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		cs.Add(n, l2, linf)
	}
	return
}
