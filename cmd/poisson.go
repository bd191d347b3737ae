/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/profile"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/notargets/fdmpoisson/InputParameters"
	"github.com/notargets/fdmpoisson/model_problems/Poisson3D"
	"github.com/notargets/fdmpoisson/solver/occa"
	"github.com/notargets/fdmpoisson/utils"
)

type Options struct {
	ICFile   string
	Device   string
	Executor string
	Workers  int
	CSVFile  string
	Profile  string
	Perf     bool
	Verbose  bool
}

var defaultOptions = Options{
	Device:   occa.DefaultDeviceProps,
	Executor: utils.Pargo.String(),
}

func optionsFromViper() Options {
	return Options{
		ICFile:   viper.GetString("inputConditionsFile"),
		Device:   viper.GetString("device"),
		Executor: viper.GetString("executor"),
		Workers:  viper.GetInt("workers"),
		CSVFile:  viper.GetString("csv"),
		Profile:  viper.GetString("profile"),
		Perf:     viper.GetBool("perf"),
		Verbose:  viper.GetBool("verbose"),
	}
}

func parseLevelMax(arg string) (levelMax int, err error) {
	if levelMax, err = strconv.Atoi(strings.TrimSpace(arg)); err != nil {
		return 0, fmt.Errorf("level_max must be a non-negative integer, got %q", arg)
	}
	if levelMax < 0 {
		return 0, fmt.Errorf("level_max must be a non-negative integer, got %d", levelMax)
	}
	return
}

// RunPoisson opens the solver platform, runs the refinement study through
// levelMax and writes the report to out. The platform is closed on every
// return path.
func RunPoisson(opts Options, levelMax int, out io.Writer) (err error) {
	var (
		logger *zap.Logger
		ip     *InputParameters.InputParametersPoisson
		params Poisson3D.Params
		et     utils.ExecutorType
		pl     *occa.Platform
	)
	if logger, err = newLogger(opts.Verbose); err != nil {
		return
	}
	defer func() { _ = logger.Sync() }()

	var stop func()
	if stop, err = startProfile(opts.Profile); err != nil {
		return
	}
	defer stop()

	if ip, err = processInput(opts.ICFile); err != nil {
		return
	}
	if opts.Verbose {
		ip.Print(out)
	}
	if params, err = ip.Params(); err != nil {
		return
	}
	if et, err = utils.NewExecutorType(opts.Executor); err != nil {
		return
	}
	ex := utils.NewExecutor(et, opts.Workers)

	if pl, err = occa.Open(opts.Device, ex, logger, opts.Perf); err != nil {
		return
	}
	defer func() {
		if cerr := pl.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	fmt.Fprintln(out, pl.Describe())

	reporters := Poisson3D.Reporters{Poisson3D.NewTextReporter(out)}
	if opts.CSVFile != "" {
		var f *os.File
		if f, err = os.Create(opts.CSVFile); err != nil {
			return
		}
		defer f.Close()
		reporters = append(reporters, Poisson3D.NewCSVReporter(f))
	}

	study := Poisson3D.NewStudy(params, pl.Host(), pl.Accelerator(), ex, reporters, logger)
	_, err = study.Run(levelMax)
	return
}

// processInput returns the defaults overlaid with the contents of icFile,
// if one is given.
func processInput(icFile string) (ip *InputParameters.InputParametersPoisson, err error) {
	ip = InputParameters.NewInputParametersPoisson()
	if len(icFile) == 0 {
		return
	}
	var data []byte
	if data, err = os.ReadFile(icFile); err != nil {
		return nil, err
	}
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("input parameters file %s: %w", icFile, err)
	}
	return
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func startProfile(mode string) (stop func(), err error) {
	var p interface{ Stop() }
	switch strings.ToLower(mode) {
	case "":
		return func() {}, nil
	case "cpu":
		p = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "mem":
		p = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		return nil, fmt.Errorf("unknown profile mode %q, must be cpu or mem", mode)
	}
	return p.Stop, nil
}
