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
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fdmpoisson [flags] level_max",
	Short: "3D finite difference Poisson refinement study, host vs accelerator",
	Long: `
Assembles the 7 point finite difference Poisson operator on n^3 grids with
n = BaseGridSize * 2^level for level = 0..level_max, solves each system with
preconditioned CG on the host and on an OCCA device, and reports iterations,
solve times and the L2 / Linf error against the manufactured solution.

fdmpoisson 2`,
	Args: func(cmd *cobra.Command, args []string) (err error) {
		if err = cobra.ExactArgs(1)(cmd, args); err != nil {
			return
		}
		_, err = parseLevelMax(args[0])
		return
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		levelMax, _ := parseLevelMax(args[0])
		cmd.SilenceUsage = true
		return RunPoisson(optionsFromViper(), levelMax, cmd.OutOrStdout())
	},
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fdmpoisson.yaml)")

	flags := rootCmd.Flags()
	flags.StringP("inputConditionsFile", "I", "", "YAML file for input parameters like:\n\t- BaseGridSize\n\t- AbsTol, RelTol, DivTol\n\t- Preconditioner")
	flags.String("device", defaultOptions.Device, "OCCA device properties, e.g. '{\"mode\": \"CUDA\", \"device_id\": 0}'")
	flags.String("executor", defaultOptions.Executor, "host parallel executor: pargo, partition, errgroup or serial")
	flags.Int("workers", defaultOptions.Workers, "host worker count, 0 uses every CPU")
	flags.String("csv", "", "also write the report as CSV to this file")
	flags.String("profile", "", "write a pprof profile: cpu or mem")
	flags.Bool("perf", false, "sample CPU cycles of the host solve with perf counters")
	flags.BoolP("verbose", "v", false, "debug logging and input parameter echo")
	for _, name := range []string{"inputConditionsFile", "device", "executor", "workers", "csv", "profile", "perf", "verbose"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
			os.Exit(1)
		}

		// Search config in home directory with name ".fdmpoisson" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".fdmpoisson")
	}

	viper.SetEnvPrefix("FDMPOISSON")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
