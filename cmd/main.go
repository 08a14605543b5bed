package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/momentumfc/momentum/internal/logger"
	"github.com/momentumfc/momentum/pkg/momentum"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: momentum [-config file] [-days n] <predict|learn|weights>")
	flag.PrintDefaults()
}

func main() {
	logger.SetShowDateTime(true)

	configPath := flag.String("config", "", "path to a yaml config override file")
	days := flag.Int("days", 0, "fixture horizon in days, overrides config")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	if *verbose {
		logger.SetLevel(logger.DEBUG)
	}

	if *configPath != "" {
		if err := momentum.LoadConfigFile(*configPath); err != nil {
			logger.Fatal("Invalid config file:", err)
		}
	}
	if *days > 0 {
		momentum.Config.FixtureHorizon = *days
	}

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	switch flag.Arg(0) {
	case "predict":
		logger.Info("Starting predict cycle")
		if err := momentum.RunPredictCycle(); err != nil {
			logger.Error("Predict cycle failed:", err)
			os.Exit(1)
		}
	case "learn":
		logger.Info("Starting learn cycle")
		if err := momentum.RunLearnCycle(); err != nil {
			logger.Error("Learn cycle failed:", err)
			os.Exit(1)
		}
	case "weights":
		ws, err := momentum.LoadWeightSet()
		if err != nil {
			logger.Error("Could not load weights:", err)
			os.Exit(1)
		}
		snapshot := ws.Snapshot()
		names := make([]string, 0, len(snapshot))
		for name := range snapshot {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%-22s %.3f\n", name, snapshot[name])
		}
	default:
		usage()
		os.Exit(2)
	}
}
