// Command simcore reads a Config JSON document from a file argument (or
// stdin), runs one episode, and writes the resulting Outcome JSON to
// stdout. Mirrors the teacher's cmd/cli entry point, adding a human
// readable run banner/summary on a separate CLI operator logger.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/driveresearch/simcore/internal/config"
)

func main() {
	cliLog := logrus.New()
	cliLog.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	data, err := readInput()
	if err != nil {
		cliLog.WithError(err).Error("reading input")
		os.Exit(1)
	}

	var cfg config.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		cliLog.WithError(err).Error("parsing config")
		os.Exit(1)
	}

	ep, err := cfg.Build(nil)
	if err != nil {
		cliLog.WithError(err).Error("building episode")
		os.Exit(1)
	}

	cliLog.WithFields(logrus.Fields{
		"run_id":        ep.RunID(),
		"clock_rate_hz": cfg.ClockRateHz,
		"duration_sim":  cfg.DurationSim,
		"seed":          cfg.Seed,
	}).Info("starting episode")

	outcome := ep.Run(cfg.DurationSim, nil)

	cliLog.WithFields(logrus.Fields{
		"run_id": outcome.RunID,
		"status": outcome.Result.Status,
	}).Info("episode finished")

	out, err := json.Marshal(outcome)
	if err != nil {
		cliLog.WithError(err).Error("marshalling outcome")
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func readInput() ([]byte, error) {
	if len(os.Args) > 1 {
		return os.ReadFile(os.Args[1])
	}
	return io.ReadAll(os.Stdin)
}
