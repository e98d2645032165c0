// v1
// cmd/perception-sim/main.go
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"drivex/decision/internal"
)

func main() {
	lg, lf := internal.InitLogger()
	defer lf.Close()

	cfg, err := internal.LoadSimEnv()
	if err != nil {
		lg.Error("config", "error", err)
		os.Exit(1)
	}

	interval := 100 * time.Millisecond
	if v := os.Getenv("SIM_INTERVAL_MS"); v != "" {
		if d, err := time.ParseDuration(v + "ms"); err == nil {
			interval = d
		}
	}

	sim, err := internal.NewPerceptionSimulator(cfg, interval)
	if err != nil {
		lg.Error("simulator", "error", err)
		os.Exit(1)
	}
	lg.Info("perception simulator publishing", "broker", cfg.MQTTBroker, "interval", interval)
	sim.Start()
	defer sim.Stop()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs
}
