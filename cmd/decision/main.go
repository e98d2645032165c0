// v1
// cmd/decision/main.go
package main

import (
	"context"
	"os"
	"time"

	"drivex/decision/internal"
)

func main() {
	lg, lf := internal.InitLogger()
	defer func(lf *os.File) {
		err := lf.Close()
		if err != nil {
			lg.Error("log file close", "error", err)
		}
	}(lf)
	lg.Info("decision service starting")

	cfg, err := internal.LoadEnvAndFiles()
	if err != nil {
		lg.Error("config", "error", err)
		os.Exit(1)
	}
	lg.Info("config loaded", "model", cfg.ModelName, "broker", cfg.MQTTBroker, "tick_hz", cfg.TickRateHz)

	meta, err := internal.LoadModelMetadata(cfg.DrivingDir, cfg.ModelName)
	if err != nil {
		lg.Error("model metadata", "error", err)
		os.Exit(1)
	}
	cruise, err := meta.CruiseVelocity()
	if err != nil {
		lg.Error("model metadata", "error", err)
		os.Exit(1)
	}
	cfg.Policy.CruiseVelocity = cruise
	lg.Info("model metadata loaded", "cruise_velocity", cruise)

	state := internal.NewVehicleState()
	stats := internal.NewEngineStats()

	io, err := internal.NewMQTTIO(cfg, lg)
	if err != nil {
		lg.Error("mqtt", "error", err)
		os.Exit(1)
	}
	defer io.Close()
	if err := io.SubscribePerception(internal.NewHandlers(state), stats); err != nil {
		lg.Error("mqtt subscribe", "error", err)
		os.Exit(1)
	}

	ledger, err := internal.NewDriveLedger(cfg, lg)
	if err != nil {
		lg.Error("ledger", "error", err)
		os.Exit(1)
	}
	defer ledger.Close()

	console := internal.NewConsole(os.Stdin, os.Stdout)
	eng := internal.NewEngine(cfg, lg, internal.EngineDeps{
		Pub:     io,
		State:   state,
		Meta:    meta,
		Ledger:  ledgerOrNil(ledger),
		Stats:   stats,
		Console: console,
	})

	srv := internal.NewHTTPServer(cfg, lg, eng, state, stats)
	go func() {
		if err := srv.Start(); err != nil {
			lg.Error("http", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	internal.NotifySignals(eng, lg)

	runErr := eng.Run(ctx)

	sh, c := context.WithTimeout(context.Background(), 5*time.Second)
	defer c()
	_ = srv.Stop(sh)
	if runErr != nil {
		lg.Error("decision service stopped", "error", runErr)
		os.Exit(1)
	}
	lg.Info("decision service stopped")
}

// ledgerOrNil keeps the engine's nil check honest: a typed nil pointer
// inside the interface would defeat it.
func ledgerOrNil(l *internal.DriveLedger) internal.LedgerRecorder {
	if l == nil {
		return nil
	}
	return l
}
