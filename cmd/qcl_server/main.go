// Package main is the entry point of the laser controller service.
// It loads the configuration, builds the logger, opens the serial session and
// serves the monitor until interrupted.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"qclctl/internal/core"
	"qclctl/internal/model"
	"qclctl/internal/util"
)

func main() {
	cfgPath := flag.String("c", "configs/config.yml", "path to configuration file")
	flag.Parse()

	cfg, err := model.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, closer := util.NewLogger(cfg.Log, os.Stderr)
	defer func() { _ = closer.Close() }()
	log.Info("using config", "path", *cfgPath)

	sys, err := core.NewSystemFromConfig(cfg, core.OpenSerial, log)
	if err != nil {
		log.Error("failed to create system", "err", err)
		os.Exit(1)
	}
	if err := sys.StartAll(); err != nil {
		log.Error("failed to start system", "err", err)
		os.Exit(1)
	}

	// wait for Ctrl+C, SIGTERM or a dead monitor
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	exit := 0
	select {
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	case err := <-sys.Done():
		if err != nil {
			log.Error("monitor stopped", "err", err)
			exit = 1
		}
	}

	if err := sys.StopAll(); err != nil {
		log.Error("stop failed", "err", err)
		exit = 1
	}
	log.Info("system stopped cleanly")
	_ = closer.Close()
	os.Exit(exit)
}
