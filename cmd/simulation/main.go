// Laser controller simulator: answers QCL commands on the given serial device.
// Use this for local testing when you don't have the controller hardware.
//
//	simulation -pair /tmp/qcl-host,/tmp/qcl-dev -dev /tmp/qcl-dev
//	qclctl -port /tmp/qcl-host get wavenumber
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"qclctl/internal/device"
	"qclctl/internal/logger"
	"qclctl/internal/util"
)

func main() {
	dev := flag.String("dev", "/dev/serial0", "serial device to answer on")
	baud := flag.Int("baud", 115200, "baud rate")
	pair := flag.String("pair", "", "create a socat pair HOST,DEV before serving")
	clamp := flag.Bool("clamp", false, "clamp out of range settings instead of refusing them")
	mute := flag.Bool("mute", false, "swallow every command without replying")
	verbose := flag.Bool("v", false, "log every command")
	flag.Parse()

	level := logger.InfoLevel
	if *verbose {
		level = logger.DebugLevel
	}
	log := logger.NewSlog(os.Stderr, level, true).With("component", "simulation")

	var socat *util.SocatManager
	if *pair != "" {
		ends := strings.Split(*pair, ",")
		if len(ends) != 2 {
			fmt.Fprintln(os.Stderr, "-pair wants HOST,DEV")
			os.Exit(2)
		}
		socat = util.NewSocatManager(log)
		if err := socat.CreatePair(ends[0], ends[1]); err != nil {
			log.Error("create pair", "err", err)
			os.Exit(1)
		}
		defer socat.Cleanup()
	}

	port, err := device.NewSerialDevice(*dev, *baud,
		device.WithTimeout(200*time.Millisecond),
		device.WithLogger(log),
	)
	if err != nil {
		log.Error("open serial", "err", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := port.Close(); cerr != nil {
			log.Warn("close serial", "err", cerr)
		}
	}()

	fw := device.NewFirmware()
	fw.SetClamp(*clamp)
	fw.SetMute(*mute)

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		close(stop)
	}()

	log.Info("simulator serving", "dev", *dev, "baud", *baud, "clamp", *clamp, "mute", *mute)
	if err := fw.Serve(port, stop); err != nil {
		log.Error("serve", "err", err)
	}
	log.Info("simulator stopped")
}
