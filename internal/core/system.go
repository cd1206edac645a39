// Package core wires the laser controller system together: it opens the
// serial session, builds the command engine with its recorders and runs the
// monitor, following one YAML configuration.
package core

import (
	"errors"
	"fmt"
	"sync"

	"qclctl/internal/app"
	"qclctl/internal/device"
	"qclctl/internal/journal"
	"qclctl/internal/logger"
	"qclctl/internal/model"
	"qclctl/internal/protocol"
)

// OpenFunc opens the device described by cfg.
type OpenFunc func(cfg model.SerialConfig, log logger.Logger) (device.Device, error)

// OpenSerial opens the serial port of cfg.
func OpenSerial(cfg model.SerialConfig, log logger.Logger) (device.Device, error) {
	dev, err := device.NewSerialDevice(cfg.Port, cfg.Baud,
		device.WithTimeout(cfg.Timeout()),
		device.WithTerminator(cfg.Terminator),
		device.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	if log != nil {
		log.Info("serial session ready", "port", dev.Port(), "timeout", dev.Timeout())
	}
	return dev, nil
}

// System manages lifecycle of the session, the engine, the journals and the monitor.
type System struct {
	cfg *model.Config
	log logger.Logger

	Device  device.Device
	Engine  *protocol.Engine
	Memory  *journal.Memory
	Store   *journal.Store
	Hub     *app.Hub
	Monitor *app.App

	started   bool
	startLock sync.Mutex
	serveErr  chan error
}

// NewSystem reads the YAML configuration at cfgPath and builds the system on the serial port.
func NewSystem(cfgPath string, log logger.Logger) (*System, error) {
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	return NewSystemFromConfig(cfg, OpenSerial, log)
}

// NewSystemFromConfig opens the device with open and constructs every component cfg enables.
func NewSystemFromConfig(cfg *model.Config, open OpenFunc, log logger.Logger) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	s := &System{cfg: cfg, log: log.With("component", "system")}

	dev, err := open(cfg.Serial, log)
	if err != nil {
		return nil, err
	}
	s.Device = dev

	opts := []protocol.Option{
		protocol.WithTimeout(cfg.Serial.Timeout()),
		protocol.WithGetRetries(cfg.Engine.GetRetries),
		protocol.WithLogger(log),
	}

	var j journal.Journal
	if cfg.Journal.Enabled {
		s.Memory = journal.NewMemory(cfg.Journal.MemorySize)
		opts = append(opts, protocol.WithRecorder(s.Memory))
		j = s.Memory
		if cfg.Journal.Path != "" {
			store, err := journal.OpenStore(cfg.Journal.Path,
				journal.WithMaxEntries(cfg.Journal.MaxEntries),
				journal.WithStoreLogger(log),
			)
			if err != nil {
				_ = dev.Close()
				return nil, err
			}
			s.Store = store
			opts = append(opts, protocol.WithRecorder(store))
			j = store
		}
	}

	if cfg.Monitor.Addr != "" {
		s.Hub = app.NewHub(log)
		opts = append(opts, protocol.WithRecorder(s.Hub))
	}

	s.Engine = protocol.NewEngine(dev, protocol.QCLRegistry(), opts...)

	if cfg.Monitor.Addr != "" {
		appOpts := []app.Option{app.WithHub(s.Hub), app.WithJWTSecret(cfg.Monitor.JWTSecret), app.WithLogger(log)}
		if j != nil {
			appOpts = append(appOpts, app.WithJournal(j))
		}
		s.Monitor, err = app.NewApp(s.Engine, appOpts...)
		if err != nil {
			_ = s.close()
			return nil, err
		}
	}
	return s, nil
}

// Config returns the configuration the system was built from.
func (s *System) Config() *model.Config { return s.cfg }

// StartAll starts the monitor in the background. Errors of the running
// server are delivered on Done.
func (s *System) StartAll() error {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if s.started {
		return nil
	}
	s.serveErr = make(chan error, 1)
	if s.Monitor != nil {
		go func() {
			s.serveErr <- s.Monitor.Start(s.cfg.Monitor.Addr)
		}()
	}
	s.started = true
	s.log.Info("system started", "port", s.cfg.Serial.Port, "monitor", s.cfg.Monitor.Addr)
	return nil
}

// Done reports a monitor failure. It never fires for a system without monitor.
func (s *System) Done() <-chan error {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	return s.serveErr
}

// StopAll stops the monitor and releases the device and the journal store.
func (s *System) StopAll() error {
	s.startLock.Lock()
	defer s.startLock.Unlock()
	if s.Monitor != nil && s.started {
		s.Monitor.Stop()
	}
	s.started = false
	return s.close()
}

func (s *System) close() error {
	var errs []error
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
		s.Store = nil
	}
	if s.Device != nil {
		errs = append(errs, s.Device.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("stop system: %w", err)
	}
	s.log.Info("system stopped")
	return nil
}
