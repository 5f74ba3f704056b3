// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/riglink-foundation/riglink/api"
	"github.com/riglink-foundation/riglink/lib/config"
	"github.com/riglink-foundation/riglink/lib/version"
	"github.com/riglink-foundation/riglink/session"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := pflag.String("config", "", "path to the riglink config file")
	verbose := pflag.Bool("verbose", false, "enable debug logging")
	showVersion := pflag.Bool("version", false, "print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return 0
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("loading config", "error", err)
		return 1
	}

	runner := api.New(api.Options{SHMDir: cfg.SHMDir, Logger: logger})
	defer runner.Close()
	queue := runner.NewEventQueue()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		logger.Info("shutting down")
		queue.Close()
	}()

	logger.Info("waiting for backend", "version", version.String())

	for {
		e, ok := queue.Pop()
		if !ok {
			return 0
		}
		switch event := e.(type) {
		case session.SessionStateChanged:
			logger.Info("session state changed",
				"state", event.State,
				"session_id", event.Session.SessionID(),
				"controller_id", event.ControllerID,
				"control_flags", fmt.Sprintf("%#x", event.ControlFlags))
		case session.DeviceInfoChanged:
			printDevices(logger, event.Session)
		case session.VariableDefinitionsChanged:
			logger.Info("variable definitions changed",
				"count", event.Session.Variables().Len())
		case session.TelemetryDefinitionsChanged:
			logger.Info("telemetry definitions changed",
				"count", event.Session.Telemetries().Len())
		case session.SimDataChanged:
			printSimData(logger, event.Session)
		}
	}
}

func printDevices(logger *slog.Logger, s *session.Session) {
	info := s.DeviceInfo()
	if info == nil {
		return
	}
	logger.Info("device inventory changed", "devices", info.Len())
	for i := 0; i < info.Len(); i++ {
		device := info.At(i)
		attrs := []any{
			"uid", device.UID,
			"session_id", uint16(device.SessionID),
			"role", device.Role,
			"connected", device.Connected,
			"inputs", len(device.Inputs),
			"feedbacks", len(device.Feedbacks),
		}
		if device.USB != nil {
			attrs = append(attrs, "hid_path", device.USB.HIDPath)
		}
		logger.Info("device", attrs...)
	}
}

func printSimData(logger *slog.Logger, s *session.Session) {
	data := s.SimData()
	if data == nil {
		return
	}
	attrs := []any{
		"vehicles", len(data.Vehicles()),
		"participants", len(data.Participants()),
		"tracks", len(data.Tracks()),
	}
	if current := data.CurrentSession(); current != nil {
		if sessionType, ok := current.String("session_type"); ok {
			attrs = append(attrs, "session_type", sessionType)
		}
	}
	if vehicle := data.PlayerVehicle(); vehicle != nil {
		attrs = append(attrs, "player_vehicle", vehicle.Name())
	}
	logger.Info("sim data changed", attrs...)
}
