// Copyright 2026 The Riglink Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/riglink-foundation/riglink/api"
	"github.com/riglink-foundation/riglink/deviceinfo"
	"github.com/riglink-foundation/riglink/ffb"
	"github.com/riglink-foundation/riglink/lib/config"
	"github.com/riglink-foundation/riglink/lib/version"
	"github.com/riglink-foundation/riglink/session"
	"github.com/riglink-foundation/riglink/telemetry"
)

// Effect streaming parameters: each update covers updatePeriod of
// samples spaced sampleTime apart, sent slightly ahead of their start
// time so the device never starves.
const (
	sampleTime   = 2 * time.Millisecond
	updatePeriod = 8 * time.Millisecond
	leadTime     = 4 * time.Millisecond
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := pflag.String("config", "", "path to the riglink config file")
	amplitude := pflag.Float64("amplitude", 5.0, "force amplitude in newtons")
	frequency := pflag.Float64("frequency", 1.0, "sine frequency in hertz")
	showVersion := pflag.Bool("version", false, "print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return 0
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("loading config", "error", err)
		return 1
	}

	runner := api.New(api.Options{SHMDir: cfg.SHMDir, Logger: logger})
	defer runner.Close()
	enabler := api.NewNoAuthControlEnabler(runner,
		session.ControlFfbEffects|session.ControlTelemetry,
		cfg.Identity.ID, session.UserInfo{
			DisplayName: cfg.Identity.DisplayName,
			Version:     cfg.Identity.Version,
			Author:      cfg.Identity.Author,
		})
	defer enabler.Close()

	queue := runner.NewEventQueue()
	defer queue.Close()

	events := make(chan session.Event, 16)
	go func() {
		for {
			e, ok := queue.Pop()
			if !ok {
				close(events)
				return
			}
			events <- e
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	var pipeline *ffb.Pipeline
	var group *telemetry.Group
	rpm := telemetry.NewFloat32("engine_rpm")
	gear := telemetry.NewInt8("transmission_gear")
	absActive := telemetry.NewBool("abs_active")

	ticker := time.NewTicker(updatePeriod)
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-signals:
			logger.Info("shutting down")
			if pipeline != nil {
				pipeline.Stop()
				pipeline.Close()
			}
			if group != nil {
				group.Disable()
			}
			return 0

		case e, ok := <-events:
			if !ok {
				return 0
			}
			switch event := e.(type) {
			case session.SessionStateChanged:
				logger.Info("session state", "state", event.State)
				if event.State != session.ConnectedControl {
					// The pipeline and group died with the session.
					pipeline = nil
					group = nil
					continue
				}
				pipeline = setupPipeline(logger, event.Session)
				group = setupTelemetry(logger, event.Session, rpm, gear, absActive)
			case session.DeviceInfoChanged:
				if event.Session.State() == session.ConnectedControl && pipeline == nil {
					pipeline = setupPipeline(logger, event.Session)
				}
			}

		case <-ticker.C:
			elapsed := time.Since(start).Seconds()
			if pipeline != nil {
				samples := sineSamples(elapsed, *amplitude, *frequency)
				pipeline.GenerateEffect(ffb.Now()+leadTime.Nanoseconds(), sampleTime, samples)
			}
			if group != nil {
				rpm.Set(float32(4000 + 2500*math.Sin(elapsed)))
				gear.Set(int8(3))
				absActive.Set(math.Sin(elapsed*7) > 0.9)
				group.Send()
			}
		}
	}
}

// sineSamples produces one update's worth of force samples.
func sineSamples(elapsed, amplitude, frequency float64) []float32 {
	count := int(updatePeriod / sampleTime)
	samples := make([]float32, count)
	for i := range samples {
		at := elapsed + float64(i)*sampleTime.Seconds()
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*frequency*at))
	}
	return samples
}

// setupPipeline finds a feedback-capable device and claims a force
// pipeline on it.
func setupPipeline(logger *slog.Logger, s *session.Session) *ffb.Pipeline {
	info := s.DeviceInfo()
	if info == nil {
		return nil
	}

	device := info.FindFirst(func(d *deviceinfo.Device) bool {
		return d.Connected && d.HasFeedbackType(deviceinfo.FeedbackActivePedal)
	})
	offsetType := ffb.OffsetForceN
	if device == nil {
		device = info.FindFirst(func(d *deviceinfo.Device) bool {
			return d.Connected && d.HasFeedbackType(deviceinfo.FeedbackWheelbase)
		})
		offsetType = ffb.OffsetTorqueNm
	}
	if device == nil {
		logger.Info("no feedback-capable device connected")
		return nil
	}

	pipeline := ffb.NewPipeline(s, device.SessionID)
	err := pipeline.Configure(ffb.PipelineConfig{
		OffsetType:    offsetType,
		Interpolation: ffb.InterpolationLinear,
		Gain:          1,
	})
	if err != nil {
		logger.Error("configuring pipeline", "device", device.UID, "error", err)
		return nil
	}
	logger.Info("pipeline configured",
		"device", device.UID, "pipeline_id", pipeline.PipelineID(), "offset", offsetType)
	return pipeline
}

// setupTelemetry registers the demo's update group.
func setupTelemetry(logger *slog.Logger, s *session.Session, cells ...telemetry.Telemetry) *telemetry.Group {
	group := telemetry.NewGroup(1, s)
	group.Add(cells...)
	if err := group.Configure(s.Telemetries()); err != nil {
		logger.Warn("telemetry group not configured", "error", err)
		return nil
	}
	logger.Info("telemetry group registered", "group_id", group.ID())
	return group
}
