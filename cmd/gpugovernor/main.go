// Copyright 2024 The Mali GPU Governor Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/actuator"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/config"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/freqtable"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/governor"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/gpufs"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/load"
	logger "github.com/Tools-cx-app/mali-gpu-governor/pkg/log"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/metrics"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/pidfile"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/version"
)

func main() {
	log := logger.Default()

	flag.Parse()

	if len(flag.Args()) != 0 {
		log.Error("unknown command-line arguments: %s", strings.Join(flag.Args(), ","))
		flag.Usage()
		os.Exit(1)
	}

	if opt.logLevel != "" {
		if err := logger.SetLevelByName(opt.logLevel); err != nil {
			log.Fatal("invalid log level %q: %v", opt.logLevel, err)
		}
	}

	log.Info("%s", version.String())

	takePidfile(log)

	// The v2 driver generation is detected by its proc directory.
	v2 := gpufs.Exists(gpufs.V2Root)

	status := gpufs.NewStatus()

	// Both startup chains are strict, total exhaustion aborts here before
	// any monitor starts.
	sampler, err := load.NewSampler(status)
	if err != nil {
		log.Fatal("no usable GPU load source: %v", err)
	}
	reader, err := load.NewFrequencyReader(status, v2)
	if err != nil {
		log.Fatal("no usable GPU frequency report path: %v", err)
	}

	table, err := config.ReadFreqTable(opt.freqTable)
	if err != nil {
		log.Fatal("failed to load frequency table: %v", err)
	}
	strategy, err := config.ReadStrategy(opt.strategyConfig)
	if err != nil {
		log.Warn("%v, continuing with defaults", err)
	}

	var v2Supported []int64
	opps, err := freqtable.DiscoverOpps(v2)
	if err != nil {
		log.Warn("OPP discovery failed: %v", err)
	} else {
		table.SetDefaultVolts(opps.DefaultVolts)
		if v2 {
			v2Supported = opps.Freqs
		}
	}

	state := governor.NewState(table, strategy, v2, sampler.Precise(), v2Supported)

	if err := metrics.RegisterCollector("gpu", func() (prometheus.Collector, error) {
		return metrics.NewCollector(state)
	}); err != nil {
		log.Warn("failed to register GPU metrics collector: %v", err)
	}
	gatherer, err := metrics.NewMetricGatherer()
	if err != nil {
		log.Warn("failed to set up metrics gathering: %v", err)
	} else {
		go exportMetrics(log, gatherer)
	}

	monitors := governor.NewMonitors(state, opt.freqTable, opt.strategyConfig)
	monitors.Start()

	logSystemInfo(log, sampler, reader, table, strategy, v2, v2Supported)

	g := governor.NewGovernorWith(state, sampler, actuator.NewEngine())
	g.Run()
}

// takePidfile claims single-instance ownership or aborts.
func takePidfile(log logger.Logger) {
	if opt.pidFile != "" {
		pidfile.SetPath(opt.pidFile)
	}

	if pid, err := pidfile.OwnerPid(); err == nil && pid > 0 && pid != os.Getpid() {
		log.Fatal("another instance is already running with PID %d", pid)
	}
	pidfile.Remove()
	if err := pidfile.Write(); err != nil {
		log.Fatal("failed to write PID file %s: %v", pidfile.GetPath(), err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("received %v, exiting", sig)
		pidfile.Remove()
		os.Exit(0)
	}()
}

// metricsExportInterval is how often the metrics textfile is rewritten.
const metricsExportInterval = 60 * time.Second

// exportMetrics periodically rewrites the metrics textfile when -metrics-out
// is set, and dumps on SIGUSR1 in any case.
func exportMetrics(log logger.Logger, gatherer prometheus.Gatherer) {
	dump := make(chan os.Signal, 1)
	signal.Notify(dump, syscall.SIGUSR1)

	var tick <-chan time.Time
	if opt.metricsOut != "" {
		t := time.NewTicker(metricsExportInterval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-tick:
		case <-dump:
		}
		if opt.metricsOut == "" {
			continue
		}
		if err := metrics.WriteTextfile(gatherer, opt.metricsOut); err != nil {
			log.Warn("metrics export: %v", err)
		}
	}
}

// logSystemInfo reports the discovered hardware setup and active strategy.
func logSystemInfo(log logger.Logger, sampler *load.Sampler,
	reader *load.FrequencyReader, table *freqtable.Table, strategy *config.Strategy,
	v2 bool, v2Supported []int64) {

	driver := "gpufreq"
	if v2 {
		driver = "gpufreqv2"
	}

	if bootFreq, err := reader.ReadCurrent(); err == nil {
		log.Info("boot frequency: %d kHz", bootFreq)
	} else {
		log.Warn("failed to read boot frequency: %v", err)
	}
	log.Info("driver: %s", driver)
	log.Info("precise load counters: %v", sampler.Precise())
	log.Info("frequency range: %d - %d kHz, middle %d kHz",
		table.MinFreq(), table.MaxFreq(), table.MiddleFreq())
	log.Info("second highest frequency: %d kHz", table.SecondHighestFreq())
	log.Info("margin: %d%%, down threshold: %d samples", strategy.Margin, strategy.DownThreshold)
	if v2 {
		dcs := "disabled"
		if strategy.DcsEnable {
			dcs = "enabled"
		}
		log.Info("DCS: %s", dcs)
		if len(v2Supported) > 0 {
			log.Info("v2 driver supported frequencies: %v", v2Supported)
		}
	}
}
