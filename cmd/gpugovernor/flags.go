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

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/gpufs"
)

// Options captures our main configuration options.
type options struct {
	freqTable      string // frequency table file, mandatory at startup.
	strategyConfig string // optional strategy YAML.
	pidFile        string // overrides the default PID file path.
	logLevel       string // initial log level, the log-level file overrides it at runtime.
	metricsOut     string // textfile-exporter output, empty disables it.
}

var opt = options{}

func init() {
	flag.StringVar(&opt.freqTable, "freq-table", gpufs.FreqTablePath,
		"frequency table file to load.")
	flag.StringVar(&opt.strategyConfig, "strategy-config", gpufs.StrategyConfigPath,
		"strategy configuration file, defaults are used if missing.")
	flag.StringVar(&opt.pidFile, "pid-file", "",
		"PID file path, empty for the default.")
	flag.StringVar(&opt.logLevel, "log-level", "",
		"initial log level (debug, info, warn, error).")
	flag.StringVar(&opt.metricsOut, "metrics-out", "",
		"file to periodically write metrics to in text exposition format, empty to disable.")
}
