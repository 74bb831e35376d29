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

// Package metrics exposes the governor state as prometheus collectors. There
// is no listener; the gatherer is for embedders and textfile exporters.
package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	logger "github.com/Tools-cx-app/mali-gpu-governor/pkg/log"
)

var (
	collectors = make(map[string]InitCollector)
	log        = logger.NewLogger("metrics")
)

// InitCollector is the type for functions that initialize collectors.
type InitCollector func() (prometheus.Collector, error)

// RegisterCollector registers the named prometheus.Collector for metrics collection.
func RegisterCollector(name string, init InitCollector) error {
	log.Info("registering collector %s...", name)

	if _, found := collectors[name]; found {
		return errors.Errorf("metrics: collector %s already registered", name)
	}

	collectors[name] = init

	return nil
}

// NewMetricGatherer creates a new prometheus.Gatherer with all registered
// collectors. The governor calls this once at startup, so a collector whose
// initialization fails is skipped for the lifetime of the process.
func NewMetricGatherer() (prometheus.Gatherer, error) {
	reg := prometheus.NewPedanticRegistry()

	for name, cb := range collectors {
		c, err := cb()
		if err != nil {
			log.Error("failed to initialize collector '%s': %v, skipping it", name, err)
			continue
		}
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrapf(err, "metrics: failed to register collector %s", name)
		}
	}

	return reg, nil
}
