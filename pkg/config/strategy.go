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

// Package config loads the external governor configuration: the mandatory
// frequency table file and the optional YAML strategy file.
package config

import (
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/gpufs"
	logger "github.com/Tools-cx-app/mali-gpu-governor/pkg/log"
)

// our logger instance
var log logger.Logger = logger.NewLogger("config")

// configReadLimit bounds how much of a config file we read.
const configReadLimit = 64 * 1024

// AdaptiveSampling bounds the governor poll interval when adaptation is on.
type AdaptiveSampling struct {
	// Enabled turns interval adaptation on.
	Enabled bool `json:"enabled"`
	// MinMs is the shortest poll interval in milliseconds.
	MinMs int `json:"minMs"`
	// MaxMs is the longest poll interval in milliseconds.
	MaxMs int `json:"maxMs"`
}

// Strategy is the set of tunables steering frequency decisions.
type Strategy struct {
	// Margin is the upscale headroom in percent, upscale at load >= 100-Margin.
	Margin int `json:"margin"`
	// DownThreshold is how many consecutive below-threshold samples are
	// needed before stepping down.
	DownThreshold int `json:"downThreshold"`
	// SamplingIntervalMs is the base poll interval in milliseconds.
	SamplingIntervalMs int `json:"samplingIntervalMs"`
	// AggressiveDown steps down after a single below-threshold sample.
	AggressiveDown bool `json:"aggressiveDown"`
	// LoadStabilityThreshold is how many consecutive same-direction votes
	// are needed before any index change.
	LoadStabilityThreshold int `json:"loadStabilityThreshold"`
	// AdaptiveSampling configures poll interval adaptation.
	AdaptiveSampling AdaptiveSampling `json:"adaptiveSampling"`
	// DcsEnable allows powering the GPU down at the lowest operating
	// point on v2 drivers.
	DcsEnable bool `json:"dcsEnable"`
}

// DefaultStrategy returns the strategy used when no config file is present.
func DefaultStrategy() *Strategy {
	return &Strategy{
		Margin:                 10,
		DownThreshold:          3,
		SamplingIntervalMs:     8,
		AggressiveDown:         false,
		LoadStabilityThreshold: 1,
		AdaptiveSampling: AdaptiveSampling{
			Enabled: false,
			MinMs:   8,
			MaxMs:   120,
		},
		DcsEnable: false,
	}
}

// sanitize clamps out-of-range values back to something the loop can run on.
func (s *Strategy) sanitize() {
	def := DefaultStrategy()
	if s.Margin < 0 || s.Margin > 100 {
		s.Margin = def.Margin
	}
	if s.DownThreshold < 1 {
		s.DownThreshold = 1
	}
	if s.SamplingIntervalMs < 1 {
		s.SamplingIntervalMs = def.SamplingIntervalMs
	}
	if s.LoadStabilityThreshold < 1 {
		s.LoadStabilityThreshold = 1
	}
	if s.AdaptiveSampling.MinMs < 1 {
		s.AdaptiveSampling.MinMs = def.AdaptiveSampling.MinMs
	}
	if s.AdaptiveSampling.MaxMs < s.AdaptiveSampling.MinMs {
		s.AdaptiveSampling.MaxMs = s.AdaptiveSampling.MinMs
	}
}

// ReadStrategy loads the YAML strategy file. A missing file is not an error,
// the defaults are returned with a warning. Malformed content is an error and
// the caller is expected to keep running on defaults.
func ReadStrategy(path string) (*Strategy, error) {
	s := DefaultStrategy()

	if !gpufs.Exists(path) {
		log.Warn("strategy config %s not found, using defaults", path)
		return s, nil
	}

	data, err := gpufs.ReadFile(path, configReadLimit)
	if err != nil {
		return DefaultStrategy(), errors.Wrapf(err, "failed to read strategy config %s", path)
	}
	if err := yaml.Unmarshal([]byte(data), s); err != nil {
		return DefaultStrategy(), errors.Wrapf(err, "invalid strategy config %s", path)
	}

	s.sanitize()
	return s, nil
}
