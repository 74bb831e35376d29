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

// Package governor runs the feedback control loop between load sensing and
// frequency actuation, together with the side monitors feeding it.
package governor

import (
	"sync"
	"time"

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/config"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/freqtable"
)

// State is the one logical GPU shared by the loop and the monitors. Handles
// share it by reference. The lock is never held across blocking I/O or
// sleeps; the table and strategy are swapped wholesale so readers always see
// a consistent snapshot.
type State struct {
	sync.Mutex
	table       *freqtable.Table
	strategy    *config.Strategy
	curFreq     int64
	curIndex    int
	curVolt     int64
	v2          bool
	precise     bool
	v2Supported []int64
	aggressive  bool
	lastLoad    int
	interval    time.Duration
}

// NewState creates the shared GPU state at the lowest operating point.
func NewState(table *freqtable.Table, strategy *config.Strategy, v2, precise bool, v2Supported []int64) *State {
	return &State{
		table:       table,
		strategy:    strategy,
		curIndex:    0,
		curVolt:     0,
		v2:          v2,
		precise:     precise,
		v2Supported: v2Supported,
		interval:    time.Duration(strategy.SamplingIntervalMs) * time.Millisecond,
	}
}

// Snapshot is one consistent view of the fields a tick decides on.
type Snapshot struct {
	Table       *freqtable.Table
	Strategy    *config.Strategy
	Freq        int64
	Index       int
	Volt        int64
	V2          bool
	Precise     bool
	V2Supported []int64
	Aggressive  bool
}

// Snapshot returns a consistent copy of the decision inputs.
func (s *State) Snapshot() Snapshot {
	s.Lock()
	defer s.Unlock()

	return Snapshot{
		Table:       s.table,
		Strategy:    s.strategy,
		Freq:        s.curFreq,
		Index:       s.curIndex,
		Volt:        s.curVolt,
		V2:          s.v2,
		Precise:     s.precise,
		V2Supported: s.v2Supported,
		Aggressive:  s.aggressive,
	}
}

// SetCurrent records the operating point presented to the driver.
func (s *State) SetCurrent(freq int64, index int, volt int64) {
	s.Lock()
	defer s.Unlock()

	s.curFreq = freq
	s.curIndex = index
	s.curVolt = volt
}

// Current returns the current operating point.
func (s *State) Current() (int64, int, int64) {
	s.Lock()
	defer s.Unlock()

	return s.curFreq, s.curIndex, s.curVolt
}

// SetAggressive toggles the aggressive downscale flag.
func (s *State) SetAggressive(aggressive bool) {
	s.Lock()
	defer s.Unlock()

	s.aggressive = aggressive
}

// Aggressive returns the aggressive downscale flag.
func (s *State) Aggressive() bool {
	s.Lock()
	defer s.Unlock()

	return s.aggressive
}

// ReplaceConfig swaps in a reloaded table and strategy wholesale. The current
// index is re-clamped against the new table.
func (s *State) ReplaceConfig(table *freqtable.Table, strategy *config.Strategy) {
	s.Lock()
	defer s.Unlock()

	if table != nil {
		s.table = table
		if s.curIndex >= table.Len() {
			s.curIndex = table.Len() - 1
		}
	}
	if strategy != nil {
		s.strategy = strategy
	}
}

// Strategy returns the current strategy snapshot.
func (s *State) Strategy() *config.Strategy {
	s.Lock()
	defer s.Unlock()

	return s.strategy
}

// Table returns the current frequency table.
func (s *State) Table() *freqtable.Table {
	s.Lock()
	defer s.Unlock()

	return s.table
}

// V2 returns the driver generation flag.
func (s *State) V2() bool {
	s.Lock()
	defer s.Unlock()

	return s.v2
}

// SetTelemetry records the last sampled load and the active poll interval.
func (s *State) SetTelemetry(load int, interval time.Duration) {
	s.Lock()
	defer s.Unlock()

	s.lastLoad = load
	s.interval = interval
}

// Telemetry returns the last sampled load and the active poll interval.
func (s *State) Telemetry() (int, time.Duration) {
	s.Lock()
	defer s.Unlock()

	return s.lastLoad, s.interval
}
