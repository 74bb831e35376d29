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

package governor

import (
	"time"

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/actuator"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/config"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/freqtable"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/load"
	logger "github.com/Tools-cx-app/mali-gpu-governor/pkg/log"
)

const (
	// historyLen is how many load samples back the adaptive sampler looks.
	historyLen = 16
	// volatileSpread is the sample spread above which load counts as
	// volatile while the moving average is still warming up.
	volatileSpread = 20.0
	// ewmaBand is how far a sample may diverge from the moving average
	// before load counts as volatile.
	ewmaBand = 10.0
	// intervalStep is how much a stable interval grows per tick.
	intervalStep = 5 * time.Millisecond
	// tickErrorRate caps how often per-tick errors reach the log.
	tickErrorRate = 5 * time.Second
)

// sampler is the LoadSampler surface the loop needs.
type sampler interface {
	SampleLoad() (int, error)
}

// engine is the ActuationEngine surface the loop needs.
type engine interface {
	Apply(actuator.Request) error
}

// Governor drives the sample, decide, actuate cycle against the shared state.
// Only the governor loop calls SampleLoad, the precise-counter deltas are
// single-generation.
type Governor struct {
	logger.Logger
	rlog    logger.Logger
	state   *State
	sampler sampler
	engine  engine
	history *loadHistory

	// hysteresis streaks, reset on every index change
	aboveStreak int
	belowStreak int

	interval time.Duration
}

// NewGovernor creates the control loop around the shared state.
func NewGovernor(state *State, s sampler, e engine) *Governor {
	l := logger.NewLogger("governor")
	g := &Governor{
		Logger:   l,
		rlog:     logger.RateLimit(l, logger.Interval(tickErrorRate)),
		state:    state,
		sampler:  s,
		engine:   e,
		history:  newLoadHistory(historyLen),
		interval: time.Duration(state.Strategy().SamplingIntervalMs) * time.Millisecond,
	}
	return g
}

// NewGovernorWith creates the loop with real collaborators.
func NewGovernorWith(state *State, s *load.Sampler, e *actuator.Engine) *Governor {
	return NewGovernor(state, s, e)
}

// Run ticks forever. Runtime errors never terminate the loop, only startup
// sensor exhaustion is fatal and that happens before Run.
func (g *Governor) Run() {
	g.Info("governor loop running")
	for {
		g.Tick()
		time.Sleep(g.interval)
	}
}

// Tick performs one sample, decide, actuate cycle and adapts the interval.
func (g *Governor) Tick() {
	loadPct, err := g.sampler.SampleLoad()
	if err != nil {
		g.rlog.Warn("load sampling failed: %v", err)
		return
	}

	snap := g.state.Snapshot()
	target := g.decide(loadPct, snap)
	idle := loadPct == 0 && target == 0

	freq, volt := resolve(snap, target)

	req := actuator.Request{
		V2:      snap.V2,
		Freq:    freq,
		Volt:    volt,
		Index:   target,
		Idle:    idle,
		NeedDCS: snap.Strategy.DcsEnable,
	}
	if err := g.engine.Apply(req); err != nil {
		g.rlog.Error("actuation failed: %v", err)
	} else if target != snap.Index {
		g.Debug("load %d%%: index %d -> %d, %d kHz / %d uV",
			loadPct, snap.Index, target, freq, volt)
	}

	g.state.SetCurrent(freq, target, volt)
	g.adaptInterval(loadPct, snap.Strategy)
	g.state.SetTelemetry(loadPct, g.interval)
}

// decide applies the hysteresis rules to one load sample and returns the
// target index.
func (g *Governor) decide(loadPct int, snap Snapshot) int {
	str := snap.Strategy
	target := snap.Index

	if loadPct >= 100-str.Margin {
		g.belowStreak = 0
		g.aboveStreak++
		if g.aboveStreak >= str.LoadStabilityThreshold {
			if target < snap.Table.Len()-1 {
				target++
			}
			g.aboveStreak = 0
		}
		return target
	}

	g.aboveStreak = 0
	g.belowStreak++

	need := str.DownThreshold
	if snap.Aggressive || str.AggressiveDown {
		need = 1
	}
	if need < str.LoadStabilityThreshold {
		need = str.LoadStabilityThreshold
	}
	if g.belowStreak >= need {
		if target > 0 {
			target--
		}
		g.belowStreak = 0
	}
	return target
}

// resolve maps a target index to the frequency and voltage to present. On v2
// the frequency is snapped to the driver-supported subset first.
func resolve(snap Snapshot, target int) (int64, int64) {
	freq := snap.Table.FreqAt(target)
	if snap.V2 {
		freq = freqtable.ClosestSupported(snap.V2Supported, freq)
	}
	volt := snap.Table.ResolveVoltage(freq, snap.V2, snap.V2Supported)
	return freq, volt
}

// adaptInterval shrinks the poll interval under volatile load and grows it
// toward the configured maximum while load stays stable.
func (g *Governor) adaptInterval(loadPct int, str *config.Strategy) {
	base := time.Duration(str.SamplingIntervalMs) * time.Millisecond
	if !str.AdaptiveSampling.Enabled {
		g.interval = base
		return
	}

	g.history.Push(float64(loadPct))

	min := time.Duration(str.AdaptiveSampling.MinMs) * time.Millisecond
	max := time.Duration(str.AdaptiveSampling.MaxMs) * time.Millisecond

	if g.volatile(loadPct) {
		g.interval = min
		return
	}

	g.interval += intervalStep
	if g.interval > max {
		g.interval = max
	}
	if g.interval < min {
		g.interval = min
	}
}

// volatile reports whether the load is moving enough to poll at the minimum
// interval. Once the moving average has warmed up the sample's divergence
// from it is the signal; until then the raw sample spread has to do.
func (g *Governor) volatile(loadPct int) bool {
	if avg := g.history.EWMA(); avg > 0 {
		diff := float64(loadPct) - avg
		if diff < 0 {
			diff = -diff
		}
		return diff > ewmaBand
	}
	return g.history.Spread() > volatileSpread
}

// Interval returns the currently active poll interval.
func (g *Governor) Interval() time.Duration {
	return g.interval
}
