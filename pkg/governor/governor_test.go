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
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/actuator"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/config"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/freqtable"
)

type fakeSampler struct {
	loads []int
	next  int
	err   error
}

func (f *fakeSampler) SampleLoad() (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	l := f.loads[f.next%len(f.loads)]
	f.next++
	return l, nil
}

type fakeEngine struct {
	requests []actuator.Request
	err      error
}

func (f *fakeEngine) Apply(r actuator.Request) error {
	f.requests = append(f.requests, r)
	return f.err
}

func testStrategy() *config.Strategy {
	s := config.DefaultStrategy()
	s.Margin = 10
	s.DownThreshold = 3
	s.SamplingIntervalMs = 8
	s.LoadStabilityThreshold = 1
	return s
}

func newTestGovernor(t *testing.T, strategy *config.Strategy, v2 bool, v2Supported []int64) (*Governor, *fakeSampler, *fakeEngine, *State) {
	t.Helper()

	table, err := freqtable.New([]freqtable.Point{
		{Freq: 100, Volt: 60000},
		{Freq: 200, Volt: 65000},
		{Freq: 300, Volt: 72500},
	})
	require.NoError(t, err)

	state := NewState(table, strategy, v2, false, v2Supported)
	s := &fakeSampler{}
	e := &fakeEngine{}
	return NewGovernor(state, s, e), s, e, state
}

func tickLoads(g *Governor, s *fakeSampler, loads ...int) {
	s.loads = loads
	s.next = 0
	for range loads {
		g.Tick()
	}
}

func TestUpscale(t *testing.T) {
	g, s, e, state := newTestGovernor(t, testStrategy(), false, nil)

	tickLoads(g, s, 95)
	_, idx, _ := state.Current()
	require.Equal(t, 1, idx)
	require.Equal(t, int64(200), e.requests[0].Freq)
	require.Equal(t, int64(65000), e.requests[0].Volt)
}

func TestUpscaleSaturatesAtTop(t *testing.T) {
	g, s, _, state := newTestGovernor(t, testStrategy(), false, nil)

	tickLoads(g, s, 95, 95, 95, 95)
	_, idx, _ := state.Current()
	require.Equal(t, 2, idx)
}

func TestDownHysteresis(t *testing.T) {
	g, s, _, state := newTestGovernor(t, testStrategy(), false, nil)

	tickLoads(g, s, 95, 95) // climb to index 2
	_, idx, _ := state.Current()
	require.Equal(t, 2, idx)

	tickLoads(g, s, 50, 50)
	_, idx, _ = state.Current()
	require.Equal(t, 2, idx, "no downscale before the threshold streak")

	tickLoads(g, s, 50)
	_, idx, _ = state.Current()
	require.Equal(t, 1, idx, "third consecutive below sample steps down")
}

func TestDownHysteresisResetByHighLoad(t *testing.T) {
	g, s, _, state := newTestGovernor(t, testStrategy(), false, nil)

	tickLoads(g, s, 95, 95)
	tickLoads(g, s, 50, 50, 95, 50, 50)
	_, idx, _ := state.Current()
	require.Equal(t, 2, idx, "high sample resets the below streak")
}

func TestAggressiveDown(t *testing.T) {
	str := testStrategy()
	str.AggressiveDown = true
	g, s, _, state := newTestGovernor(t, str, false, nil)

	tickLoads(g, s, 95, 95)
	tickLoads(g, s, 50)
	_, idx, _ := state.Current()
	require.Equal(t, 1, idx, "aggressive mode steps down after one sample")
}

func TestGameModeFlagActsLikeAggressive(t *testing.T) {
	g, s, _, state := newTestGovernor(t, testStrategy(), false, nil)
	state.SetAggressive(true)

	tickLoads(g, s, 95, 95)
	tickLoads(g, s, 50)
	_, idx, _ := state.Current()
	require.Equal(t, 1, idx)
}

func TestStabilityDebounce(t *testing.T) {
	str := testStrategy()
	str.LoadStabilityThreshold = 2
	g, s, _, state := newTestGovernor(t, str, false, nil)

	tickLoads(g, s, 95)
	_, idx, _ := state.Current()
	require.Equal(t, 0, idx, "one vote is not enough")

	tickLoads(g, s, 95)
	_, idx, _ = state.Current()
	require.Equal(t, 1, idx, "second consecutive vote changes the index")
}

func TestIdleActuation(t *testing.T) {
	g, s, e, _ := newTestGovernor(t, testStrategy(), true, nil)

	tickLoads(g, s, 0)
	require.Len(t, e.requests, 1)
	require.True(t, e.requests[0].Idle)
	require.True(t, e.requests[0].V2)
}

func TestNotIdleAboveLowestIndex(t *testing.T) {
	str := testStrategy()
	str.AggressiveDown = true
	g, s, e, _ := newTestGovernor(t, str, false, nil)

	tickLoads(g, s, 95, 95) // index 2
	tickLoads(g, s, 0)      // steps down to 1, not idle
	last := e.requests[len(e.requests)-1]
	require.False(t, last.Idle)
	require.Equal(t, 1, last.Index)
}

func TestV2FrequencySnapping(t *testing.T) {
	g, s, e, _ := newTestGovernor(t, testStrategy(), true, []int64{200, 400})

	tickLoads(g, s, 95, 95) // target 300, snaps to 200
	last := e.requests[len(e.requests)-1]
	require.Equal(t, int64(200), last.Freq)
}

func TestSamplingErrorKeepsState(t *testing.T) {
	g, s, e, state := newTestGovernor(t, testStrategy(), false, nil)

	tickLoads(g, s, 95)
	s.err = errors.New("all sources broken")
	g.Tick()

	_, idx, _ := state.Current()
	require.Equal(t, 1, idx)
	require.Len(t, e.requests, 1, "no actuation without a sample")
}

func TestActuationErrorKeepsTicking(t *testing.T) {
	g, s, e, state := newTestGovernor(t, testStrategy(), false, nil)
	e.err = errors.New("EBUSY")

	tickLoads(g, s, 95, 95)
	_, idx, _ := state.Current()
	require.Equal(t, 2, idx, "state still tracks the decided point")
}

func TestFixedInterval(t *testing.T) {
	g, s, _, _ := newTestGovernor(t, testStrategy(), false, nil)

	tickLoads(g, s, 95, 10, 95, 10)
	require.Equal(t, 8*time.Millisecond, g.Interval())
}

func TestAdaptiveIntervalShrinksOnVolatileLoad(t *testing.T) {
	str := testStrategy()
	str.AdaptiveSampling = config.AdaptiveSampling{Enabled: true, MinMs: 8, MaxMs: 100}
	str.SamplingIntervalMs = 50
	g, s, _, _ := newTestGovernor(t, str, false, nil)

	tickLoads(g, s, 10, 90)
	require.Equal(t, 8*time.Millisecond, g.Interval())
}

func TestAdaptiveIntervalTracksMovingAverage(t *testing.T) {
	str := testStrategy()
	str.AdaptiveSampling = config.AdaptiveSampling{Enabled: true, MinMs: 8, MaxMs: 30}
	g, s, _, _ := newTestGovernor(t, str, false, nil)

	// Warm the moving average up on steady load.
	tickLoads(g, s, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50, 50)
	require.Equal(t, 30*time.Millisecond, g.Interval())

	// A 15-point jump keeps the sample spread under the volatility cutoff,
	// only the divergence from the average flags it.
	tickLoads(g, s, 65)
	require.Equal(t, 8*time.Millisecond, g.Interval(), "divergence from the moving average shrinks the interval")

	tickLoads(g, s, 50)
	require.Equal(t, 13*time.Millisecond, g.Interval(), "a sample back within the band grows the interval again")
}

func TestAdaptiveIntervalGrowsWhenStable(t *testing.T) {
	str := testStrategy()
	str.AdaptiveSampling = config.AdaptiveSampling{Enabled: true, MinMs: 8, MaxMs: 30}
	g, s, _, _ := newTestGovernor(t, str, false, nil)

	tickLoads(g, s, 50, 50, 50, 50, 50, 50, 50, 50)
	require.Equal(t, 30*time.Millisecond, g.Interval(), "interval grows to the maximum under stable load")
}

func TestConfigReloadReclampsIndex(t *testing.T) {
	g, s, _, state := newTestGovernor(t, testStrategy(), false, nil)

	tickLoads(g, s, 95, 95)
	_, idx, _ := state.Current()
	require.Equal(t, 2, idx)

	table, err := freqtable.New([]freqtable.Point{{Freq: 100, Volt: 60000}})
	require.NoError(t, err)
	state.ReplaceConfig(table, nil)

	_, idx, _ = state.Current()
	require.Equal(t, 0, idx)
}
