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

// Package actuator writes GPU operating points to the driver control files.
// The two driver generations expose incompatible control interfaces; the
// engine hides the difference behind a single per-tick Apply call.
package actuator

import (
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/gpufs"
	logger "github.com/Tools-cx-app/mali-gpu-governor/pkg/log"
)

const (
	voltReset    = "0 0"
	oppRelease   = "-1"
	oppReleaseV1 = "0"

	// settleDelay is how long the v2 driver needs between releasing a
	// pinned operating point and accepting a new frequency/voltage pair.
	settleDelay = 10 * time.Millisecond
)

// sleep is replaceable in tests.
var sleep = time.Sleep

// Request is one operating point to present to the driver.
type Request struct {
	// V2 selects the driver generation control files.
	V2 bool
	// Freq is the target frequency in kHz, already snapped to the
	// driver-supported subset on v2.
	Freq int64
	// Volt is the resolved voltage in µV, 0 if unresolvable.
	Volt int64
	// Index is the target frequency table index.
	Index int
	// Idle requests the idle write mode.
	Idle bool
	// NeedDCS requests power-down at the lowest operating point.
	NeedDCS bool
}

// mode is the write mode selected for a tick.
type mode int

const (
	modeNormal mode = iota
	modeIdle
	modeDCS
	modeNoVolt
)

func (m mode) String() string {
	switch m {
	case modeNormal:
		return "normal"
	case modeIdle:
		return "idle"
	case modeDCS:
		return "dcs"
	case modeNoVolt:
		return "no-volt"
	}
	return "unknown"
}

// Engine issues ordered writes to the driver control files.
type Engine struct {
	logger.Logger
}

// NewEngine creates an actuation engine.
func NewEngine() *Engine {
	return &Engine{Logger: logger.NewLogger("actuator")}
}

// selectMode picks the write mode for a request. The conditions are ordered:
// idle wins over DCS, DCS over the missing-voltage fallback.
func selectMode(r Request) mode {
	switch {
	case r.Idle:
		return modeIdle
	case r.NeedDCS && r.V2 && r.Index == 0:
		return modeDCS
	case r.Volt == 0:
		return modeNoVolt
	default:
		return modeNormal
	}
}

// Apply presents the requested operating point to the driver. If either
// control file of the active generation is missing the whole write is a
// silent no-op for this tick. Opportunistic writes swallow failures; only a
// failing primary frequency/voltage write is reported.
func (e *Engine) Apply(r Request) error {
	voltPath, oppPath := gpufs.V1VoltPath, gpufs.V1OppPath
	if r.V2 {
		voltPath, oppPath = gpufs.V2VoltPath, gpufs.V2OppPath
	}

	if !gpufs.Exists(voltPath) || !gpufs.Exists(oppPath) {
		return nil
	}

	m := selectMode(r)
	e.Debug("writing in %s mode", m)

	switch m {
	case modeIdle:
		gpufs.WriteStringQuiet(voltPath, voltReset)
		if r.V2 {
			e.releaseOpp(oppPath)
		} else {
			gpufs.WriteStringQuiet(oppPath, oppReleaseV1)
		}

	case modeDCS:
		gpufs.WriteStringQuiet(voltPath, voltReset)
		e.releaseOpp(oppPath)

	case modeNoVolt:
		gpufs.WriteStringQuiet(voltPath, voltReset)
		if _, err := gpufs.WriteString(oppPath, strconv.FormatInt(r.Freq, 10)); err != nil {
			return errors.Wrapf(err, "failed to write frequency %d to %s", r.Freq, oppPath)
		}

	case modeNormal:
		pair := strconv.FormatInt(r.Freq, 10) + " " + strconv.FormatInt(r.Volt, 10)
		if r.V2 {
			// The v2 interface rejects a new pair while a previous
			// point is still pinned: release first, settle, then
			// present the new point.
			gpufs.WriteStringQuiet(voltPath, voltReset)
			e.releaseOpp(oppPath)
			sleep(settleDelay)
			if _, err := gpufs.WriteString(voltPath, pair); err != nil {
				return errors.Wrapf(err, "failed to write %q to %s", pair, voltPath)
			}
		} else {
			gpufs.WriteStringQuiet(oppPath, oppReleaseV1)
			if _, err := gpufs.WriteString(voltPath, pair); err != nil {
				return errors.Wrapf(err, "failed to write %q to %s", pair, voltPath)
			}
		}
	}

	return nil
}

// releaseOpp unpins the v2 operating point. Some driver builds reject "-1"
// with a zero-byte result; those take "0" instead.
func (e *Engine) releaseOpp(oppPath string) {
	if n := gpufs.WriteStringQuiet(oppPath, oppRelease); n == 0 {
		gpufs.WriteStringQuiet(oppPath, oppReleaseV1)
	}
}
