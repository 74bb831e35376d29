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

package freqtable

import (
	"sort"

	"github.com/pkg/errors"

	logger "github.com/Tools-cx-app/mali-gpu-governor/pkg/log"
)

var log logger.Logger = logger.NewLogger("freqtable")

// Point is one row of the frequency table: a supported GPU frequency with
// its configured voltage and DRAM operating point. A zero voltage or DRAM
// value means unset.
type Point struct {
	// Freq is the GPU frequency in kHz.
	Freq int64
	// Volt is the GPU voltage in µV, 0 if unset.
	Volt int64
	// DRAM is the paired DRAM operating point, 0 if unset.
	DRAM int64
}

// Table is the immutable-after-construction frequency table. Frequencies are
// kept ascending and duplicate-free; the voltage, DRAM and default-voltage
// mappings tolerate absent entries by reporting 0.
type Table struct {
	freqs    []int64
	volts    map[int64]int64
	drams    map[int64]int64
	defVolts map[int64]int64
}

// New builds a Table from the given points. Frequencies are sorted ascending
// and duplicates dropped. An empty point list is an error.
func New(points []Point) (*Table, error) {
	if len(points) == 0 {
		return nil, errors.New("frequency table: no frequencies configured")
	}

	t := &Table{
		volts:    make(map[int64]int64, len(points)),
		drams:    make(map[int64]int64, len(points)),
		defVolts: make(map[int64]int64),
	}
	for _, p := range points {
		if _, dup := t.volts[p.Freq]; !dup {
			t.freqs = append(t.freqs, p.Freq)
		}
		t.volts[p.Freq] = p.Volt
		t.drams[p.Freq] = p.DRAM
	}
	sort.Slice(t.freqs, func(i, j int) bool { return t.freqs[i] < t.freqs[j] })

	return t, nil
}

// SetDefaultVolts installs the driver-reported default voltage map, used as
// a fallback when the configured voltage for a frequency is unset.
func (t *Table) SetDefaultVolts(defVolts map[int64]int64) {
	t.defVolts = make(map[int64]int64, len(defVolts))
	for f, v := range defVolts {
		t.defVolts[f] = v
	}
}

// Len returns the number of table entries.
func (t *Table) Len() int {
	return len(t.freqs)
}

// Freqs returns a copy of the ascending frequency list.
func (t *Table) Freqs() []int64 {
	return append([]int64{}, t.freqs...)
}

// clampIndex forces an index into the valid range of the table.
func (t *Table) clampIndex(idx int) int {
	if idx < 0 {
		return 0
	}
	if idx >= len(t.freqs) {
		return len(t.freqs) - 1
	}
	return idx
}

// FreqAt returns the frequency at the given index, clamped into range.
func (t *Table) FreqAt(idx int) int64 {
	return t.freqs[t.clampIndex(idx)]
}

// IndexOf returns the index of an exactly matching frequency, 0 if absent.
func (t *Table) IndexOf(freq int64) int {
	for i, f := range t.freqs {
		if f == freq {
			return i
		}
	}
	return 0
}

// FreqGE returns the smallest table frequency >= freq. For freq <= 0, or when
// every entry is below freq, it saturates to the maximum.
func (t *Table) FreqGE(freq int64) int64 {
	if freq <= 0 {
		return t.MaxFreq()
	}
	for _, f := range t.freqs {
		if f >= freq {
			return f
		}
	}
	return t.MaxFreq()
}

// FreqLE returns the largest table frequency <= freq. For freq <= 0, or when
// every entry is above freq, it saturates to the minimum.
func (t *Table) FreqLE(freq int64) int64 {
	if freq <= 0 {
		return t.MinFreq()
	}
	for i := len(t.freqs) - 1; i >= 0; i-- {
		if t.freqs[i] <= freq {
			return t.freqs[i]
		}
	}
	return t.MinFreq()
}

// MaxFreq returns the highest table frequency.
func (t *Table) MaxFreq() int64 {
	return t.freqs[len(t.freqs)-1]
}

// MinFreq returns the lowest table frequency.
func (t *Table) MinFreq() int64 {
	return t.freqs[0]
}

// MiddleFreq returns the middle table frequency.
func (t *Table) MiddleFreq() int64 {
	return t.freqs[len(t.freqs)/2]
}

// SecondHighestFreq returns the second highest frequency, or the maximum for
// single-entry tables.
func (t *Table) SecondHighestFreq() int64 {
	if len(t.freqs) < 2 {
		return t.MaxFreq()
	}
	return t.freqs[len(t.freqs)-2]
}

// SecondLowestFreq returns the second lowest frequency, or the minimum for
// single-entry tables.
func (t *Table) SecondLowestFreq() int64 {
	if len(t.freqs) < 2 {
		return t.MinFreq()
	}
	return t.freqs[1]
}

// Volt returns the configured voltage for the frequency, 0 if unset.
func (t *Table) Volt(freq int64) int64 {
	return t.volts[freq]
}

// DRAM returns the configured DRAM operating point for the frequency, 0 if
// unset.
func (t *Table) DRAM(freq int64) int64 {
	return t.drams[freq]
}

// DefaultVolt returns the driver default voltage for the frequency, 0 if
// unset.
func (t *Table) DefaultVolt(freq int64) int64 {
	return t.defVolts[freq]
}

// ClosestSupported returns the entry of supported closest to target by
// absolute distance. Ties resolve to the first-encountered candidate. An
// empty set returns target unchanged.
func ClosestSupported(supported []int64, target int64) int64 {
	if len(supported) == 0 {
		return target
	}

	closest := supported[0]
	minDiff := abs(target - closest)
	for _, f := range supported[1:] {
		if diff := abs(target - f); diff < minDiff {
			minDiff = diff
			closest = f
		}
	}
	return closest
}

// ResolveVoltage determines the voltage for the current frequency. On v2
// drivers the frequency is first snapped to the closest driver-supported one.
// An unset configured voltage falls back to the driver default voltage map.
func (t *Table) ResolveVoltage(curFreq int64, v2 bool, v2Supported []int64) int64 {
	freq := curFreq
	if v2 {
		freq = ClosestSupported(v2Supported, curFreq)
	}

	volt := t.Volt(freq)
	if volt == 0 {
		if def := t.DefaultVolt(freq); def > 0 {
			log.Debug("using default voltage %d for frequency %d", def, freq)
			volt = def
		}
	}
	return volt
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
