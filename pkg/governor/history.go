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
	"container/ring"

	"github.com/VividCortex/ewma"
)

// loadHistory is a fixed-size ring of recent load samples with a moving
// average, backing the adaptive sampling decision.
type loadHistory struct {
	r  *ring.Ring
	s  int // the count of elements in the ring
	ma ewma.MovingAverage
}

func newLoadHistory(length int) *loadHistory {
	// Note: ewma has a warm-up period of 10 samples, EWMA() returns 0.0
	// until then.
	return &loadHistory{
		r:  ring.New(length),
		ma: ewma.NewMovingAverage(float64(length)),
	}
}

func (h *loadHistory) Push(d float64) {
	h.r.Value = d
	h.ma.Add(d)
	h.r = h.r.Next()

	if h.s+1 <= h.r.Len() {
		h.s++
	}
}

func (h *loadHistory) EWMA() float64 {
	return h.ma.Value()
}

func (h *loadHistory) Size() int {
	return h.s
}

// Spread returns max-min over the stored samples, 0 while empty.
func (h *loadHistory) Spread() float64 {
	if h.s == 0 {
		return 0
	}

	first := true
	var lo, hi float64

	h.r = h.r.Move(-1 * h.s)
	for i := 0; i < h.s; i++ {
		v := h.r.Value.(float64)
		if first || v < lo {
			lo = v
		}
		if first || v > hi {
			hi = v
		}
		first = false
		h.r = h.r.Next()
	}

	return hi - lo
}
