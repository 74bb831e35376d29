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

package load

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/gpufs"
)

// gpufsFormatError reports content that did not match the expected format.
func gpufsFormatError(path, msg string) error {
	return errors.Errorf("%s: %s", path, msg)
}

// extractPreciseLoad computes the load from busy/idle/protm cycle counters.
// Line 2 of the file holds the current counter values; the load is the share
// of busy+protm cycles since the previous sample. The previous triplet is a
// single shared generation, updated on every successful parse.
func (s *Sampler) extractPreciseLoad(path, content string) (int64, error) {
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return 0, gpufsFormatError(path, "expected counters on line 2")
	}

	busy, err := gpufs.IntToken(path, lines[1], 0)
	if err != nil {
		return 0, err
	}
	idle, err := gpufs.IntToken(path, lines[1], 1)
	if err != nil {
		return 0, err
	}
	protm, err := gpufs.IntToken(path, lines[1], 2)
	if err != nil {
		return 0, err
	}

	diffBusy := busy - s.prevBusy
	diffIdle := idle - s.prevIdle
	diffProtm := protm - s.prevProtm

	s.prevBusy = busy
	s.prevIdle = idle
	s.prevProtm = protm

	total := diffBusy + diffIdle + diffProtm
	if total <= 0 {
		return 0, gpufsFormatError(path, "counter deltas not usable yet")
	}

	load := (diffBusy + diffProtm) * 100 / total
	if load < 0 {
		load = 0
	}

	s.Debug("precise: load %d (busy %d idle %d protm %d)", load, diffBusy, diffIdle, diffProtm)
	return load, nil
}
