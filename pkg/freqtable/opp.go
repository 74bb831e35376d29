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
	"strings"

	"github.com/pkg/errors"

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/gpufs"
)

// oppDumpLimit bounds OPP table dump reads.
const oppDumpLimit = 8192

// Opps is the OPP table discovered from the driver: the frequencies the
// driver actually supports and their stock voltages.
type Opps struct {
	// Freqs is the list of driver-supported frequencies, in dump order.
	Freqs []int64
	// DefaultVolts maps each supported frequency to its stock voltage.
	DefaultVolts map[int64]int64
}

// DiscoverOpps reads the driver OPP dump and extracts the supported
// frequencies and their default voltages. On v2 drivers each dump line looks
// like "[00] freq: 886000, volt: 75000, ...", on v1 like
// "[ 0] freq = 886000, volt = 80000, idx = 0".
func DiscoverOpps(v2 bool) (*Opps, error) {
	path := gpufs.OppDumpPath
	freqMarker, voltMarker := "freq = ", "volt = "
	if v2 {
		path = gpufs.WorkingOppPath
		freqMarker, voltMarker = "freq: ", "volt: "
	}

	content, err := gpufs.ReadFile(path, oppDumpLimit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read OPP dump %s", path)
	}

	opps := &Opps{DefaultVolts: make(map[int64]int64)}
	for _, line := range strings.Split(content, "\n") {
		freq, err := gpufs.IntAfter(path, line, freqMarker)
		if err != nil {
			continue
		}
		opps.Freqs = append(opps.Freqs, freq)
		if volt, err := gpufs.IntAfter(path, line, voltMarker); err == nil {
			opps.DefaultVolts[freq] = volt
		}
	}

	if len(opps.Freqs) == 0 {
		return nil, errors.Errorf("no operating points found in %s", path)
	}

	return opps, nil
}
