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

package config

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/freqtable"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/gpufs"
)

// ReadFreqTable parses the columnar frequency table file into a table. Each
// non-comment line is "freq volt ddr" with frequency in kHz, voltage in uV
// and a DRAM opp index; voltage and DRAM columns may be omitted.
func ReadFreqTable(path string) (*freqtable.Table, error) {
	data, err := gpufs.ReadFile(path, configReadLimit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read frequency table %s", path)
	}

	var points []freqtable.Point
	for n, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		p := freqtable.Point{}
		p.Freq, err = strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "%s line %d: invalid frequency %q", path, n+1, fields[0])
		}
		if len(fields) > 1 {
			p.Volt, err = strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "%s line %d: invalid voltage %q", path, n+1, fields[1])
			}
		}
		if len(fields) > 2 {
			p.DRAM, err = strconv.ParseInt(fields[2], 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "%s line %d: invalid DRAM opp %q", path, n+1, fields[2])
			}
		}
		points = append(points, p)
	}

	table, err := freqtable.New(points)
	if err != nil {
		return nil, errors.Wrapf(err, "frequency table %s", path)
	}
	log.Info("loaded %d frequency points from %s", table.Len(), path)
	return table, nil
}
