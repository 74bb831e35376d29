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

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/gpufs"
	logger "github.com/Tools-cx-app/mali-gpu-governor/pkg/log"
)

// FrequencyReader reports the current hardware GPU frequency using the
// format of the detected driver generation.
type FrequencyReader struct {
	logger.Logger
	status *gpufs.Status
	v2     bool
}

// NewFrequencyReader probes the frequency reporting paths of the given
// driver generation. It fails if no path at all is usable; the returned
// error aggregates the verdict for every probed path.
func NewFrequencyReader(status *gpufs.Status, v2 bool) (*FrequencyReader, error) {
	r := &FrequencyReader{
		Logger: logger.NewLogger("freqreader"),
		status: status,
		v2:     v2,
	}

	var errs *multierror.Error
	usable := false
	paths := []string{gpufs.VarDumpPath}
	if v2 {
		paths = []string{gpufs.CurrentFreqPath, gpufs.DebugCurrentFreqPath, gpufs.VarDumpPath}
	}
	for _, path := range paths {
		if status.Probe(path) {
			usable = true
			r.Info("frequency path %s: OK", path)
		} else {
			errs = multierror.Append(errs, errors.Errorf("frequency path %s unusable", path))
			r.Info("frequency path %s: unavailable", path)
		}
	}

	if !usable {
		errs = multierror.Append(errs, errors.New("can't read GPU frequency: no usable path"))
		return nil, errs.ErrorOrNil()
	}

	return r, nil
}

// ReadCurrent returns the current hardware frequency. v1 drivers only have
// the state dump; v2 drivers prefer the dedicated frequency files and fall
// back to the dump as a last resort.
func (r *FrequencyReader) ReadCurrent() (int64, error) {
	if !r.v2 {
		return r.readVarDump()
	}

	for _, path := range []string{gpufs.CurrentFreqPath, gpufs.DebugCurrentFreqPath} {
		if !r.status.Available(path) {
			continue
		}
		content, err := gpufs.ReadFile(path, 64)
		if err != nil {
			r.Debug("disabling frequency path %s: %v", path, err)
			r.status.MarkUnavailable(path)
			continue
		}
		freq, err := gpufs.IntToken(path, firstLine(content), 1)
		if err != nil {
			r.Debug("disabling frequency path %s: %v", path, err)
			r.status.MarkUnavailable(path)
			continue
		}
		return freq, nil
	}

	return r.readVarDump()
}

// readVarDump extracts the current frequency from the v1 state dump. Three
// encodings occur in the wild, depending on driver vintage.
func (r *FrequencyReader) readVarDump() (int64, error) {
	path := gpufs.VarDumpPath
	if !r.status.Available(path) {
		return 0, errors.Errorf("frequency dump %s not available", path)
	}

	content, err := gpufs.ReadFile(path, 4096)
	if err != nil {
		r.status.MarkUnavailable(path)
		return 0, errors.Wrapf(err, "failed to read frequency dump %s", path)
	}

	for _, line := range strings.Split(content, "\n") {
		if len(line) <= 3 {
			continue
		}

		switch {
		case strings.Contains(line, "idx:") && strings.Contains(line, "freq:"):
			if freq, err := gpufs.IntAfter(path, line, "freq:"); err == nil {
				return freq, nil
			}
		case strings.HasPrefix(line, "Freq:"):
			if freq, err := gpufs.IntAfter(path, line, "Freq:"); err == nil {
				return freq, nil
			}
		case strings.Contains(line, "cur_freq = "):
			if freq, err := gpufs.IntAfter(path, line, "cur_freq = "); err == nil {
				return freq, nil
			}
		}
	}

	return 0, errors.Errorf("no parsable frequency in dump %s", path)
}

// firstLine returns content up to the first newline.
func firstLine(content string) string {
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		return content[:idx]
	}
	return content
}
