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
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/gpufs"
	logger "github.com/Tools-cx-app/mali-gpu-governor/pkg/log"
)

var log logger.Logger = logger.NewLogger("load")

// extractFn turns pseudo-file content into a load percentage. A returned
// error means the sample is invalid for this call only.
type extractFn func(path, content string) (int64, error)

// source describes one utilization reporting mechanism of the fallback
// chain.
type source struct {
	// name identifies the source in logs.
	name string
	// paths are tried in order; the first available one is read.
	paths []string
	// limit bounds the read size.
	limit int
	// extract computes the load percentage from file content.
	extract extractFn
	// acceptZero controls whether a literal 0 load is authoritative. Most
	// sources report a stale 0 while the GPU is busy, so 0 falls through
	// to the next source; only the bottom of the chain takes 0 at face
	// value.
	acceptZero bool
}

// Sampler measures instantaneous GPU utilization by walking a fixed priority
// chain of kernel reporting mechanisms, most precise first. Sources found
// broken at probe time, or failing at the I/O level later, are permanently
// dropped from the chain.
//
// The precise-counter source keeps a single shared previous busy/idle/protm
// generation, so SampleLoad must only ever be called from one goroutine (the
// governor loop).
type Sampler struct {
	logger.Logger
	status  *gpufs.Status
	sources []*source

	// previous generation of the precise cycle counters
	prevBusy  int64
	prevIdle  int64
	prevProtm int64
}

// NewSampler probes every known utilization source and builds the sampling
// chain from the usable ones. It fails if no source at all is usable; the
// returned error aggregates the verdict for every probed path.
func NewSampler(status *gpufs.Status) (*Sampler, error) {
	s := &Sampler{
		Logger: log,
		status: status,
	}
	s.sources = s.sourceChain()

	var errs *multierror.Error
	usable := false
	for _, src := range s.sources {
		for _, path := range src.paths {
			if status.Probe(path) {
				usable = true
				s.Info("%s: %s: OK", src.name, path)
			} else {
				errs = multierror.Append(errs, errors.Errorf("%s: %s unusable", src.name, path))
				s.Info("%s: %s: unavailable", src.name, path)
			}
		}
	}

	if !usable {
		errs = multierror.Append(errs, errors.New("can't monitor GPU load: all sources unusable"))
		return nil, errs.ErrorOrNil()
	}

	return s, nil
}

// sourceChain builds the priority-ordered source descriptors, most to least
// preferred.
func (s *Sampler) sourceChain() []*source {
	return []*source{
		{
			name:    "precise-dvfs",
			paths:   []string{gpufs.PreciseLoadPath, gpufs.PreciseLoadPathOld},
			limit:   256,
			extract: s.extractPreciseLoad,
		},
		{
			name:    "gpufreq-loading",
			paths:   []string{gpufs.VarDumpPath},
			limit:   4096,
			extract: markerExtractor("gpu_loading = "),
		},
		{
			name:    "mtk-proc",
			paths:   []string{gpufs.ProcMtkLoadPath},
			limit:   256,
			extract: markerExtractor("ACTIVE="),
		},
		{
			name:    "mali-proc",
			paths:   []string{gpufs.ProcMaliLoadPath},
			limit:   256,
			extract: markerExtractor("="),
		},
		{
			name:    "kernel-debug-ged",
			paths:   []string{gpufs.KernelDebugLoadPath},
			limit:   32,
			extract: idleTokenExtractor,
		},
		{
			name:    "kernel-d-ged",
			paths:   []string{gpufs.KernelDLoadPath},
			limit:   32,
			extract: idleTokenExtractor,
		},
		{
			name:    "kernel-ged",
			paths:   []string{gpufs.KernelLoadPath},
			limit:   32,
			extract: loadTokenExtractor,
		},
		{
			name:  "module-ged-idle",
			paths: []string{gpufs.ModuleIdlePath},
			limit: 32,
			extract: func(path, content string) (int64, error) {
				idle, err := gpufs.ParseInt(path, content)
				if err != nil {
					return 0, err
				}
				return 100 - idle, nil
			},
			acceptZero: true,
		},
		{
			name:  "module-ged-load",
			paths: []string{gpufs.ModuleLoadPath},
			limit: 32,
			extract: func(path, content string) (int64, error) {
				return gpufs.ParseInt(path, content)
			},
			acceptZero: true,
		},
	}
}

// SampleLoad returns the current GPU load percentage from the most preferred
// source that yields an authoritative sample.
func (s *Sampler) SampleLoad() (int, error) {
	for _, src := range s.sources {
		load, ok := s.sampleSource(src)
		if !ok {
			continue
		}
		s.Debug("%s: load %d%%", src.name, load)
		return int(load), nil
	}
	return 0, errors.New("no load source yielded a sample")
}

// sampleSource reads one source. A false result means fall through: the
// source is unavailable, its content did not parse, or it reported a
// non-authoritative zero.
func (s *Sampler) sampleSource(src *source) (int64, bool) {
	for _, path := range src.paths {
		if !s.status.Available(path) {
			continue
		}

		content, err := gpufs.ReadFile(path, src.limit)
		if err != nil {
			// I/O failure: this path is gone for good.
			s.Warn("%s: disabling %s: %v", src.name, path, err)
			s.status.MarkUnavailable(path)
			continue
		}

		load, err := src.extract(path, content)
		if err != nil {
			s.Debug("%s: %v", src.name, err)
			return 0, false
		}
		if load == 0 && !src.acceptZero {
			return 0, false
		}
		return load, true
	}
	return 0, false
}

// Precise checks if the precise-counter source is in use.
func (s *Sampler) Precise() bool {
	return s.status.Available(gpufs.PreciseLoadPath) ||
		s.status.Available(gpufs.PreciseLoadPathOld)
}

// markerExtractor extracts the integer following a marker string.
func markerExtractor(marker string) extractFn {
	return func(path, content string) (int64, error) {
		return gpufs.IntAfter(path, content, marker)
	}
}

// idleTokenExtractor reads the 3rd whitespace token as idle time and derives
// the load from it.
func idleTokenExtractor(path, content string) (int64, error) {
	idle, err := gpufs.IntToken(path, content, 2)
	if err != nil {
		return 0, err
	}
	return 100 - idle, nil
}

// loadTokenExtractor reads the 3rd whitespace token, already a load.
func loadTokenExtractor(path, content string) (int64, error) {
	return gpufs.IntToken(path, content, 2)
}
