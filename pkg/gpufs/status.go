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

package gpufs

import (
	"sync"
)

// probeLimit is how many bytes a probe read attempts.
const probeLimit = 32

// Status tracks the availability of kernel pseudo-files. A path starts out
// unavailable, becomes available when a probe succeeds, and transitions back
// to unavailable only explicitly, on an I/O-level failure. That transition is
// final: an unavailable path is never re-probed.
type Status struct {
	sync.RWMutex
	paths map[string]bool
}

// NewStatus creates an empty availability registry.
func NewStatus() *Status {
	return &Status{paths: make(map[string]bool)}
}

// Probe tests that the path exists and can be read, and records the result.
// An already-disabled path is not re-probed.
func (s *Status) Probe(path string) bool {
	s.Lock()
	defer s.Unlock()

	if avail, seen := s.paths[path]; seen && !avail {
		return false
	}

	_, err := currentPlatform.ReadFile(path, probeLimit)
	s.paths[path] = err == nil

	return err == nil
}

// Available returns the recorded availability of the path.
func (s *Status) Available(path string) bool {
	s.RLock()
	defer s.RUnlock()

	return s.paths[path]
}

// MarkUnavailable permanently disables the path.
func (s *Status) MarkUnavailable(path string) {
	s.Lock()
	defer s.Unlock()

	s.paths[path] = false
}
