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

package testutils

import (
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
)

// VerifyExhaustion checks that err is a multierror carrying one entry per
// failed sysfs/procfs probe, failedProbes in total, and that the aggregate
// message mentions each of the given substrings. It fails the test otherwise.
// Probe chains collect an error per candidate path before giving up, so a
// mismatched count means a probe silently vanished from the chain.
func VerifyExhaustion(t *testing.T, err error, failedProbes int, substrings ...string) bool {
	t.Helper()

	if err == nil {
		t.Errorf("expected exhaustion error for %d failed probes, got nil", failedProbes)
		return false
	}
	merr, ok := err.(*multierror.Error)
	if !ok {
		t.Errorf("expected multierror with %d probe failures, got %#v", failedProbes, err)
		return false
	}
	if len(merr.Errors) != failedProbes {
		t.Errorf("expected %d probe failures, but got %d: %v", failedProbes, len(merr.Errors), merr)
		return false
	}
	for _, substring := range substrings {
		if !strings.Contains(err.Error(), substring) {
			t.Errorf("expected error with substring %#v, got \"%v\"", substring, err)
		}
	}
	return true
}
