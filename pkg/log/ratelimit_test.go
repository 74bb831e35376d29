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

package log

import (
	"strings"
	"testing"
	"time"
)

func TestRateLimitSuppressesRepeats(t *testing.T) {
	rec := &recorder{}
	old := SetBackend(rec)
	defer SetBackend(old)
	defer SetLevel(DefaultLevel)
	SetLevel(LevelInfo)

	rl := RateLimit(NewLogger("ratelimit-test"), Interval(time.Hour))

	for i := 0; i < 5; i++ {
		rl.Error("failed to sample load: %v", "broken pipe")
	}

	if got := rec.recorded(); len(got) != 1 {
		t.Errorf("expected 1 emitted message, got %d: %v", len(got), got)
	}
}

func TestRateLimitCoalescesVaryingDetail(t *testing.T) {
	rec := &recorder{}
	old := SetBackend(rec)
	defer SetBackend(old)
	defer SetLevel(DefaultLevel)
	SetLevel(LevelInfo)

	rl := RateLimit(NewLogger("ratelimit-test"), Interval(time.Hour))

	// The same failure repeating with a varying errno shares one limiter.
	rl.Error("failed to sample load: %v", "broken pipe")
	rl.Error("failed to sample load: %v", "device busy")
	rl.Error("failed to sample load: %v", "broken pipe")

	if got := rec.recorded(); len(got) != 1 {
		t.Errorf("expected 1 emitted message, got %d: %v", len(got), got)
	}
}

func TestRateLimitDistinctFormats(t *testing.T) {
	rec := &recorder{}
	old := SetBackend(rec)
	defer SetBackend(old)
	defer SetLevel(DefaultLevel)
	SetLevel(LevelInfo)

	rl := RateLimit(NewLogger("ratelimit-test"), Interval(time.Hour))

	rl.Error("load sampling failed: %v", "broken pipe")
	rl.Error("actuation failed: %v", "permission denied")

	if got := rec.recorded(); len(got) != 2 {
		t.Errorf("expected 2 emitted messages, got %d: %v", len(got), got)
	}
}

func TestRateLimitReportsSuppressedCount(t *testing.T) {
	rec := &recorder{}
	old := SetBackend(rec)
	defer SetBackend(old)
	defer SetLevel(DefaultLevel)
	SetLevel(LevelInfo)

	rl := RateLimit(NewLogger("ratelimit-test"), Interval(10*time.Millisecond))

	rl.Error("load sampling failed: %v", "broken pipe")
	rl.Error("load sampling failed: %v", "device busy")
	rl.Error("load sampling failed: %v", "broken pipe")

	time.Sleep(20 * time.Millisecond)
	rl.Error("load sampling failed: %v", "broken pipe")

	got := rec.recorded()
	if len(got) != 2 {
		t.Fatalf("expected 2 emitted messages, got %d: %v", len(got), got)
	}
	if !strings.Contains(got[0], "broken pipe") || strings.Contains(got[0], "suppressed") {
		t.Errorf("unexpected first message: %q", got[0])
	}
	if !strings.Contains(got[1], "suppressed 2 earlier occurrences") {
		t.Errorf("expected a suppression note on the second message, got %q", got[1])
	}
}
