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
	"sync"
	"testing"
)

// recorder is a Backend that records emitted messages.
type recorder struct {
	sync.Mutex
	messages []string
}

func (*recorder) Name() string { return "recorder" }

func (r *recorder) Log(level Level, source, message string) {
	r.Lock()
	defer r.Unlock()
	r.messages = append(r.messages, level.String()+" "+message)
}

func (r *recorder) reset() {
	r.Lock()
	defer r.Unlock()
	r.messages = nil
}

func (r *recorder) recorded() []string {
	r.Lock()
	defer r.Unlock()
	return append([]string{}, r.messages...)
}

func TestLevelFiltering(t *testing.T) {
	rec := &recorder{}
	old := SetBackend(rec)
	defer SetBackend(old)
	defer SetLevel(DefaultLevel)

	l := NewLogger("filter-test")

	tcases := []struct {
		name     string
		level    Level
		expected []string
	}{
		{
			name:     "info level suppresses debug",
			level:    LevelInfo,
			expected: []string{"info i", "warn w", "error e"},
		},
		{
			name:     "debug level passes everything",
			level:    LevelDebug,
			expected: []string{"debug d", "info i", "warn w", "error e"},
		},
		{
			name:     "error level suppresses info and warnings",
			level:    LevelError,
			expected: []string{"error e"},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			rec.reset()
			SetLevel(tc.level)
			l.Debug("d")
			l.Info("i")
			l.Warn("w")
			l.Error("e")
			got := rec.recorded()
			if len(got) != len(tc.expected) {
				t.Fatalf("expected %v, got %v", tc.expected, got)
			}
			for i, msg := range tc.expected {
				if got[i] != msg {
					t.Errorf("message %d: expected %q, got %q", i, msg, got[i])
				}
			}
		})
	}
}

func TestEnableDebug(t *testing.T) {
	rec := &recorder{}
	old := SetBackend(rec)
	defer SetBackend(old)
	defer SetLevel(DefaultLevel)

	SetLevel(LevelInfo)
	l := NewLogger("debug-test")

	l.Debug("suppressed")
	if len(rec.recorded()) != 0 {
		t.Errorf("expected suppressed debug message, got %v", rec.recorded())
	}

	if previous := l.EnableDebug(true); previous {
		t.Errorf("expected debugging to have been off")
	}
	l.Debug("emitted")
	if got := rec.recorded(); len(got) != 1 || !strings.Contains(got[0], "emitted") {
		t.Errorf("expected emitted debug message, got %v", got)
	}

	l.EnableDebug(false)
	if l.DebugEnabled() {
		t.Errorf("expected debugging to be off again")
	}
}

func TestSetLevelByName(t *testing.T) {
	defer SetLevel(DefaultLevel)

	for name, level := range levelNames {
		if err := SetLevelByName(name); err != nil {
			t.Errorf("SetLevelByName(%q): unexpected error %v", name, err)
		}
		if GetLevel() != level {
			t.Errorf("SetLevelByName(%q): expected level %v, got %v", name, level, GetLevel())
		}
	}

	if err := SetLevelByName("chatty"); err == nil {
		t.Errorf("expected error for invalid level name")
	}
}

func TestSameSourceSameLogger(t *testing.T) {
	l1 := NewLogger("shared")
	l2 := NewLogger("shared")
	if l1 != l2 {
		t.Errorf("expected the same logger for the same source")
	}
	if l1.Source() != "shared" {
		t.Errorf("expected source %q, got %q", "shared", l1.Source())
	}
}
