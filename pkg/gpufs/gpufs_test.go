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
	"testing"

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/testutils"
)

func TestParseInt(t *testing.T) {
	tcases := []struct {
		name        string
		content     string
		expected    int64
		expectError bool
	}{
		{name: "plain integer", content: "42", expected: 42},
		{name: "trailing newline", content: "87\n", expected: 87},
		{name: "surrounding whitespace", content: " 13 \n", expected: 13},
		{name: "negative", content: "-1", expected: -1},
		{name: "garbage", content: "4x2", expectError: true},
		{name: "empty", content: "", expectError: true},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := ParseInt("/test/path", tc.content)
			if tc.expectError {
				if err == nil {
					t.Errorf("expected error, got %d", v)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v != tc.expected {
				t.Errorf("expected %d, got %d", tc.expected, v)
			}
		})
	}
}

func TestIntToken(t *testing.T) {
	tcases := []struct {
		name        string
		content     string
		idx         int
		expected    int64
		expectError bool
	}{
		{name: "third token", content: "1234 56 78", idx: 2, expected: 78},
		{name: "second token", content: "0 852000\n", idx: 1, expected: 852000},
		{name: "too few fields", content: "12 34", idx: 2, expectError: true},
		{name: "non-numeric token", content: "12 ab 34", idx: 1, expectError: true},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := IntToken("/test/path", tc.content, tc.idx)
			if tc.expectError {
				if err == nil {
					t.Errorf("expected error, got %d", v)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v != tc.expected {
				t.Errorf("expected %d, got %d", tc.expected, v)
			}
		})
	}
}

func TestIntAfter(t *testing.T) {
	tcases := []struct {
		name        string
		content     string
		marker      string
		expected    int64
		expectError bool
	}{
		{name: "gpu_loading line", content: "g_iSkipCount = 0\ngpu_loading = 63\n", marker: "gpu_loading = ", expected: 63},
		{name: "ACTIVE entry", content: "ACTIVE=37\nIDLE=63", marker: "ACTIVE=", expected: 37},
		{name: "mali key=value", content: "gpu/cljs0/cljs1=22\n", marker: "=", expected: 22},
		{name: "comma terminated", content: "idx: 3, freq: 852000, vgpu: 65000", marker: "freq: ", expected: 852000},
		{name: "marker missing", content: "IDLE=63", marker: "ACTIVE=", expectError: true},
		{name: "non-numeric value", content: "ACTIVE=off", marker: "ACTIVE=", expectError: true},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := IntAfter("/test/path", tc.content, tc.marker)
			if tc.expectError {
				if err == nil {
					t.Errorf("expected error, got %d", v)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v != tc.expected {
				t.Errorf("expected %d, got %d", tc.expected, v)
			}
		})
	}
}

func TestStatusStickiness(t *testing.T) {
	fs := testutils.NewFakeFS()
	fs.Files["/d/load"] = "55"
	restore := SetPlatform(fs)
	defer SetPlatform(restore)

	s := NewStatus()

	if !s.Probe("/d/load") {
		t.Fatalf("expected probe of existing file to succeed")
	}
	if s.Probe("/d/missing") {
		t.Fatalf("expected probe of missing file to fail")
	}
	if s.Available("/d/missing") {
		t.Errorf("missing file should be unavailable")
	}

	// A disabled path stays disabled, even if the file reappears.
	fs.Files["/d/missing"] = "1"
	if s.Probe("/d/missing") {
		t.Errorf("expected disabled path to never be re-probed")
	}

	s.MarkUnavailable("/d/load")
	fs.Files["/d/load"] = "55"
	if s.Probe("/d/load") || s.Available("/d/load") {
		t.Errorf("expected MarkUnavailable to be permanent")
	}
}

func TestReadFileLimit(t *testing.T) {
	fs := testutils.NewFakeFS()
	fs.Files["/d/big"] = "123456789"
	restore := SetPlatform(fs)
	defer SetPlatform(restore)

	content, err := ReadFile("/d/big", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content != "1234" {
		t.Errorf("expected %q, got %q", "1234", content)
	}
}

func TestWriteStringQuiet(t *testing.T) {
	fs := testutils.NewFakeFS()
	fs.Files["/d/opp"] = ""
	restore := SetPlatform(fs)
	defer SetPlatform(restore)

	if n := WriteStringQuiet("/d/opp", "-1"); n != 2 {
		t.Errorf("expected 2 bytes accepted, got %d", n)
	}
	if n := WriteStringQuiet("/d/nonexistent", "0"); n != 0 {
		t.Errorf("expected failed write to report 0 bytes, got %d", n)
	}
	if got := fs.Written["/d/opp"]; len(got) != 1 || got[0] != "-1" {
		t.Errorf("expected write log [-1], got %v", got)
	}
}
