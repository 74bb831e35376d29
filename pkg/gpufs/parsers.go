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
	"fmt"
	"strconv"
	"strings"
)

// gpufsError produces a path-tagged formatted error.
func gpufsError(path string, format string, args ...interface{}) error {
	return fmt.Errorf("gpufs %s: %s", path, fmt.Sprintf(format, args...))
}

// ParseInt parses a trimmed decimal integer, as found in plain single-value
// pseudo-files.
func ParseInt(path, content string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(content), 10, 64)
	if err != nil {
		return 0, gpufsError(path, "failed to parse integer from %q", content)
	}
	return v, nil
}

// IntToken parses the idx'th (0-based) whitespace-separated token of content
// as an integer.
func IntToken(path, content string, idx int) (int64, error) {
	fields := strings.Fields(content)
	if len(fields) <= idx {
		return 0, gpufsError(path, "expected at least %d fields, got %d in %q",
			idx+1, len(fields), content)
	}
	v, err := strconv.ParseInt(fields[idx], 10, 64)
	if err != nil {
		return 0, gpufsError(path, "failed to parse field %d from %q", idx, content)
	}
	return v, nil
}

// IntAfter finds the first occurrence of marker in content and parses the
// integer that immediately follows, up to the end of the line or a comma.
func IntAfter(path, content, marker string) (int64, error) {
	pos := strings.Index(content, marker)
	if pos < 0 {
		return 0, gpufsError(path, "marker %q not found", marker)
	}
	rest := content[pos+len(marker):]
	if end := strings.IndexAny(rest, ",\n"); end >= 0 {
		rest = rest[:end]
	}
	v, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
	if err != nil {
		return 0, gpufsError(path, "failed to parse integer after %q in %q", marker, content)
	}
	return v, nil
}
