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
	"fmt"
	"io"
	"sync"
)

//
// Logging backend interface and the default fmt-based implementation.
//

// Backend formats and emits already filtered log messages.
type Backend interface {
	// Name returns the name of this backend.
	Name() string
	// Log emits a log message with the given severity and source prefix.
	Log(level Level, source, message string)
}

// FmtBackendName is the name of the default fmt-based backend.
const FmtBackendName = "fmt"

// severity tags the fmt backend prefixes emitted messages with.
var fmtTags = map[Level]string{
	LevelDebug: "D:",
	LevelInfo:  "I:",
	LevelWarn:  "W:",
	LevelError: "E:",
	LevelFatal: "FATAL ERROR:",
}

// fmtBackend writes tagged messages to a single output stream.
type fmtBackend struct {
	sync.Mutex
	out io.Writer
}

// NewFmtBackend creates a fmt backend emitting to the given writer.
func NewFmtBackend(out io.Writer) Backend {
	return &fmtBackend{out: out}
}

func (*fmtBackend) Name() string {
	return FmtBackendName
}

func (f *fmtBackend) Log(level Level, source, message string) {
	tag, ok := fmtTags[level]
	if !ok {
		tag = "?:"
	}

	f.Lock()
	defer f.Unlock()
	fmt.Fprintln(f.out, tag+" "+source+" "+message)
}
