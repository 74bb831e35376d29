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
	"os"
	"sync"
)

// FakeFS is an in-memory stand-in for the kernel pseudo-filesystem. It
// satisfies the gpufs Platform interface.
type FakeFS struct {
	sync.Mutex
	// Files maps paths to current contents. A missing path does not exist.
	Files map[string]string
	// Written records every write per path, in order.
	Written map[string][]string
	// ReadErrors injects read failures per path.
	ReadErrors map[string]error
	// WriteErrors injects write failures per path.
	WriteErrors map[string]error
	// WriteResults forces the byte count reported for writes to a path,
	// mimicking drivers that accept a write but report zero bytes.
	WriteResults map[string]int
}

// NewFakeFS creates an empty fake filesystem.
func NewFakeFS() *FakeFS {
	return &FakeFS{
		Files:        make(map[string]string),
		Written:      make(map[string][]string),
		ReadErrors:   make(map[string]error),
		WriteErrors:  make(map[string]error),
		WriteResults: make(map[string]int),
	}
}

// ReadFile returns up to limit bytes of the fake file contents.
func (fs *FakeFS) ReadFile(path string, limit int) (string, error) {
	fs.Lock()
	defer fs.Unlock()

	if err, ok := fs.ReadErrors[path]; ok {
		return "", err
	}
	content, ok := fs.Files[path]
	if !ok {
		return "", os.ErrNotExist
	}
	if len(content) > limit {
		content = content[:limit]
	}
	return content, nil
}

// WriteFile records the write and updates the fake file contents.
func (fs *FakeFS) WriteFile(path string, content string) (int, error) {
	fs.Lock()
	defer fs.Unlock()

	if err, ok := fs.WriteErrors[path]; ok {
		return 0, err
	}
	if _, ok := fs.Files[path]; !ok {
		return 0, os.ErrNotExist
	}

	fs.Files[path] = content
	fs.Written[path] = append(fs.Written[path], content)

	if n, ok := fs.WriteResults[path]; ok {
		return n, nil
	}
	return len(content), nil
}

// Exists checks if the fake file exists.
func (fs *FakeFS) Exists(path string) bool {
	fs.Lock()
	defer fs.Unlock()

	_, ok := fs.Files[path]
	return ok
}

// WrittenTo returns the ordered writes recorded for a path.
func (fs *FakeFS) WrittenTo(path string) []string {
	fs.Lock()
	defer fs.Unlock()

	return append([]string{}, fs.Written[path]...)
}

// ClearWrites forgets all recorded writes.
func (fs *FakeFS) ClearWrites() {
	fs.Lock()
	defer fs.Unlock()

	fs.Written = make(map[string][]string)
}
