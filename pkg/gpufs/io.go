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
	"io"
	"os"

	"golang.org/x/sys/unix"

	logger "github.com/Tools-cx-app/mali-gpu-governor/pkg/log"
)

var log logger.Logger = logger.NewLogger("gpufs")

// Platform includes the functions that access the filesystem. It enables
// substituting a fake filesystem in tests.
type Platform interface {
	// ReadFile reads up to limit bytes of the file.
	ReadFile(path string, limit int) (string, error)
	// WriteFile writes content to an existing file, returning the byte count.
	WriteFile(path string, content string) (int, error)
	// Exists checks if the path exists.
	Exists(path string) bool
}

// defaultPlatform accesses the underlying system.
type defaultPlatform struct{}

// currentPlatform is the Platform in use: defaultPlatform or a test fake.
var currentPlatform Platform = defaultPlatform{}

// SetPlatform replaces the active Platform, returning the previous one.
func SetPlatform(p Platform) Platform {
	old := currentPlatform
	currentPlatform = p
	return old
}

func (defaultPlatform) ReadFile(path string, limit int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, limit)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	return string(buf[:n]), nil
}

func (defaultPlatform) WriteFile(path string, content string) (int, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, err
	}
	defer unix.Close(fd)

	return unix.Write(fd, []byte(content))
}

func (defaultPlatform) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadFile reads at most limit bytes from the given pseudo-file. Pseudo-files
// report a zero size, so a plain os.ReadFile sizing heuristic does not apply.
func ReadFile(path string, limit int) (string, error) {
	return currentPlatform.ReadFile(path, limit)
}

// WriteString writes content to the given control file and returns how many
// bytes the driver accepted.
func WriteString(path, content string) (int, error) {
	return currentPlatform.WriteFile(path, content)
}

// WriteStringQuiet writes content to the given control file, logging failures
// at debug severity only. It returns the byte count the driver accepted.
func WriteStringQuiet(path, content string) int {
	n, err := currentPlatform.WriteFile(path, content)
	if err != nil {
		log.Debug("failed to write %q to %s: %v", content, path, err)
		return 0
	}
	return n
}

// Exists checks if the given path exists.
func Exists(path string) bool {
	return currentPlatform.Exists(path)
}
