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

package governor

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/Tools-cx-app/mali-gpu-governor/pkg/config"
	"github.com/Tools-cx-app/mali-gpu-governor/pkg/gpufs"
	logger "github.com/Tools-cx-app/mali-gpu-governor/pkg/log"
)

// monitorRetryDelay is the backoff after a failed watch setup or a closed
// event channel. Monitors never exit, they retry.
const monitorRetryDelay = time.Second

const monitorReadLimit = 256

// Monitors are the side threads feeding the shared state: game mode, config
// reload and log level.
type Monitors struct {
	logger.Logger
	state        *State
	tablePath    string
	strategyPath string
}

// NewMonitors creates the monitor set around the shared state, reloading
// configuration from the given files.
func NewMonitors(state *State, tablePath, strategyPath string) *Monitors {
	return &Monitors{
		Logger:       logger.NewLogger("monitor"),
		state:        state,
		tablePath:    tablePath,
		strategyPath: strategyPath,
	}
}

// Start applies the current file contents once and spawns the watch threads.
// The threads live for the process lifetime.
func (m *Monitors) Start() {
	m.applyGameMode()
	m.applyLogLevel()

	go m.watchLoop("game mode", gpufs.GameModePath, m.applyGameMode)
	go m.watchLoop("freq table", m.tablePath, m.reloadConfig)
	go m.watchLoop("strategy", m.strategyPath, m.reloadConfig)
	go m.watchLoop("log level", gpufs.LogLevelPath, m.applyLogLevel)
}

// watchLoop watches the directory holding path and invokes apply on every
// change to it. Watching the directory instead of the file survives editors
// and shells that replace the file. Errors back off and retry.
func (m *Monitors) watchLoop(name, path string, apply func()) {
	for {
		if err := m.watchOnce(path, apply); err != nil {
			m.Error("%s monitor: %v, retrying in %v", name, err, monitorRetryDelay)
		}
		time.Sleep(monitorRetryDelay)
	}
}

func (m *Monitors) watchOnce(path string, apply func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", dir)
	}

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return errors.New("event channel closed")
			}
			if event.Name != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				apply()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("error channel closed")
			}
			return errors.Wrap(err, "watch failed")
		}
	}
}

// applyGameMode reads the game mode file and toggles the aggressive flag.
func (m *Monitors) applyGameMode() {
	content, err := gpufs.ReadFile(gpufs.GameModePath, monitorReadLimit)
	if err != nil {
		m.Debug("game mode file unreadable: %v", err)
		return
	}

	aggressive := parseGameMode(content)
	if aggressive != m.state.Aggressive() {
		m.Info("game mode %s", map[bool]string{true: "on", false: "off"}[aggressive])
		m.state.SetAggressive(aggressive)
	}
}

func parseGameMode(content string) bool {
	return strings.TrimSpace(content) == "1"
}

// reloadConfig replaces the frequency table and strategy wholesale. A failed
// reload keeps the previous configuration.
func (m *Monitors) reloadConfig() {
	table, err := config.ReadFreqTable(m.tablePath)
	if err != nil {
		m.Error("config reload: %v, keeping previous table", err)
		table = nil
	}

	strategy, err := config.ReadStrategy(m.strategyPath)
	if err != nil {
		m.Error("config reload: %v, keeping previous strategy", err)
		strategy = nil
	}

	if table == nil && strategy == nil {
		return
	}
	m.state.ReplaceConfig(table, strategy)
	m.Info("configuration reloaded")
}

// applyLogLevel reads the log level file and adjusts logging at runtime.
func (m *Monitors) applyLogLevel() {
	content, err := gpufs.ReadFile(gpufs.LogLevelPath, monitorReadLimit)
	if err != nil {
		m.Debug("log level file unreadable: %v", err)
		return
	}

	name := strings.TrimSpace(content)
	if name == "" {
		return
	}
	if err := logger.SetLevelByName(name); err != nil {
		m.Warn("invalid log level %q: %v", name, err)
		return
	}
	m.Info("log level set to %s", name)
}
